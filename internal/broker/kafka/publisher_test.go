package kafkabroker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/logbook/internal/model"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishKeysByTag(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, PublisherConfig{Topic: "logs"})

	events := []model.LogEvent{
		{ID: 1, Timestamp: 1_700_000_000_000, Level: model.LevelInfo, Message: "a", Tag: "net"},
		{ID: 2, Timestamp: 1_700_000_000_001, Level: model.LevelError, Message: "b"},
	}
	require.NoError(t, p.Publish(context.Background(), events))
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "net", string(w.msgs[0].Key))
	assert.Equal(t, model.DefaultTag, string(w.msgs[1].Key))
	assert.Equal(t, int64(1_700_000_000_001), w.msgs[1].Time.UnixMilli())

	var got model.LogEvent
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &got))
	assert.Equal(t, events[1], got)
}

func TestPublishEmptyBatch(t *testing.T) {
	w := &fakeWriter{err: errors.New("not called")}
	p := newPublisher(w, PublisherConfig{Topic: "logs"})
	assert.NoError(t, p.Publish(context.Background(), nil))
}

func TestPublishError(t *testing.T) {
	boom := errors.New("broker down")
	p := newPublisher(&fakeWriter{err: boom}, PublisherConfig{Topic: "logs"})
	err := p.Publish(context.Background(), []model.LogEvent{{ID: 1, Message: "x"}})
	assert.ErrorIs(t, err, boom)
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, PublisherConfig{Topic: "logs"})
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
