package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rzbill/logbook/internal/model"
)

// sseSink writes events as Server-Sent Events. The event id is the log id so
// that clients can resume with Last-Event-ID.
type sseSink struct {
	w http.ResponseWriter
}

func newSSESink(w http.ResponseWriter) sseSink {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return sseSink{w: w}
}

// Send writes one event as an SSE data frame.
func (s sseSink) Send(ev model.LogEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	frame := make([]byte, 0, len(b)+32)
	frame = append(frame, "id: "...)
	frame = strconv.AppendUint(frame, ev.ID, 10)
	frame = append(frame, "\ndata: "...)
	frame = append(frame, b...)
	frame = append(frame, "\n\n"...)
	_, err = s.w.Write(frame)
	return err
}

// Ping writes an SSE comment so idle connections stay open.
func (s sseSink) Ping() error {
	_, err := s.w.Write([]byte(": ping\n\n"))
	return err
}

// Flush flushes the HTTP response writer if it supports flushing.
func (s sseSink) Flush() {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
}
