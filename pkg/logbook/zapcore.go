package logbook

import (
	"context"
	"strings"

	"go.uber.org/zap/zapcore"
)

// TagKey is the zap field that carries the tag of a mirrored record.
const TagKey = "tag"

// ZapCore is a zapcore.Core that mirrors records into a Logger. Combine it
// with an existing core through zapcore.NewTee.
type ZapCore struct {
	l      *Logger
	tag    string
	fields []zapcore.Field
	enc    zapcore.Encoder
}

// NewZapCore returns a core writing into l.
func NewZapCore(l *Logger) *ZapCore {
	return &ZapCore{
		l: l,
		// only the context fields are rendered; entry metadata comes from the store
		enc: zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			LineEnding:     " ",
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
		}),
	}
}

func levelFromZap(lvl zapcore.Level) Level {
	switch {
	case lvl < zapcore.InfoLevel:
		return LevelDebug
	case lvl == zapcore.InfoLevel:
		return LevelInfo
	case lvl == zapcore.WarnLevel:
		return LevelWarning
	default:
		return LevelError
	}
}

func (c *ZapCore) Enabled(lvl zapcore.Level) bool {
	return ShouldWrite(c.l.LogLevel(), levelFromZap(lvl))
}

func (c *ZapCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append([]zapcore.Field(nil), c.fields...)
	for _, f := range fields {
		if t, ok := tagField(f); ok {
			clone.tag = t
			continue
		}
		clone.fields = append(clone.fields, f)
	}
	return &clone
}

func (c *ZapCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *ZapCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	tag := c.tag
	all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	for _, f := range fields {
		if t, ok := tagField(f); ok {
			tag = t
			continue
		}
		all = append(all, f)
	}
	if tag == "" {
		c.l.fmtMu.RLock()
		tag = c.l.defaultTag
		c.l.fmtMu.RUnlock()
	}

	msg := ent.Message
	if len(all) > 0 {
		buf, err := c.enc.EncodeEntry(zapcore.Entry{}, all)
		if err != nil {
			return err
		}
		msg += " " + strings.TrimSpace(buf.String())
		buf.Free()
	}
	c.l.Write(levelFromZap(ent.Level), msg, tag)
	return nil
}

// Sync flushes queued writes of the underlying backend.
func (c *ZapCore) Sync() error {
	if f, ok := c.l.backend.(Flusher); ok {
		return f.Flush(context.Background())
	}
	return nil
}

func tagField(f zapcore.Field) (string, bool) {
	if f.Key == TagKey && f.Type == zapcore.StringType {
		return f.String, true
	}
	return "", false
}
