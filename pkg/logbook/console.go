package logbook

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Method is a console entry point.
type Method int

const (
	MethodDebug Method = iota
	MethodLog
	MethodInfo
	MethodWarn
	MethodError
)

func (m Method) String() string {
	switch m {
	case MethodDebug:
		return "debug"
	case MethodLog:
		return "log"
	case MethodInfo:
		return "info"
	case MethodWarn:
		return "warn"
	case MethodError:
		return "error"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// Level maps a console method to the level it is stored at.
func (m Method) Level() Level {
	switch m {
	case MethodDebug:
		return LevelDebug
	case MethodWarn:
		return LevelWarning
	case MethodError:
		return LevelError
	default:
		return LevelInfo
	}
}

// Args are the arguments of one console call: PlainArgs or TaggedArgs.
type Args interface {
	values() []any
	tag() string
}

// PlainArgs is an untagged call.
type PlainArgs []any

// TaggedArgs is a call that names its tag.
type TaggedArgs struct {
	Tag    string
	Values []any
}

func (a PlainArgs) values() []any  { return a }
func (PlainArgs) tag() string      { return "" }
func (a TaggedArgs) values() []any { return a.Values }
func (a TaggedArgs) tag() string   { return a.Tag }

// Plain builds PlainArgs.
func Plain(v ...any) Args { return PlainArgs(v) }

// Tagged builds TaggedArgs.
func Tagged(tag string, v ...any) Args { return TaggedArgs{Tag: tag, Values: v} }

// Values returns the arguments of a, without the tag.
func Values(a Args) []any { return a.values() }

// TagOf returns the tag of a, empty for PlainArgs.
func TagOf(a Args) string { return a.tag() }

// Text renders the arguments the way fmt.Sprintln does, without the newline.
func Text(a Args) string {
	return strings.TrimSuffix(fmt.Sprintln(a.values()...), "\n")
}

// Sink receives console calls.
type Sink interface {
	Emit(m Method, args Args)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(m Method, args Args)

func (f SinkFunc) Emit(m Method, args Args) { f(m, args) }

// WriterSink prints calls to w, one line each, prefixed with the method and tag.
func WriterSink(w io.Writer) Sink {
	var mu sync.Mutex
	return SinkFunc(func(m Method, args Args) {
		prefix := strings.ToUpper(m.String())
		if t := args.tag(); t != "" {
			prefix += " [" + t + "]"
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "%s %s\n", prefix, Text(args))
	})
}

// DiscardSink drops every call.
var DiscardSink Sink = SinkFunc(func(Method, Args) {})

// Console is an injectable console whose sink can be swapped at runtime.
// A tap, when installed, sees every call before the sink does; SetSink
// leaves it in place.
type Console struct {
	mu   sync.RWMutex
	sink Sink
	tap  func(Method, Args)
}

// NewConsole creates a Console writing to sink. A nil sink discards.
func NewConsole(sink Sink) *Console {
	if sink == nil {
		sink = DiscardSink
	}
	return &Console{sink: sink}
}

// Sink returns the currently installed sink.
func (c *Console) Sink() Sink {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sink
}

// SetSink installs s and returns the previous sink.
func (c *Console) SetSink(s Sink) Sink {
	if s == nil {
		s = DiscardSink
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.sink
	c.sink = s
	return prev
}

func (c *Console) setTap(fn func(Method, Args)) {
	c.mu.Lock()
	c.tap = fn
	c.mu.Unlock()
}

// Emit routes one call to the tap, if any, then to the installed sink.
func (c *Console) Emit(m Method, args Args) {
	c.mu.RLock()
	sink, tap := c.sink, c.tap
	c.mu.RUnlock()
	if tap != nil {
		tap(m, args)
	}
	sink.Emit(m, args)
}

func (c *Console) Debug(v ...any) { c.Emit(MethodDebug, PlainArgs(v)) }
func (c *Console) Log(v ...any)   { c.Emit(MethodLog, PlainArgs(v)) }
func (c *Console) Info(v ...any)  { c.Emit(MethodInfo, PlainArgs(v)) }
func (c *Console) Warn(v ...any)  { c.Emit(MethodWarn, PlainArgs(v)) }
func (c *Console) Error(v ...any) { c.Emit(MethodError, PlainArgs(v)) }

// Tag returns a view of c whose calls carry tag.
func (c *Console) Tag(tag string) TaggedConsole {
	return TaggedConsole{c: c, tag: tag}
}

// TaggedConsole emits TaggedArgs.
type TaggedConsole struct {
	c   *Console
	tag string
}

func (t TaggedConsole) Debug(v ...any) { t.c.Emit(MethodDebug, TaggedArgs{Tag: t.tag, Values: v}) }
func (t TaggedConsole) Log(v ...any)   { t.c.Emit(MethodLog, TaggedArgs{Tag: t.tag, Values: v}) }
func (t TaggedConsole) Info(v ...any)  { t.c.Emit(MethodInfo, TaggedArgs{Tag: t.tag, Values: v}) }
func (t TaggedConsole) Warn(v ...any)  { t.c.Emit(MethodWarn, TaggedArgs{Tag: t.tag, Values: v}) }
func (t TaggedConsole) Error(v ...any) { t.c.Emit(MethodError, TaggedArgs{Tag: t.tag, Values: v}) }
