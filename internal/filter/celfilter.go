// Package filter evaluates optional CEL expressions against stored events.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/rzbill/logbook/internal/model"
)

// CEL wraps a compiled CEL program. The zero value is disabled and matches
// every event.
//
// Variables: id, ts_ms, level, tag, message, now_ms.
type CEL struct {
	prog    cel.Program
	enabled bool
}

// Compile parses and type-checks expr. An empty expression yields a disabled
// filter.
func Compile(expr string) (CEL, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return CEL{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("id", cel.IntType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("level", cel.IntType),
		cel.Variable("tag", cel.StringType),
		cel.Variable("message", cel.StringType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return CEL{}, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return CEL{}, fmt.Errorf("%w: %v", model.ErrInvalidFilter, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return CEL{}, fmt.Errorf("%w: expression must return bool, got %s", model.ErrInvalidFilter, ast.OutputType())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return CEL{}, fmt.Errorf("%w: %v", model.ErrInvalidFilter, err)
	}
	return CEL{prog: prog, enabled: true}, nil
}

// Enabled reports whether an expression was compiled.
func (f CEL) Enabled() bool { return f.enabled }

// Eval reports whether ev satisfies the expression. Evaluation errors exclude
// the event.
func (f CEL) Eval(ev model.LogEvent) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"id":      int64(ev.ID),
		"ts_ms":   ev.Timestamp,
		"level":   int64(ev.Level),
		"tag":     ev.Tag,
		"message": ev.Message,
		"now_ms":  time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
