package logbook

import (
	"fmt"

	"github.com/rzbill/logbook/internal/logstore"
	"github.com/rzbill/logbook/internal/sqlitestore"
	"github.com/rzbill/logbook/pkg/log"
)

// Engine names accepted by NewBackend.
const (
	EnginePebble = logstore.EngineName
	EngineSQLite = sqlitestore.EngineName
)

// BackendOptions tunes a built-in engine.
type BackendOptions struct {
	Logger log.Logger
	// OnError receives asynchronous write failures.
	OnError func(error)
}

// NewBackend returns one of the built-in engines. An empty name selects Pebble.
func NewBackend(engine string, o BackendOptions) (Backend, error) {
	switch engine {
	case "", EnginePebble:
		return logstore.New(logstore.Options{Logger: o.Logger, OnError: o.OnError}), nil
	case EngineSQLite:
		return sqlitestore.New(sqlitestore.Options{Logger: o.Logger, OnError: o.OnError}), nil
	default:
		return nil, fmt.Errorf("logbook: unknown engine %q", engine)
	}
}
