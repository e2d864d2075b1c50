package logbook

import (
	"context"

	"github.com/rzbill/logbook/internal/model"
)

//go:generate mockgen -source=./backend.go -destination=../../internal/mocks/backend/mock.go -package=backendmocks

// Backend is the storage contract a Logger delegates to. Write must not block
// on storage; implementations queue it for a single writer.
type Backend interface {
	Configure(ctx context.Context, opts model.StoreOptions) error
	Write(level model.Level, message, tag string)
	GetLogs(ctx context.Context, q model.Query) ([]model.LogEvent, error)
	DeleteLogs(ctx context.Context, q model.DeleteQuery) error
	DBFilePath(ctx context.Context) (string, error)
}

// Cleaner is implemented by backends that support maintenance.
type Cleaner interface {
	CleanUp(ctx context.Context, opts model.CleanUpOptions) error
}

// Flusher is implemented by backends that can wait for queued writes.
type Flusher interface {
	Flush(ctx context.Context) error
}
