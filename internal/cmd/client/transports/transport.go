package transports

import (
	"context"

	"github.com/rzbill/logbook/internal/model"
)

// QueryRequest mirrors the query parameters of GET /v1/logs. Start and End
// are passed through as given (epoch ms or RFC3339).
type QueryRequest struct {
	Start         string
	End           string
	Level         string
	ExplicitLevel bool
	Tags          []string
	Limit         int
	Order         string
	AfterID       uint64
	Filter        string
}

// Page is one page of events plus the cursor to resume after it.
type Page struct {
	Events      []model.LogEvent `json:"events"`
	NextAfterID uint64           `json:"next_after_id"`
}

// Entry is one event submitted for ingestion.
type Entry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
}

// DeleteRequest bounds a delete. The zero value deletes everything.
type DeleteRequest struct {
	Start int64  `json:"start,omitempty"`
	End   int64  `json:"end,omitempty"`
	MaxID uint64 `json:"max_id,omitempty"`
}

// CleanupRequest selects store maintenance steps.
type CleanupRequest struct {
	Compress bool `json:"compress"`
	Vacuum   bool `json:"vacuum"`
}

// LogsTransport abstracts the transport used by the CLI for log operations.
type LogsTransport interface {
	Query(ctx context.Context, req QueryRequest) (Page, error)
	Tail(ctx context.Context, req QueryRequest, waitMs int) (Page, error)
	Write(ctx context.Context, entries []Entry) (accepted int, err error)
	Delete(ctx context.Context, req DeleteRequest) error
	Path(ctx context.Context) (string, error)
	Cleanup(ctx context.Context, req CleanupRequest) error
	Level(ctx context.Context) (string, error)
	SetLevel(ctx context.Context, level string) (string, error)
}

// HealthTransport reports serving status of the server.
type HealthTransport interface {
	Check(ctx context.Context, service string) (string, error)
}
