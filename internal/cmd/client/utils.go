// Package client contains Cobra CLI commands for logbook.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rzbill/logbook/internal/cmd/client/transports"
	"github.com/rzbill/logbook/internal/model"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// grpcAddrFromEnv returns the gRPC server address from LOGBOOK_GRPC or a default.
func grpcAddrFromEnv() string {
	if addr := os.Getenv("LOGBOOK_GRPC"); addr != "" {
		return addr
	}
	return "127.0.0.1:9090"
}

// dialGRPCContext dials the logbook gRPC endpoint with insecure transport for local/dev.
func dialGRPCContext(_ context.Context) (*grpc.ClientConn, error) {
	return grpc.NewClient(grpcAddrFromEnv(), grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func getTransport(baseURL BaseURLFunc) transports.LogsTransport {
	return transports.NewHTTPTransport(baseURL(), nil)
}

func getHealthTransport() transports.HealthTransport {
	return transports.NewGrpcTransport(dialGRPCContext)
}

// parseTimeArg accepts epoch milliseconds or RFC3339.
func parseTimeArg(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), nil
	}
	return 0, fmt.Errorf("invalid time %q; expected ms or RFC3339", s)
}

// eventPrinter writes events either as JSON lines or as text.
type eventPrinter struct {
	w    io.Writer
	enc  *json.Encoder
	text bool
}

func newEventPrinter(w io.Writer, text bool) *eventPrinter {
	return &eventPrinter{w: w, enc: json.NewEncoder(w), text: text}
}

func (p *eventPrinter) print(ev model.LogEvent) error {
	if !p.text {
		return p.enc.Encode(ev)
	}
	ts := time.UnixMilli(ev.Timestamp).UTC().Format("2006-01-02T15:04:05.000Z07:00")
	tag := ev.Tag
	if tag == "" {
		tag = "-"
	}
	_, err := fmt.Fprintf(p.w, "%d %s %-5s [%s] %s\n", ev.ID, ts, ev.Level, tag, ev.Message)
	return err
}
