// Package httpserver exposes the log store over a JSON REST API: queries,
// ingestion, long-poll and SSE tailing, deletion, maintenance and
// Prometheus metrics.
//
// Example:
//
//	rt, _ := runtime.Open(ctx, runtime.Options{Config: config.Default()})
//	s := httpserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
