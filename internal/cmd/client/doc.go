// Package client provides the `logbook` command-line client.
//
// The CLI talks to the logbook HTTP and gRPC endpoints to query and manage
// the log store from a terminal.
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. When using the standalone binary, it
// defaults to http://127.0.0.1:8080 (LOGBOOK_HTTP overrides it). The gRPC
// address is read from LOGBOOK_GRPC (default 127.0.0.1:9090).
//
// Usage
//
//	logbook logs write --level warn --tag net "link down"
//	tail -f app.log | logbook logs write --stdin --tag app
//
//	logbook logs query --level warn --tag net --limit 20 --text
//	logbook logs query --start 2026-01-02T00:00:00Z --all
//	logbook logs query --filter 'message.contains("timeout")'
//
//	logbook logs tail -f --tag net --text
//
//	logbook logs delete --max-id 1200
//	logbook logs delete --confirm          # everything
//
//	logbook logs level                     # show
//	logbook logs level error               # change
//
//	logbook logs cleanup --compress
//	logbook health
package client
