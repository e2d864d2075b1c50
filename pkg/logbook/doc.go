// Package logbook is an embedded, leveled, tagged log store.
//
// A Logger sits in front of a Backend (the Pebble engine by default) and
// decides which messages are recorded: it gates on the configured minimum
// level, runs the formatter, and hands the result to the backend's single
// writer. Stored events can be queried by time range, level, and tag, and
// pruned by id or time.
//
// Console capture mirrors calls made through a Console into the store while
// still forwarding them to the original sink:
//
//	console := logbook.NewConsole(logbook.WriterSink(os.Stdout))
//	backend, _ := logbook.NewBackend(logbook.EnginePebble, logbook.BackendOptions{})
//	lb := logbook.New(backend, logbook.WithConsole(console))
//	_ = lb.Configure(ctx, logbook.WithLogFileDir(dir), logbook.WithLogLevel(logbook.LevelInfo))
//
//	console.Info("ready")            // stored with the default tag
//	console.Tag("net").Warn("retry") // stored with tag "net"
//
//	evs, _ := lb.GetLogs(ctx, logbook.Query{Order: logbook.OrderAsc, Limit: 20})
//	_ = lb.DeleteLogs(ctx, logbook.DeleteQuery{MaxID: evs[len(evs)-1].ID})
package logbook
