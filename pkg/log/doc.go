// Package log provides logbook's structured diagnostic logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. It is backed by zap: console or JSON
// encoding to stderr, plus optional rotating file output through lumberjack.
// These are the process's own diagnostics, kept apart from the events the
// store records.
//
// Quick start
//
//	l, _ := log.ApplyConfig(&log.Config{Level: "info", Format: "text"})
//	l = l.With(log.Component("server"))
//	l.Info("server started", log.Str("http", ":8080"))
//
// # Interop
//
// RedirectStdLog routes the standard library logger (used by Pebble and
// net/http) through a Logger.
package log
