// Package runtime wires a storage engine, the logbook facade and the
// optional Kafka shipper into a single daemon instance. It exposes
// Open/Close, a health check, and the handles the servers need.
//
// Example:
//
//	cfg := config.Default()
//	cfg.DataDir = "./data"
//	rt, _ := runtime.Open(ctx, runtime.Options{Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(ctx)
//	rt.Logger().Info("hello", "boot")
package runtime
