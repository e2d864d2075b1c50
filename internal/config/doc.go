// Package config loads the logbook daemon configuration. Default() is the
// baseline; Load reads a JSON or YAML file through cleanenv and overlays
// LOGBOOK_* environment variables.
//
// Example:
//
//	_ = config.LoadDotEnv()
//	cfg, err := config.Load("/etc/logbook.yaml")
//	if err != nil {
//	    return err
//	}
//	rt, err := runtime.Open(ctx, runtime.Options{Config: cfg})
package config
