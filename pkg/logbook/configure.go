package logbook

import (
	"context"
	"fmt"
)

// Config is the full set of settings applied by Configure.
type Config struct {
	CaptureConsole bool
	DeleteInterval int64
	Formatter      Formatter
	LogFileDir     string
	LogFileName    string
	LogLevel       Level
	MaxAge         int64
	UseCompression bool
	MaxSizeBytes   int64
	DefaultTag     string
}

// DefaultConfig returns the settings Configure starts from.
func DefaultConfig() Config {
	return Config{
		CaptureConsole: true,
		Formatter:      DefaultFormatter,
		LogLevel:       LevelDebug,
		DefaultTag:     DefaultTag,
	}
}

// StoreOptions returns the engine part of c.
func (c Config) StoreOptions() StoreOptions {
	return StoreOptions{
		LogFileDir:     c.LogFileDir,
		LogFileName:    c.LogFileName,
		MaxAge:         c.MaxAge,
		DeleteInterval: c.DeleteInterval,
		UseCompression: c.UseCompression,
		MaxSizeBytes:   c.MaxSizeBytes,
		DefaultTag:     c.DefaultTag,
	}
}

// ConfigureOption changes one setting of Configure.
type ConfigureOption func(*Config)

func WithCaptureConsole(on bool) ConfigureOption {
	return func(c *Config) { c.CaptureConsole = on }
}

// WithDeleteInterval sets the retention sweep period in seconds.
func WithDeleteInterval(seconds int64) ConfigureOption {
	return func(c *Config) { c.DeleteInterval = seconds }
}

func WithFormatter(f Formatter) ConfigureOption {
	return func(c *Config) { c.Formatter = f }
}

func WithLogFileDir(dir string) ConfigureOption {
	return func(c *Config) { c.LogFileDir = dir }
}

func WithLogFileName(name string) ConfigureOption {
	return func(c *Config) { c.LogFileName = name }
}

func WithLogLevel(level Level) ConfigureOption {
	return func(c *Config) { c.LogLevel = level }
}

// WithMaxAge sets how long events are kept, in seconds. Zero keeps them forever.
func WithMaxAge(seconds int64) ConfigureOption {
	return func(c *Config) { c.MaxAge = seconds }
}

func WithCompression(on bool) ConfigureOption {
	return func(c *Config) { c.UseCompression = on }
}

// WithMaxSizeBytes caps stored bytes on engines that can measure them.
func WithMaxSizeBytes(n int64) ConfigureOption {
	return func(c *Config) { c.MaxSizeBytes = n }
}

// WithDefaultTag sets the tag given to untagged console calls.
func WithDefaultTag(tag string) ConfigureOption {
	return func(c *Config) { c.DefaultTag = tag }
}

// Configure applies opts on top of DefaultConfig. The backend is configured
// first; when that fails the previous configuration stays in effect.
func (l *Logger) Configure(ctx context.Context, opts ...ConfigureOption) error {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return l.apply(ctx, cfg)
}

func (l *Logger) apply(ctx context.Context, cfg Config) error {
	if l.backend == nil {
		return ErrUnavailable
	}
	if !cfg.LogLevel.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, int(cfg.LogLevel))
	}
	if cfg.Formatter == nil {
		cfg.Formatter = DefaultFormatter
	}
	if cfg.DefaultTag == "" {
		cfg.DefaultTag = DefaultTag
	}

	l.cfgMu.Lock()
	defer l.cfgMu.Unlock()

	if err := l.backend.Configure(ctx, cfg.StoreOptions()); err != nil {
		return fmt.Errorf("logbook: configure: %w", err)
	}

	l.level.Store(int64(cfg.LogLevel))
	l.fmtMu.Lock()
	l.formatter = cfg.Formatter
	l.defaultTag = cfg.DefaultTag
	l.fmtMu.Unlock()

	l.DisableConsoleCapture()
	if cfg.CaptureConsole {
		l.EnableConsoleCapture()
	}
	l.diag.Debug("logbook configured")
	return nil
}
