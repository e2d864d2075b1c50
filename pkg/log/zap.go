package log

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config declares a logger: level, encoding, and an optional rotating file.
type Config struct {
	Level  string `json:"level" yaml:"level" env:"LOGBOOK_LOG_LEVEL"`
	Format string `json:"format" yaml:"format" env:"LOGBOOK_LOG_FORMAT"` // text|json
	// File, when set, also writes entries to a lumberjack-rotated file.
	File       string `json:"file" yaml:"file" env:"LOGBOOK_LOG_FILE"`
	MaxSizeMB  int    `json:"maxSizeMB" yaml:"maxSizeMB" env:"LOGBOOK_LOG_MAX_SIZE_MB"`
	MaxBackups int    `json:"maxBackups" yaml:"maxBackups" env:"LOGBOOK_LOG_MAX_BACKUPS"`
	MaxAgeDays int    `json:"maxAgeDays" yaml:"maxAgeDays" env:"LOGBOOK_LOG_MAX_AGE_DAYS"`
}

// LoggerOption configures NewLogger.
type LoggerOption func(*options)

type options struct {
	level   Level
	json    bool
	outputs []io.Writer
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(o *options) { o.level = level }
}

// WithJSON selects the JSON encoder instead of the console encoder.
func WithJSON() LoggerOption {
	return func(o *options) { o.json = true }
}

// WithOutput adds an output. Without any, entries go to stderr.
func WithOutput(w io.Writer) LoggerOption {
	return func(o *options) { o.outputs = append(o.outputs, w) }
}

type zapLogger struct {
	logger *zap.Logger
	level  zap.AtomicLevel
}

// NewLogger creates a zap-backed Logger.
func NewLogger(opts ...LoggerOption) Logger {
	o := options{level: InfoLevel}
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.outputs) == 0 {
		o.outputs = []io.Writer{os.Stderr}
	}

	level := zap.NewAtomicLevelAt(o.level.zap())
	var enc zapcore.Encoder
	if o.json {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		enc = zapcore.NewConsoleEncoder(cfg)
	}

	cores := make([]zapcore.Core, 0, len(o.outputs))
	for _, w := range o.outputs {
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(w), level))
	}
	return &zapLogger{
		logger: zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)),
		level:  level,
	}
}

// ApplyConfig builds a Logger from cfg.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := []LoggerOption{WithLevel(lvl), WithOutput(os.Stderr)}
	if strings.EqualFold(cfg.Format, "json") {
		opts = append(opts, WithJSON())
	}
	if cfg.File != "" {
		opts = append(opts, WithOutput(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}))
	}
	return NewLogger(opts...), nil
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return &zapLogger{logger: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// FromZap wraps an existing zap logger.
func FromZap(l *zap.Logger) Logger {
	return &zapLogger{logger: l.WithOptions(zap.AddCallerSkip(1)), level: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.logger.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.logger.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.logger.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.logger.Error(msg, fields...) }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{logger: l.logger.With(fields...), level: l.level}
}

func (l *zapLogger) SetLevel(level Level) { l.level.SetLevel(level.zap()) }

func (l *zapLogger) GetLevel() Level {
	switch l.level.Level() {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.WarnLevel:
		return WarnLevel
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l *zapLogger) Sync() error { return l.logger.Sync() }

// RedirectStdLog routes the standard library logger to l at info level. The
// returned function restores the previous destination.
func RedirectStdLog(l Logger) func() {
	if zl, ok := l.(*zapLogger); ok {
		return zap.RedirectStdLog(zl.logger.WithOptions(zap.AddCallerSkip(-1)))
	}
	return func() {}
}
