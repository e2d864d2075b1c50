package config

import (
	"fmt"
	"slices"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/rzbill/logbook/pkg/log"
)

// Config is the daemon configuration loaded from file/env.
type Config struct {
	DataDir string `json:"dataDir" yaml:"dataDir" env:"LOGBOOK_DATA_DIR"`
	// Engine is "pebble" or "sqlite".
	Engine   string `json:"engine" yaml:"engine" env:"LOGBOOK_ENGINE"`
	FileName string `json:"fileName" yaml:"fileName" env:"LOGBOOK_FILE_NAME"`
	// Fsync is "always", "interval" or "never". Pebble only.
	Fsync string `json:"fsync" yaml:"fsync" env:"LOGBOOK_FSYNC"`
	// WriteBuffer is the writer queue length.
	WriteBuffer int `json:"writeBuffer" yaml:"writeBuffer" env:"LOGBOOK_WRITE_BUFFER"`

	Store Store      `json:"store" yaml:"store"`
	HTTP  HTTP       `json:"http" yaml:"http"`
	GRPC  GRPC       `json:"grpc" yaml:"grpc"`
	Log   log.Config `json:"log" yaml:"log"`
	Ship  Ship       `json:"ship" yaml:"ship"`
}

// Store holds the settings passed to Logger.Configure.
type Store struct {
	LogLevel       string `json:"logLevel" yaml:"logLevel" env:"LOGBOOK_LEVEL"`
	MaxAge         int64  `json:"maxAge" yaml:"maxAge" env:"LOGBOOK_MAX_AGE"`
	DeleteInterval int64  `json:"deleteInterval" yaml:"deleteInterval" env:"LOGBOOK_DELETE_INTERVAL"`
	UseCompression bool   `json:"useCompression" yaml:"useCompression" env:"LOGBOOK_COMPRESSION"`
	MaxSizeBytes   int64  `json:"maxSizeBytes" yaml:"maxSizeBytes" env:"LOGBOOK_MAX_SIZE_BYTES"`
	DefaultTag     string `json:"defaultTag" yaml:"defaultTag" env:"LOGBOOK_DEFAULT_TAG"`
}

type HTTP struct {
	Addr              string   `json:"addr" yaml:"addr" env:"LOGBOOK_HTTP_ADDR"`
	DefaultQueryLimit int      `json:"defaultQueryLimit" yaml:"defaultQueryLimit" env:"LOGBOOK_HTTP_DEFAULT_LIMIT"`
	MaxQueryLimit     int      `json:"maxQueryLimit" yaml:"maxQueryLimit" env:"LOGBOOK_HTTP_MAX_LIMIT"`
	CORSOrigins       []string `json:"corsOrigins" yaml:"corsOrigins" env:"LOGBOOK_HTTP_CORS_ORIGINS"`
}

type GRPC struct {
	Addr string `json:"addr" yaml:"addr" env:"LOGBOOK_GRPC_ADDR"`
}

// Ship configures forwarding to Kafka. Shipping is off without brokers.
type Ship struct {
	Brokers   []string `json:"brokers" yaml:"brokers" env:"LOGBOOK_SHIP_BROKERS"`
	Topic     string   `json:"topic" yaml:"topic" env:"LOGBOOK_SHIP_TOPIC"`
	Interval  int64    `json:"interval" yaml:"interval" env:"LOGBOOK_SHIP_INTERVAL"`
	BatchSize int      `json:"batchSize" yaml:"batchSize" env:"LOGBOOK_SHIP_BATCH_SIZE"`
	Tags      []string `json:"tags" yaml:"tags" env:"LOGBOOK_SHIP_TAGS"`
}

// Enabled reports whether shipping is configured.
func (s Ship) Enabled() bool { return len(s.Brokers) > 0 && s.Topic != "" }

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DataDir:     DefaultDataDir(),
		Engine:      "pebble",
		Fsync:       "interval",
		WriteBuffer: 1024,
		Store: Store{
			LogLevel:       "debug",
			MaxAge:         5 * 24 * 60 * 60,
			DeleteInterval: 5 * 60,
			DefaultTag:     "main",
		},
		HTTP: HTTP{
			Addr:              ":8080",
			DefaultQueryLimit: 100,
			MaxQueryLimit:     1000,
		},
		GRPC: GRPC{Addr: ":9090"},
		Log: log.Config{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Ship: Ship{
			Topic:     "logbook",
			Interval:  30,
			BatchSize: 500,
		},
	}
}

// Load reads configuration from a JSON or YAML file (by extension) on top of
// the defaults, then overlays LOGBOOK_* env vars. If path is empty, only the
// env overlay is applied.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if err := FromEnv(&cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv overlays LOGBOOK_* environment variables onto cfg.
func FromEnv(cfg *Config) error {
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	return nil
}

// Validate checks values that cannot be expressed through types.
func (c Config) Validate() error {
	if !slices.Contains([]string{"pebble", "sqlite"}, c.Engine) {
		return fmt.Errorf("config: unknown engine %q", c.Engine)
	}
	if !slices.Contains([]string{"", "always", "interval", "never"}, c.Fsync) {
		return fmt.Errorf("config: unknown fsync mode %q", c.Fsync)
	}
	if c.Store.MaxAge < 0 || c.Store.DeleteInterval < 0 {
		return fmt.Errorf("config: retention values must not be negative")
	}
	if c.HTTP.DefaultQueryLimit <= 0 || c.HTTP.MaxQueryLimit < c.HTTP.DefaultQueryLimit {
		return fmt.Errorf("config: need 0 < defaultQueryLimit <= maxQueryLimit, got %d and %d",
			c.HTTP.DefaultQueryLimit, c.HTTP.MaxQueryLimit)
	}
	return nil
}

// EnvHelp describes every env var Config reads.
func EnvHelp() (string, error) {
	var cfg Config
	return cleanenv.GetDescription(&cfg, nil)
}
