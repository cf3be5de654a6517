package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrMissingAPIURL is returned when PYMEDESK_API_URL is unset or blank.
var ErrMissingAPIURL = errors.New("PYMEDESK_API_URL is not set; add it to the .env file with the API base URL")

type Config struct {
	APIBaseURL string `env:"PYMEDESK_API_URL"`
	AppEnv     string `env:"PYMEDESK_ENV" envDefault:"dev"`
	LogLevel   string `env:"PYMEDESK_LOG_LEVEL" envDefault:"info"`

	Locale   string `env:"PYMEDESK_LOCALE" envDefault:"es-PE"`
	Currency string `env:"PYMEDESK_CURRENCY" envDefault:"PEN"`

	Storage   StorageConfig
	Telemetry TelemetryConfig
}

// TelemetryConfig controls trace export of outgoing API calls. Tracing is
// off unless an endpoint is set.
type TelemetryConfig struct {
	Endpoint string `env:"PYMEDESK_OTEL_ENDPOINT"`
	Enabled  bool   `env:"PYMEDESK_OTEL_ENABLED" envDefault:"true"`
}

// StorageConfig selects and configures the device store that mirrors the
// session and cart between runs.
type StorageConfig struct {
	Driver    string `env:"PYMEDESK_STORAGE" envDefault:"sqlite"`
	Namespace string `env:"PYMEDESK_STORAGE_NAMESPACE" envDefault:"pymedesk"`

	SQLitePath string `env:"PYMEDESK_SQLITE_PATH" envDefault:"pymedesk.db"`

	RedisAddr     string `env:"PYMEDESK_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"PYMEDESK_REDIS_PASSWORD"`
	RedisDB       int    `env:"PYMEDESK_REDIS_DB" envDefault:"0"`

	MongoURI      string `env:"PYMEDESK_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"PYMEDESK_MONGO_DB" envDefault:"pymedesk"`
}

// Load reads an optional .env file and then the process environment.
// Variables already present in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	c.APIBaseURL = strings.TrimSpace(c.APIBaseURL)
	if c.APIBaseURL == "" {
		return ErrMissingAPIURL
	}
	switch c.Storage.Driver {
	case "memory", "sqlite", "redis", "mongo":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
