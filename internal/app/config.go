package app

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envFiles are loaded, when present, before the environment is read. Values
// already set in the environment win.
var envFiles = []string{".env", ".env.local"}

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile   string `envconfig:"LOG_FILE"`

	APIBaseURL string        `envconfig:"API_BASE_URL" required:"true"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"0s"`

	RedisAddr   string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SnapshotTTL time.Duration `envconfig:"SNAPSHOT_TTL" default:"24h"`

	WorkspaceTTL       time.Duration `envconfig:"WORKSPACE_TTL" default:"30m"`
	PageSize           int           `envconfig:"PAGE_SIZE" default:"10"`
	SearchDebounce     time.Duration `envconfig:"SEARCH_DEBOUNCE" default:"300ms"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
}

// LoadConfig reads configuration from .env files and environment variables.
func LoadConfig() (*Config, error) {
	for _, file := range envFiles {
		// Missing files are fine; the environment may carry everything.
		_ = godotenv.Load(file)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API_BASE_URL %q must be an absolute http(s) url", c.APIBaseURL)
	}
	if c.PageSize <= 0 {
		return errors.New("PAGE_SIZE must be greater than 0")
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be greater than 0")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
