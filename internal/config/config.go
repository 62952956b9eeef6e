package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration, read from BALANCER_* environment
// variables. A .env file in the working directory is loaded first if present.
type Config struct {
	// Address is the listen address for the HTTP server.
	Address string `default:"0.0.0.0:3000"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `split_words:"true" default:"info"`

	// Environment selects development conveniences (embedded NATS, mock auth)
	// when set to "development" or left empty.
	Environment string `default:"development"`

	// StatsDir is the directory holding one CSV per game (Player,Points rows).
	StatsDir string `split_words:"true" default:"stats"`

	// TemplatesGlob locates the HTML templates for the dashboard page.
	TemplatesGlob string `split_words:"true" default:"templates/*.html"`

	// BoardDriver selects the saved-board store: memory, sqlite or postgres.
	BoardDriver string `split_words:"true" default:"memory"`

	// SQLiteFile is the database path when BoardDriver is sqlite.
	SQLiteFile string `split_words:"true" default:"boards.sqlite"`

	// PostgresDSN is required when BoardDriver is postgres.
	PostgresDSN string `split_words:"true"`

	// NatsURL points at the production NATS server. Ignored in development,
	// where an embedded server is started instead.
	NatsURL string `split_words:"true" default:"nats://localhost:4222"`

	// NatsSubject is the subject dashboard events are published on.
	NatsSubject string `split_words:"true" default:"balancer.events"`

	// SessionTTLMinutes is how long an idle resolution session is kept.
	SessionTTLMinutes int `split_words:"true" default:"240"`

	// ClickHouse ingestion. When Addr is empty the sync worker is disabled and
	// the CSV snapshot is the only stats source.
	ClickHouseAddr     string `split_words:"true"`
	ClickHouseDB       string `split_words:"true" default:"default"`
	ClickHouseUser     string `split_words:"true" default:"default"`
	ClickHousePassword string `split_words:"true"`

	// ClickHouseSyncMinutes is the interval between warehouse syncs.
	ClickHouseSyncMinutes int `split_words:"true" default:"5"`

	// OIDC login. Required outside development.
	OIDCBaseURL      string `envconfig:"OIDC_BASE_URL"`
	OIDCClientID     string `envconfig:"OIDC_CLIENT_ID"`
	OIDCClientSecret string `envconfig:"OIDC_CLIENT_SECRET"`
	OIDCRedirectURL  string `envconfig:"OIDC_REDIRECT_URL" default:"http://localhost:3000/auth/callback"`
}

// DevMode reports whether development conveniences should be enabled.
func (c *Config) DevMode() bool {
	return c.Environment == "" || c.Environment == "development"
}

// Parse loads .env (if present) and the BALANCER_* environment into a Config.
func Parse() (*Config, error) {
	// Missing .env is not an error; explicit environment always wins.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("balancer", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return &cfg, nil
}
