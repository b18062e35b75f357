package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration shared by all binaries.
// Environment variables are parsed from the PACTLY_ prefix,
// e.g. PACTLY_HTTP_ADDR, PACTLY_PG_DSN, PACTLY_AUTH_SECRET.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	PGDSN string `envconfig:"PG_DSN" default:""`

	// Auth
	AuthSecret string        `envconfig:"AUTH_SECRET" default:""`
	AccessTTL  time.Duration `envconfig:"ACCESS_TTL" default:"15m"`
	RefreshTTL time.Duration `envconfig:"REFRESH_TTL" default:"336h"`

	// AI provider
	OpenAIAPIKey  string        `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIModel   string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	DraftTimeout  time.Duration `envconfig:"DRAFT_TIMEOUT" default:"120s"`

	// HTTP hardening
	RateBurst    int   `envconfig:"RATE_BURST" default:"20"`
	RatePerSec   int   `envconfig:"RATE_PER_SEC" default:"10"`
	MaxBodyBytes int64 `envconfig:"MAX_BODY_BYTES" default:"1048576"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("PACTLY", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("config: token TTLs must be positive")
	}
	return &cfg, nil
}
