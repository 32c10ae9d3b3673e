package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Backend kinds the client can be composed against.
const (
	BackendREST     = "rest"
	BackendSupabase = "supabase"
)

// Config holds all configuration for the draftmill client.
// Configuration can come from a YAML file (config.yaml) or environment
// variables; environment variables override YAML values. Secrets must only
// come from environment variables.
type Config struct {
	// Backend selects which backend implementation to compose: "rest" for a
	// generic authenticated REST API, "supabase" for the managed backend.
	Backend string `yaml:"backend" env:"DRAFTMILL_BACKEND" env-default:"rest"`

	// Env is the deployment environment label, used only for logging.
	Env string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`

	// REST backend configuration.
	REST RESTConfig `yaml:"rest"`

	// Supabase backend configuration.
	Supabase SupabaseConfig `yaml:"supabase"`

	// ProcessingBaseURL is the optional processing backend that actually
	// produces report output. Empty means not configured, which is a normal
	// condition: reports are still created and wait for external processing.
	ProcessingBaseURL string `yaml:"processing_base_url" env:"PROCESSING_BASE_URL" env-default:""`

	// PollInterval is how often a non-terminal report is re-fetched.
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL" env-default:"3s"`

	// SearchDebounce is the quiet period before a search input is applied.
	SearchDebounce time.Duration `yaml:"search_debounce" env:"SEARCH_DEBOUNCE" env-default:"300ms"`

	// PageSize is the default list page size.
	PageSize int `yaml:"page_size" env:"PAGE_SIZE" env-default:"10"`

	// SessionDir is where session tokens and the auth snapshot are persisted.
	// Defaults to a draftmill directory under the user config dir.
	SessionDir string `yaml:"session_dir" env:"SESSION_DIR" env-default:""`
}

// RESTConfig holds settings for the generic REST backend.
type RESTConfig struct {
	BaseURL string        `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:8000/api/v1"`
	Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"30s"`
}

// SupabaseConfig holds settings for the managed backend.
type SupabaseConfig struct {
	URL     string `yaml:"url" env:"SUPABASE_URL" env-default:""`
	AnonKey string `yaml:"-" env:"SUPABASE_ANON_KEY"` // Secret - not in YAML
	// Bucket is the storage bucket holding generated report files.
	Bucket string `yaml:"bucket" env:"SUPABASE_BUCKET" env-default:"reports"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. A missing config.yaml is fine; env and defaults apply.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.SessionDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user config dir: %w", err)
		}
		cfg.SessionDir = filepath.Join(base, "draftmill")
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendREST:
		if _, err := url.ParseRequestURI(c.REST.BaseURL); err != nil {
			return fmt.Errorf("invalid rest base_url: %w", err)
		}
	case BackendSupabase:
		if c.Supabase.URL == "" {
			return fmt.Errorf("supabase backend selected but SUPABASE_URL is not set")
		}
		if c.Supabase.AnonKey == "" {
			return fmt.Errorf("supabase backend selected but SUPABASE_ANON_KEY is not set")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if c.ProcessingBaseURL != "" {
		if _, err := url.ParseRequestURI(c.ProcessingBaseURL); err != nil {
			return fmt.Errorf("invalid processing_base_url: %w", err)
		}
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}

	return nil
}

// ProcessingConfigured reports whether a processing backend was set up.
// Absence is not an error condition.
func (c *Config) ProcessingConfigured() bool {
	return c.ProcessingBaseURL != ""
}
