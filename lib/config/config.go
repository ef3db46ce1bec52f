package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port   string `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"catalog.db"`

	// An empty CatalogAPIURL runs every repository on the bundled snapshot.
	CatalogAPIURL      string        `env:"CATALOG_API_URL"`
	CatalogAPITimeout  time.Duration `env:"CATALOG_API_TIMEOUT" envDefault:"15s"`
	CatalogAPIPageSize int           `env:"CATALOG_API_PAGE_SIZE" envDefault:"100"`

	// Seeds for the persisted settings. Values already persisted win.
	ServiceAvailable string `env:"SERVICE_AVAILABLE"`
	SessionToken     string `env:"SESSION_TOKEN"`

	TMDBAPIKey   string `env:"TMDB_API_KEY"`
	PlexURL      string `env:"PLEX_URL"`
	PlexToken    string `env:"PLEX_TOKEN"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
}

// Load reads the given dotenv files, or .env when none are given, and then
// parses the environment. Missing dotenv files are skipped; variables
// already set in the environment are not overridden.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.CatalogAPIPageSize <= 0 {
		return nil, fmt.Errorf("CATALOG_API_PAGE_SIZE must be positive, got %d", cfg.CatalogAPIPageSize)
	}
	return cfg, nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) RemoteEnabled() bool { return c.CatalogAPIURL != "" }
