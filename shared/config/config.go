package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GithubToken     string  `env:"GITHUB_TOKEN,required,notEmpty"`
	GithubOwner     string  `env:"GITHUB_OWNER,required,notEmpty"`
	GithubRepo      string  `env:"GITHUB_REPO,required,notEmpty"`
	GithubRateLimit float64 `env:"GITHUB_RATE_LIMIT" envDefault:"10"` // requests per second, 0 disables
	SourceBranch    string  `env:"SOURCE_BRANCH"`                     // empty accepts pushes to every ref
	WebhookSecret   string  `env:"BLOG_WEBHOOK_SECRET,required,notEmpty"`

	// Cache store: Redis when RedisURL is set, SQLite otherwise
	RedisURL    string `env:"REDIS_URL"`
	CachePrefix string `env:"CACHE_PREFIX" envDefault:"blog:"`
	SQLitePath  string `env:"SQLITE_DB_PATH" envDefault:"./blogsync.db"`

	ServerPort      int           `env:"PORT" envDefault:"8080"`
	Env             string        `env:"ENV" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	SiteURL         string        `env:"SITE_URL" envDefault:"http://localhost:8080"`
	SyncConcurrency int           `env:"SYNC_CONCURRENCY" envDefault:"8"`
	PageCacheTTL    time.Duration `env:"PAGE_CACHE_TTL" envDefault:"10m"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the listen address.
func (c Config) ServerAddr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// UseRedis returns true if the Redis post store is configured.
func (c Config) UseRedis() bool {
	return c.RedisURL != ""
}

// Load parses environment variables and returns a Config struct.
// A missing required variable is an error.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.ServerPort < 1 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.ServerPort)
	}
	if cfg.SyncConcurrency < 1 {
		return nil, fmt.Errorf("SYNC_CONCURRENCY must be at least 1, got %d", cfg.SyncConcurrency)
	}

	return cfg, nil
}
