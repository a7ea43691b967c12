// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds everything main wires together at startup.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// AdminIDs is the static superuser allow-list.
	AdminIDs []string `env:"ADMIN_IDS" envSeparator:","`

	// Backend selects the ledger implementation: memory or redis.
	Backend string `env:"LEDGER_BACKEND" envDefault:"memory"`

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	// Both gates default closed; an admin opens them explicitly.
	SubmissionsOpen bool `env:"SUBMISSIONS_OPEN" envDefault:"false"`
	AuctionsOpen    bool `env:"AUCTIONS_OPEN" envDefault:"false"`
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Load reads the .env file when present, then parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.Backend != BackendMemory && cfg.Backend != BackendRedis {
		return Config{}, fmt.Errorf("config: unknown LEDGER_BACKEND %q", cfg.Backend)
	}
	return cfg, nil
}
