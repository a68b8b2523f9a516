package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"mysql"` // mysql | postgres
	DBUser      string `env:"DB_USER,required,notEmpty"`
	DBPassword  string `env:"DB_PASSWORD,required,notEmpty"`
	DBHost      string `env:"DB_HOST,required,notEmpty"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName      string `env:"DB_NAME,required,notEmpty"`
	DBPort      string `env:"DB_PORT"`
	DBSSLMode   string `env:"DB_SSLMODE" envDefault:"disable"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	CacheBackend  string        `env:"CACHE_BACKEND" envDefault:"memory"` // memory | redis
	CacheCapacity int           `env:"CACHE_CAPACITY" envDefault:"1000"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`

	TeamMaxDepth       int `env:"TEAM_MAX_DEPTH" envDefault:"10"`
	CommissionMaxDepth int `env:"COMMISSION_MAX_DEPTH" envDefault:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be mysql or postgres, got %q", c.DBDriver)
	}
	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("CACHE_BACKEND must be memory or redis, got %q", c.CacheBackend)
	}
	if c.CacheCapacity <= 0 {
		return fmt.Errorf("CACHE_CAPACITY must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.TeamMaxDepth <= 0 || c.CommissionMaxDepth <= 0 {
		return fmt.Errorf("TEAM_MAX_DEPTH and COMMISSION_MAX_DEPTH must be positive")
	}
	return nil
}
