package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string `env:"PORT" envDefault:"8080"`
	DatabaseType   string `env:"DB_TYPE" envDefault:"sqlite"`
	DatabasePath   string `env:"DB_PATH" envDefault:"./coinzy.db"`
	DatabaseURL    string `env:"DATABASE_URL"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"./migrations"`

	JWTSecret   string `env:"JWT_SECRET"`
	CatalogPath string `env:"CATALOG_PATH"`
	Timezone    string `env:"TIMEZONE" envDefault:"Local"`

	// Six-field cron expressions (seconds first)
	DailyResetCron string `env:"DAILY_RESET_CRON" envDefault:"0 0 0 * * *"`
	InterestCron   string `env:"INTEREST_CRON"`

	AWSRegion    string `env:"AWS_REGION" envDefault:"us-east-1"`
	SESFromEmail string `env:"SES_FROM_EMAIL"`
	SESFromName  string `env:"SES_FROM_NAME" envDefault:"Coinzy"`
	AppBaseURL   string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	Debug             bool          `env:"DEBUG"`
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"60"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Load reads configuration from a .env file, if present, and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: could not read .env file: %v", err)
	}
	return Parse()
}

// Parse reads configuration from environment variables with sensible defaults
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no usable default
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the time zone used for calendar days
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// EmailEnabled reports whether parent e-mail alerts are configured
func (c *Config) EmailEnabled() bool {
	return c.SESFromEmail != ""
}
