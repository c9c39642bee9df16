// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the service reads at start-up.
type Config struct {
	AppPort      string
	DBDriver     string
	DatabaseDSN  string
	JWTSecret    string
	RabbitMQURL  string
	LogLevel     string
	LogFormat    string
	SeedDemoData bool
}

// Load reads configuration. A .env file in the working directory is applied first
// when present; real environment variables always win.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}

	v := viper.New()
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "pesan.db")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SEED_DEMO_DATA", true)
	v.AutomaticEnv()

	cfg := Config{
		AppPort:      v.GetString("APP_PORT"),
		DBDriver:     strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:  v.GetString("DATABASE_DSN"),
		JWTSecret:    v.GetString("JWT_SECRET"),
		RabbitMQURL:  v.GetString("RABBITMQ_URL"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		LogFormat:    strings.ToLower(v.GetString("LOG_FORMAT")),
		SeedDemoData: v.GetBool("SEED_DEMO_DATA"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DatabaseDSN == "" {
		return errors.New("config: DATABASE_DSN is required")
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("config: unsupported LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// EventsEnabled reports whether a broker is configured.
func (c Config) EventsEnabled() bool {
	return c.RabbitMQURL != ""
}
