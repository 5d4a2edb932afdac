package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var defaults = map[string]any{
	"app.name":                     "gameday-service",
	"app.version":                  "0.1.0",
	"app.env":                      "prod",
	"app.port":                     8080,
	"app.shutdown_timeout":         10,
	"storage.driver":               "memory",
	"storage.migrate_on_start":     false,
	"postgres.host":                "localhost",
	"postgres.port":                5432,
	"postgres.sslmode":             "disable",
	"postgres.max_conns":           10,
	"postgres.min_conns":           1,
	"postgres.max_conn_lifetime":   3600,
	"postgres.max_conn_idle_time":  300,
	"postgres.health_check_period": 30,
	"postgres.notify_channel":      "match_changes",
	"realtime.send_buffer":         256,
	"realtime.max_message_size":    512,
}

// Load reads path, applies APP_* environment overrides and validates the result.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	// .env is a local-development convenience; its absence is not an error
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	// secrets never live in the yaml; accept the conventional names as fallbacks
	_ = v.BindEnv("postgres.user", "APP_POSTGRES_USER", "POSTGRES_USER", "DB_USER")
	_ = v.BindEnv("postgres.password", "APP_POSTGRES_PASSWORD", "POSTGRES_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("postgres.db_name", "APP_POSTGRES_DB", "POSTGRES_DB", "DB_NAME")

	var config Config
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks field constraints and the cross-field storage requirements.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c.App); err != nil {
		return fmt.Errorf("app config validation error: %w", err)
	}
	if err := v.Struct(c.Storage); err != nil {
		return fmt.Errorf("storage config validation error: %w", err)
	}
	if err := v.Struct(c.Realtime); err != nil {
		return fmt.Errorf("realtime config validation error: %w", err)
	}
	if c.Storage.Driver != "postgres" {
		return nil
	}
	if err := v.Struct(c.Postgres); err != nil {
		return fmt.Errorf("postgres config validation error: %w", err)
	}
	var missing []string
	if c.Postgres.User == "" {
		missing = append(missing, "APP_POSTGRES_USER")
	}
	if c.Postgres.Password == "" {
		missing = append(missing, "APP_POSTGRES_PASSWORD")
	}
	if c.Postgres.DBName == "" {
		missing = append(missing, "APP_POSTGRES_DB")
	}
	if len(missing) > 0 {
		return errors.New("missing required environment: " + strings.Join(missing, ", "))
	}
	return nil
}
