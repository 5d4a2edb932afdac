package config

import (
	"github.com/maxviazov/gameday-service/internal/logger"
)

type Config struct {
	App      AppConfig           `mapstructure:"app"`
	Logger   logger.LoggerConfig `mapstructure:"logger"`
	Storage  StorageConfig       `mapstructure:"storage"`
	Postgres PostgresConfig      `mapstructure:"postgres"`
	Realtime RealtimeConfig      `mapstructure:"realtime"`
}

type AppConfig struct {
	Name    string `mapstructure:"name" validate:"required"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env" validate:"oneof=dev test staging prod"`
	Port    int    `mapstructure:"port" validate:"min=1,max=65535"`
	// ShutdownTimeout is in seconds.
	ShutdownTimeout int `mapstructure:"shutdown_timeout" validate:"min=0"`
}

// StorageConfig selects the MatchRepository implementation.
type StorageConfig struct {
	Driver         string `mapstructure:"driver" validate:"oneof=memory postgres"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
}

// PostgresConfig holds connection and pool settings. Durations are in seconds.
// User, password and database name are expected from the environment.
type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port" validate:"min=0,max=65535"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	DBName            string `mapstructure:"db_name"`
	SSLMode           string `mapstructure:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns          int32  `mapstructure:"max_conns" validate:"min=0"`
	MinConns          int32  `mapstructure:"min_conns" validate:"min=0"`
	MaxConnLifetime   int    `mapstructure:"max_conn_lifetime" validate:"min=0"`
	MaxConnIdleTime   int    `mapstructure:"max_conn_idle_time" validate:"min=0"`
	HealthCheckPeriod int    `mapstructure:"health_check_period" validate:"min=0"`
	NotifyChannel     string `mapstructure:"notify_channel"`
}

// RealtimeConfig tunes the websocket fan-out of match changes.
type RealtimeConfig struct {
	SendBuffer     int `mapstructure:"send_buffer" validate:"min=1"`
	MaxMessageSize int `mapstructure:"max_message_size" validate:"min=1"`
}
