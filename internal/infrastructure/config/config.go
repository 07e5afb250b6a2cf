package config

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Mongo   MongoConfig
	Redis   RedisConfig
	Sync    SyncConfig
	Routing RoutingConfig
	Ingest  IngestConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=fieldservice"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// SyncConfig controls the technician synchronizer. Defaults match the
// established freshness behaviour: 30s poll, 5m/30m liveness cutoffs.
type SyncConfig struct {
	PollInterval      time.Duration `env:"SYNC_POLL_INTERVAL,     default=30s"`
	EnableRealtime    bool          `env:"SYNC_ENABLE_REALTIME,   default=true"`
	RefreshTimeout    time.Duration `env:"SYNC_REFRESH_TIMEOUT,   default=15s"`
	FreshThreshold    time.Duration `env:"SYNC_FRESH_THRESHOLD,   default=5m"`
	DegradedThreshold time.Duration `env:"SYNC_DEGRADED_THRESHOLD, default=30m"`
}

// RoutingConfig exposes the routing policy knobs. The speed and dwell values
// are policy defaults, not measurements; keep them unless a deployment has
// better local data.
type RoutingConfig struct {
	AverageSpeedMPH    float64 `env:"ROUTING_AVG_SPEED_MPH,       default=30"`
	DefaultStopMinutes int     `env:"ROUTING_DEFAULT_STOP_MINUTES, default=60"`
}

type IngestConfig struct {
	Workers int `env:"INGEST_WORKERS, default=8"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(logger zerolog.Logger) *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		logger.Error().Err(err).Msg("failed to load configuration")
		panic(err)
	}
	return &cfg
}
