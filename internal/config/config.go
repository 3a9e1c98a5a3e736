package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Gateway   GatewayConfig
	Auth      AuthConfig
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	Driver      string
	PostgresURL string
	SQLitePath  string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type SchedulerConfig struct {
	Interval  time.Duration
	BatchSize int
}

type GatewayConfig struct {
	URL    string
	APIKey string
}

type AuthConfig struct {
	Required bool
}

func LoadAll() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Database: loadDatabaseConfig(),
		Gateway: GatewayConfig{
			URL:    mustEnv("GATEWAY_URL"),
			APIKey: os.Getenv("GATEWAY_API_KEY"),
		},
		Scheduler: SchedulerConfig{
			Interval:  time.Duration(getEnvInt("SCHED_INTERVAL_SECONDS", 30)) * time.Second,
			BatchSize: getEnvInt("SCHED_BATCH_SIZE", 100),
		},
		Redis: loadRedisConfig(),
		Auth: AuthConfig{
			Required: getEnvBool("AUTH_REQUIRED", false),
		},
	}

	validate(cfg)
	return cfg, nil
}

func loadDatabaseConfig() DatabaseConfig {
	driver := getEnv("DATABASE_DRIVER", "sqlite")

	cfg := DatabaseConfig{Driver: driver}
	switch driver {
	case "postgres":
		cfg.PostgresURL = mustEnv("POSTGRES_URL")
	case "sqlite":
		cfg.SQLitePath = getEnv("SQLITE_PATH", "data/console.db")
	default:
		panic(fmt.Sprintf("DATABASE_DRIVER must be postgres or sqlite, got %q", driver))
	}
	return cfg
}

func loadRedisConfig() RedisConfig {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvInt("REDIS_DB", 0),
		TTL:      time.Duration(getEnvInt("REDIS_TTL_SECONDS", 86400)) * time.Second,
	}
}

func validate(cfg *Config) {
	if cfg.Scheduler.BatchSize <= 0 {
		panic("SCHED_BATCH_SIZE must be > 0")
	}
	if cfg.Scheduler.Interval <= 0 {
		panic("SCHED_INTERVAL_SECONDS must be > 0")
	}
}

func mustEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("missing required env var: %s", key))
	}
	return val
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("invalid int for env %s: %s", key, v))
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(fmt.Sprintf("invalid bool for env %s: %s", key, v))
	}
	return b
}
