package config

import (
	"os"
	"strconv"
	"time"
)

// AppConfig is the whole configuration surface, loaded from environment
// variables. Every field has a sane local-dev default so the binary can be
// started without a .env file.
type AppConfig struct {
	HTTPPort    string
	PostgresDSN string
	RedisURL    string

	MaxInMemory             int
	MaxConcurrentExecuting  int
	MaxSecondsToSleep       time.Duration
	PollInterval            time.Duration
	PollPageLimit           int
	ShutdownGrace           time.Duration
	LeaseTTL                time.Duration
	ReaperInterval          time.Duration
	SchedulerTickInterval   time.Duration
	SchedulerTimezone       string
	HeartbeatTTL            time.Duration
	HeartbeatRefreshInterval time.Duration

	CreateTaskRPS   float64
	CreateTaskBurst int

	LogLevel string
}

func Load() AppConfig {
	return AppConfig{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		PostgresDSN: getEnv("DATABASE_URL", "host=localhost port=5432 user=scheduler dbname=scheduler sslmode=disable"),
		RedisURL:    getEnv("REDIS_URL", ""),

		MaxInMemory:            getEnvInt("MAX_IN_MEMORY", 10_000),
		MaxConcurrentExecuting: getEnvInt("MAX_CONCURRENT_EXECUTING", 64),
		MaxSecondsToSleep:      getEnvDuration("MAX_SECONDS_TO_SLEEP", 60*time.Second),
		PollInterval:           getEnvDuration("POLL_INTERVAL", 30*time.Second),
		PollPageLimit:          getEnvInt("POLL_PAGE_LIMIT", 500),
		ShutdownGrace:          getEnvDuration("SHUTDOWN_GRACE", 30*time.Second),

		LeaseTTL:       getEnvDuration("LEASE_TTL", 30*time.Second),
		ReaperInterval: getEnvDuration("REAPER_INTERVAL", 15*time.Second),

		SchedulerTickInterval: getEnvDuration("SCHEDULER_TICK_INTERVAL", 10*time.Second),
		SchedulerTimezone:     getEnv("SCHEDULER_TIMEZONE", "UTC"),

		HeartbeatTTL:             getEnvDuration("HEARTBEAT_TTL", 30*time.Second),
		HeartbeatRefreshInterval: getEnvDuration("HEARTBEAT_REFRESH_INTERVAL", 10*time.Second),

		CreateTaskRPS:   getEnvFloat("CREATE_TASK_RPS", 100),
		CreateTaskBurst: getEnvInt("CREATE_TASK_BURST", 200),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
