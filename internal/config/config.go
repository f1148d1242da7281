package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host string
		Port string
	}

	Metrics struct {
		Addr string
	}

	Pairing struct {
		// RecencyDays is the activity window for eligibility.
		RecencyDays int
		// FlakeCeiling excludes members at or above this streak.
		FlakeCeiling int
		// LookbackDays is the no-rematch history window.
		LookbackDays int
		// ExpiryHour is the local hour of the pairing day after which
		// one-sided pairings may be force-completed.
		ExpiryHour int
		// MatchHour is the local hour the daily run fires.
		MatchHour int
		// RecoveryEveryMin is the recovery scan interval.
		RecoveryEveryMin int
		// ReminderWindowMin throttles nudges per pairing.
		ReminderWindowMin int
	}
}

func New() *Config {
	// Missing .env is fine, real env wins either way.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "development")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "pairing_server")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "duosnap")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// Metrics
	cfg.Metrics.Addr = getEnvDefault("METRICS_ADDR", ":9102")

	// Pairing engine knobs
	cfg.Pairing.RecencyDays = getEnvInt("PAIRING_RECENCY_DAYS", 3)
	cfg.Pairing.FlakeCeiling = getEnvInt("PAIRING_FLAKE_CEILING", 5)
	cfg.Pairing.LookbackDays = getEnvInt("PAIRING_LOOKBACK_DAYS", 7)
	cfg.Pairing.ExpiryHour = getEnvInt("PAIRING_EXPIRY_HOUR", 22)
	cfg.Pairing.MatchHour = getEnvInt("PAIRING_MATCH_HOUR", 9)
	cfg.Pairing.RecoveryEveryMin = getEnvInt("PAIRING_RECOVERY_EVERY_MIN", 30)
	cfg.Pairing.ReminderWindowMin = getEnvInt("PAIRING_REMINDER_WINDOW_MIN", 15)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
