package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr       string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RecordRetention  time.Duration
	DefaultThreshold float64
	DefaultInterval  int
	DashboardFile    string
}

func Load() *Config {
	return &Config{
		ListenAddr:       getEnv("LISTEN_ADDR", ":8888"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RecordRetention:  time.Duration(getEnvInt("RECORD_RETENTION_MIN", 60)) * time.Minute,
		DefaultThreshold: getEnvFloat("DETECTION_THRESHOLD", 0.85),
		DefaultInterval:  getEnvInt("UPDATE_INTERVAL_SEC", 2),
		DashboardFile:    getEnv("DASHBOARD_FILE", "./web/index.html"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
