package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string
	AppEnv     string
	JWTSecret  string

	APIBaseURL      string
	UpstreamTimeout time.Duration
	FilterDebounce  time.Duration
	SessionTTL      time.Duration

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		AppEnv:     getEnv("APP_ENV", getEnv("NODE_ENV", "development")),
		JWTSecret:  getEnv("JWT_SECRET", ""),

		APIBaseURL:      getEnv("API_BASE_URL", getEnv("NEXT_PUBLIC_API_BASE_URL", "http://localhost:8000/api")),
		UpstreamTimeout: time.Duration(getInt("UPSTREAM_TIMEOUT_SECONDS", 15)) * time.Second,
		FilterDebounce:  time.Duration(getInt("FILTER_DEBOUNCE_MS", 400)) * time.Millisecond,
		SessionTTL:      time.Duration(getInt("SESSION_TTL_MINUTES", 30)) * time.Minute,

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "console"),
		SQLitePath: getEnv("SQLITE_PATH", "console.db"),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
