package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabasePath   string
	SessionSecret  string
	BaseURL        string
	LogLevel       string
	Port           string
	StreakLookback int
}

func Load() (Config, error) {
	// Missing .env is fine; real deployments set environment directly.
	_ = godotenv.Load()

	config := Config{
		DatabasePath:  envOrDefault("DATABASE_PATH", "./data/rubyroutines.db"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		BaseURL:       envOrDefault("BASE_URL", "http://localhost:8080"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		Port:          envOrDefault("PORT", "8080"),
	}

	lookback := envOrDefault("STREAK_LOOKBACK", "12")
	parsed, err := strconv.Atoi(lookback)
	if err != nil || parsed <= 0 {
		return Config{}, fmt.Errorf("STREAK_LOOKBACK must be a positive integer, got %q", lookback)
	}
	config.StreakLookback = parsed

	if config.SessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET is required")
	}

	return config, nil
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
