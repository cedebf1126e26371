// Package config loads process configuration from the environment.
//
// Configuration is loaded once at startup into an explicit struct that is
// passed by reference to whoever needs it. There is no ambient global
// "current settings" state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port           int
	AllowedOrigins []string

	// Storage
	DBPath string

	// Numbering
	InvoicePrefix string

	// Logging
	LogLevel  string
	LogFormat string // json, console
}

// Load reads an optional .env file and the process environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		// Missing .env is fine; real deployments set env vars directly.
		_ = godotenv.Load(envFile)
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	return &Config{
		Port:           port,
		AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080")),
		DBPath:         getEnv("DB_PATH", "ledger.db"),
		InvoicePrefix:  getEnv("INVOICE_PREFIX", "INV"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
