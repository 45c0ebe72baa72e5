package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Addr           string
	DBFile         string
	JWTSecret      string
	TokenExpiry    time.Duration
	AllowedOrigins []string
}

func Load() (*Config, error) {
	tokenExpiry, err := time.ParseDuration(getEnv("TOKEN_EXPIRY", "168h"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Addr:           getEnv("ADDR", ":10000"),
		DBFile:         getEnv("PARLOR_DB", "parlor.db"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		TokenExpiry:    tokenExpiry,
		AllowedOrigins: splitOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.TokenExpiry <= 0 {
		return fmt.Errorf("TOKEN_EXPIRY must be greater than 0")
	}

	return nil
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
