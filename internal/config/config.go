package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application.
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	Environment    string

	DatabaseURL string
	RedisURL    string

	// Auth backend (GoTrue-compatible) used for signup/signin and for
	// anonymous sessions. JWTSecret verifies the HS256 tokens it issues.
	AuthURL       string
	AuthAnonKey   string
	AuthJWTSecret string

	// Image pipeline collaborators.
	ModerationURL string // moderate-and-upload function endpoint
	StorageURL    string // object storage API base
	StorageBucket string

	// CookieDomain scopes the anonymous-id cookie.
	CookieDomain string
	CookieSecure bool
}

// Load loads configuration from environment variables, reading .env first
// if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Environment:    getEnv("ENVIRONMENT", "production"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		AuthURL:        getEnv("AUTH_URL", ""),
		AuthAnonKey:    getEnv("AUTH_ANON_KEY", ""),
		AuthJWTSecret:  getEnv("AUTH_JWT_SECRET", ""),
		ModerationURL:  getEnv("MODERATION_URL", ""),
		StorageURL:     getEnv("STORAGE_URL", ""),
		StorageBucket:  getEnv("STORAGE_BUCKET", "outfit-images"),
		CookieDomain:   getEnv("COOKIE_DOMAIN", ""),
		CookieSecure:   getEnv("COOKIE_SECURE", "true") == "true",
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
