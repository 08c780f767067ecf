package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the inspection service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Server configuration
	Port           string
	TrustedProxies []string

	// Auth configuration
	JWTSecret string

	// Photo storage configuration
	StorageRoot    string
	StorageBaseURL string

	// Submission policy
	RequirePhoto       bool
	PhotoUploadWorkers int

	// Checklist override (JSON file with ordered {key,label} pairs)
	ChecklistFile string

	// Optional AMQP event publishing
	AMQPURL      string
	AMQPExchange string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret"),
		DBName:     getEnv("DB_NAME", "inspections"),

		// Server defaults
		Port:           getEnv("PORT", "8080"),
		TrustedProxies: getListEnv("TRUSTED_PROXIES", nil),

		// Auth defaults
		JWTSecret: getEnv("JWT_SECRET", "default-secret-change-in-production"),

		// Storage defaults
		StorageRoot:    getEnv("STORAGE_ROOT", "/var/lib/inspection-photos"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/photos"),

		// Submission defaults: zero-photo submissions are allowed unless
		// the operator opts in to the stricter rule.
		RequirePhoto:       getBoolEnv("REQUIRE_PHOTO", false),
		PhotoUploadWorkers: getIntEnv("PHOTO_UPLOAD_WORKERS", 4),

		ChecklistFile: getEnv("CHECKLIST_FILE", ""),

		// AMQP defaults (disabled unless a URL is provided)
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "inspections"),

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return config
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv gets a boolean environment variable or returns a default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getListEnv gets a comma-separated environment variable or returns a default value
func getListEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
