package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Auth      AuthConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string
	Host string
	Addr string // combined host:port for convenience
}

// DatabaseConfig holds database settings.
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// AuthConfig holds the static API key and the fernet key used to encrypt
// the IBKR flex token at rest. An empty APIKey disables the key check.
type AuthConfig struct {
	APIKey    string
	FernetKey string
}

// SchedulerConfig holds the cron schedule for the nightly maintenance job.
type SchedulerConfig struct {
	Enabled  bool
	Schedule string // cron expression
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/fundtracker.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost")),
		},
		Auth: AuthConfig{
			APIKey:    getEnv("API_KEY", ""),
			FernetKey: getEnv("FERNET_KEY", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled:  getEnvBool("SCHEDULER_ENABLED", true),
			Schedule: getEnv("SCHEDULER_CRON", "30 4 * * *"),
		},
	}

	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool parses a boolean environment variable, falling back on errors.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// splitList splits a comma-separated value, trimming whitespace.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
