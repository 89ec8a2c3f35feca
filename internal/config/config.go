package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// PostgREST upstream
	PostgRESTURL string

	// SQLite
	SQLiteDBPath string

	// Memory backend seed files
	DataDirectory string

	// Query limits
	DefaultLimit int
	MaxLimit     int

	// Report
	TopN int

	// MCC catalog cache
	MCCCacheTTL time.Duration

	// Logging
	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		PostgRESTURL: getEnv("POSTGREST_URL", ""),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cardstats.db"),

		DataDirectory: getEnv("DATA_DIR", "data"),

		DefaultLimit: getEnvInt("DEFAULT_LIMIT", 100),
		MaxLimit:     getEnvInt("MAX_LIMIT", 1000),

		TopN: getEnvInt("TOP_N", 5),

		MCCCacheTTL: getEnvDuration("MCC_CACHE_TTL", 5*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "postgrest", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate PostgREST configuration if backend is postgrest
	if c.DataBackend == "postgrest" {
		if c.PostgRESTURL == "" {
			errors = append(errors, "PostgREST URL cannot be empty when using postgrest backend")
		} else if parsedURL, err := url.Parse(c.PostgRESTURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid PostgREST URL '%s': %v", c.PostgRESTURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid PostgREST URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate query limits
	if c.DefaultLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid default limit %d: must be at least 1", c.DefaultLimit))
	}
	if c.MaxLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid max limit %d: must be at least 1", c.MaxLimit))
	}
	if c.DefaultLimit >= 1 && c.MaxLimit >= 1 && c.DefaultLimit > c.MaxLimit {
		errors = append(errors, fmt.Sprintf("default limit %d cannot exceed max limit %d", c.DefaultLimit, c.MaxLimit))
	}

	// Validate report settings
	if c.TopN < 1 {
		errors = append(errors, fmt.Sprintf("invalid top N %d: must be at least 1", c.TopN))
	} else if c.TopN > 100 {
		errors = append(errors, fmt.Sprintf("invalid top N %d: must be at most 100", c.TopN))
	}

	// Validate cache TTL
	if c.MCCCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid MCC cache TTL %v: must be at least 1 second", c.MCCCacheTTL))
	} else if c.MCCCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid MCC cache TTL %v: must be at most 24 hours", c.MCCCacheTTL))
	}

	// Validate log level
	validLevels := []string{"debug", "info", "warn", "error"}
	isValidLevel := false
	for _, level := range validLevels {
		if c.LogLevel == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
