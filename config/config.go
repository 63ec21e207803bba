package config

import (
	"os"
	"strconv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Zoom     ZoomConfig
	Jobs     JobsConfig
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type DatabaseConfig struct {
	URL string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// ZoomConfig holds the settings shared by every resource-account client.
// Per-account credentials live in the resource_accounts table.
type ZoomConfig struct {
	APIBaseURL string
	OAuthURL   string
	// CallDelayMS is the fixed delay between consecutive external calls
	// inside batch jobs, to respect the provider's rate limits.
	CallDelayMS int
}

type JobsConfig struct {
	ReconcileEnabled     bool
	ReconcileIntervalMin int
}

var AppConfig *Config

func Load() {
	AppConfig = &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DB_URL", ""),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-this-secret-in-production"),
			ExpiryHours: getEnvAsInt("JWT_EXPIRY_HOURS", 24),
		},
		Zoom: ZoomConfig{
			APIBaseURL:  getEnv("ZOOM_API_BASE_URL", "https://api.zoom.us/v2"),
			OAuthURL:    getEnv("ZOOM_OAUTH_URL", "https://zoom.us/oauth/token"),
			CallDelayMS: getEnvAsInt("ZOOM_CALL_DELAY_MS", 500),
		},
		Jobs: JobsConfig{
			ReconcileEnabled:     getEnv("RECONCILE_JOB_ENABLED", "true") == "true",
			ReconcileIntervalMin: getEnvAsInt("RECONCILE_INTERVAL_MIN", 360),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
