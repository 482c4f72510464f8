// Package config loads the framework's own ambient process configuration
// from environment variables — cache directory root, sync API endpoint,
// and the concurrency knobs for scheduling and upload. Instance-specific
// config (instanceConfigFields, the integration's own flags) is a
// collaborator concern handled by the CLI driver, not this package.
package config

import (
	"os"
	"strconv"
)

// Config holds the core's own process-level configuration.
type Config struct {
	CacheDirRoot         string
	SyncAPIBaseURL       string
	APIKey               string
	Dev                  bool
	SchedulerConcurrency int
	UploadConcurrency    int
	PostgresDSN          string // optional, enables pkg/syncjobstore audit trail
	CoreVersion          string
}

// Load reads configuration from environment variables, matching the
// teacher's Load() idiom of falling back to a sane default per field.
func Load() *Config {
	baseURL := os.Getenv("JUPITERONE_API_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.us.jupiterone.io"
	}

	cacheDirRoot := os.Getenv("INTEGRATION_CACHE_DIR")
	if cacheDirRoot == "" {
		cacheDirRoot = os.TempDir()
	}

	return &Config{
		CacheDirRoot:         cacheDirRoot,
		SyncAPIBaseURL:       baseURL,
		APIKey:               os.Getenv("JUPITERONE_API_KEY"),
		Dev:                  os.Getenv("JUPITERONE_DEV") == "true",
		SchedulerConcurrency: envInt("INTEGRATION_SCHEDULER_CONCURRENCY", 1),
		UploadConcurrency:    envInt("INTEGRATION_UPLOAD_CONCURRENCY", 4),
		PostgresDSN:          os.Getenv("INTEGRATION_AUDIT_POSTGRES_DSN"),
		CoreVersion:          "0.1.0",
	}
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
