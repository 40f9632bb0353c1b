// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Progress store backends.
const (
	StoreSQLite = "sqlite"
	StoreLocal  = "local"
)

// Config holds all application configuration.
type Config struct {
	Port                string
	FrontendURL         string
	DBPath              string
	ProgressStore       string // "sqlite" (row per user+plan) or "local" (JSON blob per device)
	LocalStoreDir       string
	PlansFile           string
	CORSOrigins         []string
	GRPCHealthPort      string
	HealthProbeInterval time.Duration
	FeedEnabled         bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	probeInterval, err := getEnvDuration("HEALTH_PROBE_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	feedEnabled, err := getEnvBool("FEED_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		FrontendURL:         getEnv("FRONTEND_URL", ""),
		DBPath:              getEnv("DB_PATH", "./data/altar.db"),
		ProgressStore:       strings.ToLower(strings.TrimSpace(getEnv("PROGRESS_STORE", StoreSQLite))),
		LocalStoreDir:       getEnv("LOCAL_STORE_DIR", "./data/local"),
		PlansFile:           getEnv("PLANS_FILE", ""),
		CORSOrigins:         getEnvList("CORS_ORIGINS", []string{"*"}),
		GRPCHealthPort:      getEnv("GRPC_HEALTH_PORT", ""),
		HealthProbeInterval: probeInterval,
		FeedEnabled:         feedEnabled,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	switch c.ProgressStore {
	case StoreSQLite, StoreLocal:
	default:
		return fmt.Errorf("PROGRESS_STORE must be %q or %q, got %q", StoreSQLite, StoreLocal, c.ProgressStore)
	}
	if c.GRPCHealthPort != "" {
		if _, err := strconv.Atoi(c.GRPCHealthPort); err != nil {
			return fmt.Errorf("GRPC_HEALTH_PORT must be numeric: %w", err)
		}
		if c.GRPCHealthPort == c.Port {
			return fmt.Errorf("GRPC_HEALTH_PORT must differ from PORT")
		}
	}
	if c.HealthProbeInterval <= 0 {
		return fmt.Errorf("HEALTH_PROBE_INTERVAL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return fallback, fmt.Errorf("%s must be a boolean, got %q", key, value)
	}
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
