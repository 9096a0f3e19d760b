/*
config.go - Environment-driven configuration

PURPOSE:
  Loads server configuration from the environment with sane defaults,
  after an optional .env file (development convenience, ignored when
  absent). Flags in cmd/server override whatever is loaded here.

SEE ALSO:
  - cmd/server/main.go: Flag overrides and startup
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full server configuration.
type Config struct {
	// Port the HTTP server listens on.
	Port int

	// DBPath is the SQLite database file. ":memory:" for ephemeral.
	DBPath string

	// ScenarioDir holds demo fixture files. Empty disables loading.
	ScenarioDir string

	// RepairInterval is the period of the background linkage repair
	// scan. Zero disables the scheduler.
	RepairInterval time.Duration

	// Dev enables destructive endpoints (reset, scenario loading).
	Dev bool
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	// Missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	repairInterval, err := getEnvDuration("REPAIR_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:           getEnvInt("PORT", 8080),
		DBPath:         getEnvString("DATABASE_PATH", "points.db"),
		ScenarioDir:    getEnvString("SCENARIO_DIR", "fixtures"),
		RepairInterval: repairInterval,
		Dev:            getEnvBool("DEV_MODE", false),
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}
