package config

import (
	"os"
	"strconv"
)

// Settings holds the process-level runtime configuration, read from
// environment variables (a .env file is loaded by the cmd entrypoint).
type Settings struct {
	// Terminal bridge
	BridgeURL   string
	BridgeWSURL string // empty disables the bar-close push feed

	// Mode
	DryRun bool // paper execution against live market data
	Strict bool // execution errors terminate the session
	Debug  bool

	// Session loop tuning
	WarmupBars     int // bar history depth loaded before trading
	PollIntervalMs int // latest-bar poll cadence without a push feed

	// Database
	DatabasePath string // sqlite path or postgres:// DSN; empty disables
}

// LoadSettings reads runtime settings from the environment.
func LoadSettings() *Settings {
	return &Settings{
		BridgeURL:    getEnv("BRIDGE_URL", "http://127.0.0.1:8787"),
		BridgeWSURL:  os.Getenv("BRIDGE_WS_URL"),
		DryRun:         getEnvBool("DRY_RUN", true),
		Strict:         getEnvBool("STRICT_MODE", false),
		Debug:          getEnvBool("DEBUG", false),
		WarmupBars:     getEnvInt("WARMUP_BARS", 280),
		PollIntervalMs: getEnvInt("POLL_INTERVAL_MS", 750),
		DatabasePath:   getEnv("DATABASE_PATH", "data/deploybot.db"),
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
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
