// Package config loads process-wide defaults for the webreplay daemon and
// library callers, adapted from the same env/.env layering convention used
// throughout the wider codebase this module is drawn from.
package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds process-wide default values. cmd/webreplayd applies the
// logging fields and HTTPAddr; the browser launch and recorder/replayer
// fields are loaded and logged but are not passed into recorder or
// replayer options.
type Config struct {
	// Browser launch defaults
	ExecutablePath string
	Headless       bool
	WindowWidth    int
	WindowHeight   int

	// Recorder/replayer defaults
	NavigationTimeoutMS int
	BusyTimeoutMS       int
	VisualEffects       bool

	// Logging
	LogDir      string
	LogFilename string
	LogLevel    string

	// Daemon
	HTTPAddr string
}

// Load reads configuration from environment variables and an optional
// .env file in the working directory. Missing .env is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("config: no .env file loaded", "error", err)
	}

	cfg := &Config{
		ExecutablePath:      getEnvOrDefault("WEBREPLAY_EXECUTABLE_PATH", ""),
		Headless:            getEnvBoolOrDefault("WEBREPLAY_HEADLESS", false),
		WindowWidth:         getEnvIntOrDefault("WEBREPLAY_WINDOW_WIDTH", 1280),
		WindowHeight:        getEnvIntOrDefault("WEBREPLAY_WINDOW_HEIGHT", 800),
		NavigationTimeoutMS: getEnvIntOrDefault("WEBREPLAY_NAVIGATION_TIMEOUT_MS", 30_000),
		BusyTimeoutMS:       getEnvIntOrDefault("WEBREPLAY_BUSY_TIMEOUT_MS", 5*60*1000),
		VisualEffects:       getEnvBoolOrDefault("WEBREPLAY_VISUAL_EFFECTS", true),
		LogDir:              getEnvOrDefault("WEBREPLAY_LOG_DIR", "./logs"),
		LogFilename:         getEnvOrDefault("WEBREPLAY_LOG_FILENAME", "webreplayd.log"),
		LogLevel:            getEnvOrDefault("WEBREPLAY_LOG_LEVEL", "info"),
		HTTPAddr:            getEnvOrDefault("WEBREPLAY_HTTP_ADDR", ":8080"),
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
