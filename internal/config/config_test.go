package config

import (
	"os"
	"testing"
)

func TestLoadAppliesDefaultsWhenUnset(t *testing.T) {
	os.Unsetenv("WEBREPLAY_WINDOW_WIDTH")
	os.Unsetenv("WEBREPLAY_HEADLESS")
	os.Unsetenv("WEBREPLAY_BUSY_TIMEOUT_MS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WindowWidth != 1280 {
		t.Fatalf("WindowWidth = %d, want 1280", cfg.WindowWidth)
	}
	if cfg.Headless {
		t.Fatalf("Headless = true, want false by default")
	}
	if cfg.BusyTimeoutMS != 300_000 {
		t.Fatalf("BusyTimeoutMS = %d, want 300000", cfg.BusyTimeoutMS)
	}
}

func TestLoadHonoursEnvOverrides(t *testing.T) {
	os.Setenv("WEBREPLAY_WINDOW_WIDTH", "1920")
	defer os.Unsetenv("WEBREPLAY_WINDOW_WIDTH")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WindowWidth != 1920 {
		t.Fatalf("WindowWidth = %d, want 1920", cfg.WindowWidth)
	}
}

func TestGetEnvBoolOrDefaultIgnoresInvalidValue(t *testing.T) {
	os.Setenv("WEBREPLAY_HEADLESS", "not-a-bool")
	defer os.Unsetenv("WEBREPLAY_HEADLESS")

	got := getEnvBoolOrDefault("WEBREPLAY_HEADLESS", true)
	if !got {
		t.Fatalf("got false, want fallback true for invalid bool")
	}
}
