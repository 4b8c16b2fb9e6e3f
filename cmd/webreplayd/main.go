// Command webreplayd is the HTTP control-plane daemon: it manages named
// Recorder/Replayer sessions over the routes in internal/httpapi,
// mirroring the way the wider codebase this module is drawn from wraps
// its own CDP core behind a small daemon binary.
package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/webreplay/internal/config"
	"github.com/dgnsrekt/webreplay/internal/httpapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load webreplayd config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogDir, cfg.LogFilename); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("webreplayd config loaded",
		"http_addr", cfg.HTTPAddr,
		"headless", cfg.Headless,
		"navigation_timeout_ms", cfg.NavigationTimeoutMS,
		"busy_timeout_ms", cfg.BusyTimeoutMS,
		"visual_effects", cfg.VisualEffects,
		"log_level", cfg.LogLevel,
	)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: httpapi.NewServer()}

	go func() {
		slog.Info("webreplayd listening", "addr", cfg.HTTPAddr, "docs", "http://"+cfg.HTTPAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("webreplayd server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("webreplayd shutdown failed", "error", err)
	}
}

func setupLogger(level, dir, filename string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filepath.Join(dir, filename),
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
