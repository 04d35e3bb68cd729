package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tuberd "github.com/gsmecher/tuberd"
	"github.com/gsmecher/tuberd/internal/calllog"
	"github.com/gsmecher/tuberd/internal/logging"
	"github.com/gsmecher/tuberd/internal/registry"
	"github.com/gsmecher/tuberd/internal/version"
)

func main() {
	cfg := tuberd.DefaultConfig()
	if cfgPath := os.Getenv("TUBER_CONFIG"); cfgPath != "" {
		loaded, err := tuberd.LoadConfig(cfgPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}
	if err := tuberd.ValidateConfig(cfg); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	reg := registry.New()
	registerDemoObjects(reg)

	handler, err := tuberd.NewHandler(cfg, reg)
	if err != nil {
		log.Fatalf("Failed to build handler: %v", err)
	}

	if cfg.CallLogDSN != "" {
		writer, err := openCallLog(cfg.CallLogDSN)
		if err != nil {
			log.Fatalf("Failed to open call log: %v", err)
		}
		handler.CallLog = writer
		defer writer.Close()
	}

	r := newRouter(handler, cfg)

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logging.Logger.Info("tuberd: shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Logger.Error("tuberd: shutdown error", "error", err)
		}
	}()

	logging.Logger.Info("tuberd: listening", "addr", cfg.Listen, "version", version.Short(), "objects", reg.Names())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stop()
		log.Fatalf("Server error: %v", err)
	}
	logging.Logger.Info("tuberd: stopped")
}

func openCallLog(dsn string) (*calllog.SQLWriter, error) {
	if after, ok := cut(dsn, "sqlite:"); ok {
		return calllog.NewSQLiteWriter(after)
	}
	return calllog.NewPostgresWriter(dsn)
}

func cut(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):], true
	}
	return "", false
}
