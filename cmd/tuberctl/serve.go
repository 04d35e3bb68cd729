package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tuberd "github.com/gsmecher/tuberd"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gsmecher/tuberd/internal/logging"
	"github.com/gsmecher/tuberd/internal/registry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a tuberd server against an empty registry (for smoke-testing a config)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := tuberd.DefaultConfig()
			if configPath != "" {
				loaded, err := tuberd.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = *loaded
			}
			if err := tuberd.ValidateConfig(cfg); err != nil {
				return err
			}
			logging.Setup(cfg.LogLevel, cfg.LogFormat)

			reg := registry.New()
			handler, err := tuberd.NewHandler(cfg, reg)
			if err != nil {
				return err
			}

			return runServer(cmd.Context(), cfg, handler)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a tuberd config file (JSON or YAML)")
	return cmd
}

func runServer(ctx context.Context, cfg tuberd.Config, handler *tuberd.Handler) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/tuber", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mediaType, data := handler.Handle(r.Context(), body, map[string]string{
			"Content-Type":    r.Header.Get("Content-Type"),
			"Accept":          r.Header.Get("Accept"),
			"X-Tuber-Options": r.Header.Get("X-Tuber-Options"),
		})
		w.Header().Set("Content-Type", mediaType)
		_, _ = w.Write(data)
	})

	srv := &http.Server{Addr: cfg.Listen, Handler: r}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("tuberctl serve: listening on %s\n", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
