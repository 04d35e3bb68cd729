package main

import (
	"io"
	"net/http"

	tuberd "github.com/gsmecher/tuberd"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gsmecher/tuberd/internal/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newRouter(h *tuberd.Handler, cfg tuberd.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)
	r.Use(corsMiddleware(cfg.CORSOrigins...))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
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
		headers := map[string]string{
			"Content-Type":    r.Header.Get("Content-Type"),
			"Accept":          r.Header.Get("Accept"),
			"X-Tuber-Options": r.Header.Get("X-Tuber-Options"),
		}
		mediaType, data := h.Handle(r.Context(), body, headers)
		w.Header().Set("Content-Type", mediaType)
		_, _ = w.Write(data)
	})

	if cfg.WebRoot != "" {
		fs := http.FileServer(http.Dir(cfg.WebRoot))
		r.Handle("/*", fs)
	}

	return r
}
