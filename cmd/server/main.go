package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/drawbridge-app/drawbridge/internal/api"
	"github.com/drawbridge-app/drawbridge/internal/canvas"
	"github.com/drawbridge-app/drawbridge/internal/config"
	"github.com/drawbridge-app/drawbridge/internal/logging"
	"github.com/drawbridge-app/drawbridge/internal/ratelimit"
	"github.com/drawbridge-app/drawbridge/internal/registry"
	"github.com/drawbridge-app/drawbridge/internal/relay"
	"github.com/drawbridge-app/drawbridge/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Service: cfg.Logging.Service,
		Version: cfg.Logging.Version,
		Env:     cfg.Logging.Env,
		Backend: cfg.Logging.Backend,
		Debug:   cfg.Logging.Debug,
	})

	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}

	reg := registry.New()
	boards := canvas.NewCache()
	limiters := ratelimit.NewPool(cfg.Limits.MessagesPerSecond, cfg.Limits.Burst)

	hub := ws.NewHub(limiters)
	rel := relay.New(reg, boards, hub, cfg.Relay.Timeout())
	hub.Bind(rel)

	router := chi.NewRouter()
	router.Use(corsMiddleware)
	router.Get("/ws", hub.ServeWS)
	api.New(reg, hub).Register(router)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("🎨 drawbridge server starting", "addr", cfg.Server.Addr)
		slog.Info("Endpoints:")
		slog.Info("  - WebSocket: /ws")
		slog.Info("  - Health:    GET /health")
		slog.Info("  - Stats:     GET /api/stats")
		slog.Info("  - Rooms:     GET /api/rooms")
		slog.Info("  - Room:      GET /api/rooms/{id}")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
