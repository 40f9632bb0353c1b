// Altar reading plan server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/altar-plans/internal/api"
	"github.com/ashureev/altar-plans/internal/config"
	"github.com/ashureev/altar-plans/internal/feed"
	"github.com/ashureev/altar-plans/internal/healthcheck"
	"github.com/ashureev/altar-plans/internal/identity"
	"github.com/ashureev/altar-plans/internal/middleware"
	"github.com/ashureev/altar-plans/internal/plans"
	"github.com/ashureev/altar-plans/internal/progress"
	"github.com/ashureev/altar-plans/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "progress_store", cfg.ProgressStore)

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	static := plans.BuiltIn()
	if cfg.PlansFile != "" {
		filePlans, err := plans.LoadFile(cfg.PlansFile)
		if err != nil {
			slog.Error("Failed to load plans file", "path", cfg.PlansFile, "error", err)
			os.Exit(1)
		}
		static = append(static, filePlans...)
		slog.Info("Plans file loaded", "path", cfg.PlansFile, "plans", len(filePlans))
	}
	catalog, err := plans.NewCatalog(static, repo)
	if err != nil {
		slog.Error("Failed to build plan catalog", "error", err)
		os.Exit(1)
	}

	opener := progressOpener(cfg, repo, logger)

	var hub *feed.Hub
	var publisher api.Publisher
	if cfg.FeedEnabled {
		hub = feed.NewHub(logger)
		publisher = hub
	}

	// Initialize handlers.
	planHandler := api.NewHandler(repo, catalog, opener, publisher, cfg.ProgressStore)
	healthHandler := api.NewHealthHandler(repo)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// Everything else runs under an anonymous device identity.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		planHandler.RegisterRoutes(r)
		if hub != nil {
			r.Get("/ws/progress", feed.NewHandler(hub, originPatterns(cfg.CORSOrigins)).ServeHTTP)
		}
	})

	// Create server.
	// The progress feed holds connections open, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.GRPCHealthPort != "" {
		hs := healthcheck.New(repo, cfg.HealthProbeInterval, logger)
		go func() {
			if err := hs.ListenAndServe(ctx, ":"+cfg.GRPCHealthPort); err != nil {
				slog.Error("gRPC health server failed", "error", err)
			}
		}()
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// progressOpener selects the progress backend named in configuration.
func progressOpener(cfg *config.Config, repo progress.Repository, logger *slog.Logger) progress.Opener {
	if cfg.ProgressStore == config.StoreLocal {
		local := progress.NewLocal(cfg.LocalStoreDir, logger)
		if !local.Available() {
			slog.Warn("Local progress directory unavailable, progress will not persist", "dir", cfg.LocalStoreDir)
		}
		return local
	}
	return progress.NewRemote(repo)
}

// originPatterns converts allowed CORS origins to WebSocket host patterns.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			out = append(out, "*")
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
		}
	}
	return out
}
