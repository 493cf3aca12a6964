package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/sagip-ph/evaq-engine/app/kvstore"
	appLogger "github.com/sagip-ph/evaq-engine/app/logger"
	"github.com/sagip-ph/evaq-engine/app/observability/metrics"
	"github.com/sagip-ph/evaq-engine/app/tracer"
	"github.com/sagip-ph/evaq-engine/config"
	"github.com/sagip-ph/evaq-engine/internal/api/catalog"
	"github.com/sagip-ph/evaq-engine/internal/api/geolocate"
	"github.com/sagip-ph/evaq-engine/internal/api/routeplan"
	"github.com/sagip-ph/evaq-engine/internal/api/search"
	"github.com/sagip-ph/evaq-engine/internal/api/userstate"
	"github.com/sagip-ph/evaq-engine/internal/router"
	"github.com/sagip-ph/evaq-engine/internal/types"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails.
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracer.InitTracingAndMetrics(cfg.Handlers.Prometheus.Port)
	metrics.InitAppMetrics()

	// --- Catalog ---
	catalogRepo, err := catalog.NewRepositoryFromFile(cfg.Dataset.Path, logger)
	if err != nil {
		logger.Error("Failed to load catalog", slog.Any("error", err))
		os.Exit(1)
	}

	// --- User State Store ---
	store, err := kvstore.Open(cfg.Store.Path, logger)
	if err != nil {
		logger.Error("Failed to open user state store", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	stateRepo := userstate.NewRepository(store, logger)
	stateService, err := userstate.NewServiceImpl(ctx, stateRepo, catalogRepo, logger)
	if err != nil {
		logger.Error("Failed to restore user state", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Engine wiring ---
	catalogService := catalog.NewServiceImpl(catalogRepo, logger)
	catalogHandler := catalog.NewHandler(catalogService, logger)

	debounce := time.Duration(cfg.Engine.DebounceMs) * time.Millisecond
	searchService := search.NewServiceImpl(catalogRepo, stateService, debounce, cfg.Engine.ResultTTL, logger)
	searchHandler := search.NewHandler(searchService, logger)

	// Position updates re-annotate the catalog snapshot.
	stateService.OnPositionChange(searchService.OnPositionChanged)

	stateHandler := userstate.NewHandler(stateService, logger)

	routeService := routeplan.NewServiceImpl(searchService, stateService, logger)
	routeHandler := routeplan.NewHandler(routeService, stateService, logger)

	provider := geolocate.StaticProvider{
		Position: types.Position{Lat: cfg.Geolocate.StaticLat, Lon: cfg.Geolocate.StaticLon},
	}
	geoTimeout := time.Duration(cfg.Geolocate.TimeoutSeconds) * time.Second
	geoService := geolocate.NewServiceImpl(provider, geoTimeout, logger)
	geoHandler := geolocate.NewHandler(geoService, stateService, logger)

	// --- Router Setup ---
	mainRouter := router.SetupRouter(&router.Config{
		CatalogHandler:   catalogHandler,
		SearchHandler:    searchHandler,
		UserStateHandler: stateHandler,
		RoutePlanHandler: routeHandler,
		GeolocateHandler: geoHandler,
	})

	r := chi.NewMux()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5, "application/json"))
	r.Mount("/", mainRouter)

	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" {
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
