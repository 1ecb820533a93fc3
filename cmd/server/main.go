// Package main is the entrypoint for the image labelling pipeline API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/customsubash/image-labelling-pipeline/internal/api"
	"github.com/customsubash/image-labelling-pipeline/internal/api/handler"
	mw "github.com/customsubash/image-labelling-pipeline/internal/api/middleware"
	"github.com/customsubash/image-labelling-pipeline/internal/api/response"
	"github.com/customsubash/image-labelling-pipeline/internal/batch"
	"github.com/customsubash/image-labelling-pipeline/internal/cache"
	"github.com/customsubash/image-labelling-pipeline/internal/config"
	"github.com/customsubash/image-labelling-pipeline/internal/detect"
	"github.com/customsubash/image-labelling-pipeline/internal/logger"
	"github.com/customsubash/image-labelling-pipeline/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		bootstrap, _ := zap.NewProduction()
		bootstrap.Error("server failed", zap.Error(err))
		_ = bootstrap.Sync()
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()
	log.Info("config loaded",
		zap.String("detector_provider", cfg.Detector.Provider),
		zap.String("env", cfg.Server.Env),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Create detector and class mapping
	detector, err := detect.NewDetector(cfg.Detector)
	if err != nil {
		return fmt.Errorf("create detector: %w", err)
	}
	classes, err := detect.LoadClassMap(cfg.Detector.ClassMappingPath)
	if err != nil {
		return fmt.Errorf("load class mapping: %w", err)
	}
	log.Info("detector initialized",
		zap.String("detector", detector.Name()),
		zap.Int("classes", len(classes)),
	)

	// 3. Job store, executor and service
	jobStore := store.NewMemoryStore()
	executor := batch.NewExecutor(jobStore, detector, classes, cfg.Batch.ImageWorkers, log)
	svc := batch.NewService(jobStore, executor, cfg.Batch.MaxConcurrentJobs, log)

	// 4. Rate limiting: Redis when configured, in-process otherwise
	var (
		limiter cache.Limiter
		rc      cache.Cache
	)
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		log.Info("redis connected")
		rc = redisCache
		limiter = cache.NewWindowLimiter(redisCache, cfg.Auth.RequestsPerMin)
	} else {
		limiter = cache.NewLocalLimiter(cfg.Auth.RequestsPerMin)
	}

	// 5. Build router with dependencies
	auth := mw.NewAuth(cfg.Auth.APIKeyHashes)
	if !auth.Enabled() {
		log.Warn("no API key hashes configured, job routes are unauthenticated")
	}

	router := api.NewRouter(api.Dependencies{
		Logger:    log,
		Auth:      auth,
		RateLimit: mw.NewRateLimit(limiter, log),

		HealthHandler:  healthHandler(jobStore, rc, detector.Name()),
		MetricsHandler: promhttp.Handler(),
		SubmitHandler:  handler.NewSubmitHandler(svc),
		StatusHandler:  handler.NewStatusHandler(svc),
		ListHandler:    handler.NewListHandler(svc),
		PredictHandler: handler.NewPredictHandler(svc, cfg.Server.MaxUploadBytes),
	})

	// 6. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.Detector.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := svc.Wait(shutdownCtx); err != nil {
		log.Warn("batch jobs still running at shutdown", zap.Error(err))
	}

	log.Info("server stopped gracefully")
	return nil
}

// healthHandler reports liveness plus store and cache connectivity. A nil cache
// means Redis is not configured.
func healthHandler(s store.Store, c cache.Cache, detectorName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"store":    "ok",
			"cache":    "disabled",
			"detector": detectorName,
		}

		degraded := false
		if err := s.Ping(r.Context()); err != nil {
			checks["store"] = "degraded"
			degraded = true
		}
		if c != nil {
			checks["cache"] = "ok"
			if err := c.Ping(r.Context()); err != nil {
				checks["cache"] = "degraded"
				degraded = true
			}
		}

		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"message":  "API is up and running.",
			"services": checks,
		})
	}
}
