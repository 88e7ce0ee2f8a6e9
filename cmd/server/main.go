// Package main is the entry point for the hpn-symai-bridge server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hpn/hpn-symai-bridge/internal/adapter"
	"github.com/hpn/hpn-symai-bridge/internal/config"
	"github.com/hpn/hpn-symai-bridge/internal/domain"
	"github.com/hpn/hpn-symai-bridge/internal/handler"
	"github.com/hpn/hpn-symai-bridge/internal/manager"
	"github.com/hpn/hpn-symai-bridge/internal/security"
	"github.com/hpn/hpn-symai-bridge/internal/ui"
)

func main() {
	ui.PrintBanner()

	// =========================================================================
	// 1. Load configuration (Singleton)
	// =========================================================================
	cfg, err := config.GetConfig()
	if err != nil {
		ui.PrintFatal("failed to load configuration", err)
		os.Exit(1)
	}

	// =========================================================================
	// 2. Setup structured logger (redacting)
	// =========================================================================
	logger := setupLogger(os.Stdout, cfg.Logging)

	logger.Info("configuration loaded",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.String("engine", cfg.Engine.Type),
		slog.Bool("cache", cfg.Cache.Enabled),
	)

	// =========================================================================
	// 3. Build the engine
	// =========================================================================
	mgr := manager.New(
		manager.WithLogger(logger),
		manager.WithTimeout(cfg.Engine.Timeout()),
		manager.WithMaxTokens(cfg.Engine.MaxTokens),
		manager.WithProbe(cfg.Engine.Probe),
		manager.WithVerbose(cfg.Engine.Verbose),
		manager.WithReasoningTags(cfg.Engine.ReasoningOpenTag, cfg.Engine.ReasoningCloseTag),
		manager.WithReporter(printReport),
	)

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 2*adapter.ProbeTimeout)
	engine, err := mgr.Setup(setupCtx, cfg.EngineType(), cfg.Engine.ConfigFile)
	cancelSetup()
	if err != nil {
		ui.PrintFatal("failed to set up engine", err)
		os.Exit(1)
	}

	if cfg.Engine.Verbose {
		ui.PrintInfo("verbose mode: payloads and responses are logged at debug level")
	}

	// =========================================================================
	// 4. Setup Gin router with middleware
	// =========================================================================
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router, cache := newRouter(cfg, engine, logger, true)
	if cache != nil {
		defer cache.Close()
	}

	// =========================================================================
	// 5. Start HTTP server with graceful shutdown
	// =========================================================================
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("address", addr))
		ui.PrintStartupInfo(cfg.Server.Host, cfg.Server.Port, cfg.Cache.Enabled)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// =========================================================================
	// 6. Graceful shutdown on SIGTERM/SIGINT
	// =========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", slog.String("error", err.Error()))
		ui.PrintFatal("server error", err)
		return
	}

	ui.PrintShutdown()

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
		return
	}

	logger.Info("server stopped gracefully")
	ui.PrintGoodbye()
}

// newRouter wires middleware and routes around an engine.
// The returned cache is nil when caching is disabled; the caller closes it.
func newRouter(cfg *config.Configuration, engine adapter.Engine, logger *slog.Logger, console bool) (*gin.Engine, *handler.ResultCache) {
	router := gin.New()

	router.Use(handler.RecoveryMiddleware(logger))
	router.Use(handler.RequestIDMiddleware())
	router.Use(handler.CORSMiddleware())
	router.Use(handler.LoggingMiddleware(logger, console))

	handlerOpts := []handler.QueryHandlerOption{handler.WithLogger(logger)}

	var cache *handler.ResultCache
	if cfg.Cache.Enabled {
		cache = handler.NewResultCache(
			handler.WithCacheTTL(cfg.Cache.TTL()),
			handler.WithCacheLogger(logger),
		)
		router.Use(handler.CacheMiddleware(cache, logger, console))
		handlerOpts = append(handlerOpts, handler.WithResultCache(cache))
	}

	handler.NewQueryHandler(engine, handlerOpts...).Register(router)

	return router, cache
}

// setupLogger creates a structured logger that redacts credentials.
func setupLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var inner slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		inner = slog.NewTextHandler(w, opts)
	} else {
		inner = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(security.NewRedactingHandler(inner))

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// printReport renders the outcome of an engine setup on the console.
func printReport(r manager.Report) {
	ui.PrintEngineInfo(
		r.Variant.DisplayName,
		domain.CapabilityName,
		r.Settings.BaseURL,
		r.Settings.Model,
		security.MaskKey(r.Settings.APIKey),
	)
	if r.Probed {
		ui.PrintProbeResult(r.Variant.DisplayName, r.Models, r.ProbeErr)
	}
}
