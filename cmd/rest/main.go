package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"portfolio-agent-be/internal/bootstrap"
	"portfolio-agent-be/internal/config"
	"portfolio-agent-be/internal/pkg/logger"
	"portfolio-agent-be/internal/server"
	"portfolio-agent-be/internal/tracer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer func() { _ = sysLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(ctx, cfg.Tracing, sysLogger)
	defer func() { _ = shutdownTracer(context.Background()) }()

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(ctx, cfg, sysLogger)
	if err != nil {
		sysLogger.Error("BOOT", "Failed to build container", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer func() { _ = container.Close() }()

	// 4. Start Background Services
	if err := container.ConsumerService.Consume(ctx); err != nil {
		sysLogger.Error("BOOT", "Failed to start usage consumer", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			sysLogger.Error("HTTP", "Server stopped", map[string]interface{}{
				"error": err.Error(),
			})
		}
	case <-ctx.Done():
		sysLogger.Info("HTTP", "Shutting down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sysLogger.Error("HTTP", "Graceful shutdown failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
