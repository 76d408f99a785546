// Package main runs the background broadcast worker: it consumes queued
// broadcast jobs so long sends do not hold an HTTP request open.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/aura-workshop/backend/config"
	"github.com/aura-workshop/backend/internal/app"
	"github.com/aura-workshop/backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		app.NewLogger(false).Fatal("load config", zap.Error(err))
	}
	logger := app.NewLogger(cfg.Server.Debug)
	defer logger.Sync()

	ctx := context.Background()
	infra, err := app.OpenInfra(ctx, cfg, false, logger)
	if err != nil {
		logger.Fatal("infrastructure", zap.Error(err))
	}
	defer infra.Close()
	if infra.Queue == nil {
		logger.Fatal("worker requires Redis: set REDIS_ADDR")
	}

	bc := app.NewBroadcasting(cfg, infra, logger)
	processor := worker.NewBroadcastProcessor(bc.Service, infra.Queue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		processor.Run(workerCtx)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Run returns after the in-flight job settles.
	cancel()
	<-done
	logger.Info("worker stopped")
}
