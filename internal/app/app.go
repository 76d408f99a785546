// Package app wires the infrastructure and broadcast pipeline shared by the
// API server and the standalone worker.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-workshop/backend/config"
	"github.com/aura-workshop/backend/internal/broadcast"
	"github.com/aura-workshop/backend/internal/broadcastlogs"
	"github.com/aura-workshop/backend/internal/registrants"
	"github.com/aura-workshop/backend/internal/settings"
	"github.com/aura-workshop/backend/internal/transport/emailjs"
	"github.com/aura-workshop/backend/internal/transport/ses"
	"github.com/aura-workshop/backend/internal/transport/whatsapp"
	"github.com/aura-workshop/backend/pkg/database"
	"github.com/aura-workshop/backend/pkg/distlock"
	"github.com/aura-workshop/backend/pkg/queue"
	"github.com/aura-workshop/backend/pkg/redis"
)

// Infra holds the long-lived connections. Redis and Queue are nil when
// REDIS_ADDR is blank.
type Infra struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
	Queue *queue.Queue

	logger *zap.Logger
}

// Close releases every connection.
func (i *Infra) Close() {
	if err := i.Redis.Close(); err != nil {
		i.logger.Warn("redis close", zap.Error(err))
	}
	if i.Pool != nil {
		i.Pool.Close()
	}
}

// OpenInfra connects to PostgreSQL (and Redis when configured). migrate
// applies the embedded schema first.
func OpenInfra(ctx context.Context, cfg *config.Config, migrate bool, logger *zap.Logger) (*Infra, error) {
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if migrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	infra := &Infra{Pool: pool, Redis: rdb, logger: logger}
	if rdb != nil {
		infra.Queue = queue.NewQueue(rdb.Client, logger)
	}
	return infra, nil
}

// Broadcasting is the assembled broadcast pipeline.
type Broadcasting struct {
	Service     *broadcast.Service
	Logs        *broadcastlogs.Repository
	Settings    *settings.Repository
	Registrants *registrants.Repository
}

// NewBroadcasting builds the transports, orchestrator and service.
func NewBroadcasting(cfg *config.Config, infra *Infra, logger *zap.Logger) *Broadcasting {
	logsRepo := broadcastlogs.NewRepository(infra.Pool)
	settingsRepo := settings.NewRepository(infra.Pool)
	registrantRepo := registrants.NewRepository(infra.Pool)

	transports := []broadcast.Transport{
		emailjs.New(cfg.EmailJS.BaseURL, cfg.EmailJS.Timeout, logger),
		ses.New(logger),
		whatsapp.New(whatsapp.Options{
			BaseURL:       cfg.WhatsApp.APIBaseURL,
			APIVersion:    cfg.WhatsApp.APIVersion,
			RatePerSecond: cfg.WhatsApp.RatePerSecond,
			Timeout:       cfg.WhatsApp.Timeout,
		}, logger),
	}
	orch := broadcast.NewOrchestrator(logsRepo, logger, transports, broadcast.WithMaxParallel(cfg.Broadcast.MaxParallel))
	locks := distlock.NewFactory(infra.Redis.Raw(), infra.Pool, cfg.Broadcast.LockTTL)
	svc := broadcast.NewService(orch, settingsRepo, registrantRepo, locks, logger)

	return &Broadcasting{Service: svc, Logs: logsRepo, Settings: settingsRepo, Registrants: registrantRepo}
}

// NewLogger builds the production zap logger; debug lowers the level.
func NewLogger(debug bool) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, _ := config.Build()
	return logger
}
