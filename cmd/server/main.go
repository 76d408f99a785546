// Package main runs the workshop registration HTTP server with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-workshop/backend/config"
	"github.com/aura-workshop/backend/internal/app"
	"github.com/aura-workshop/backend/internal/auth"
	"github.com/aura-workshop/backend/internal/broadcast"
	"github.com/aura-workshop/backend/internal/broadcastlogs"
	"github.com/aura-workshop/backend/internal/dashboard"
	"github.com/aura-workshop/backend/internal/middleware"
	"github.com/aura-workshop/backend/internal/registrants"
	"github.com/aura-workshop/backend/internal/settings"
	"github.com/aura-workshop/backend/internal/worker"
	"github.com/aura-workshop/backend/pkg/response"
	"github.com/aura-workshop/backend/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		app.NewLogger(false).Fatal("load config", zap.Error(err))
	}
	logger := app.NewLogger(cfg.Server.Debug)
	defer logger.Sync()
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	infra, err := app.OpenInfra(ctx, cfg, true, logger)
	if err != nil {
		logger.Fatal("infrastructure", zap.Error(err))
	}
	defer infra.Close()

	var s3Client *storage.S3
	if cfg.AWS.S3Enabled() {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			AssetsBucket:         cfg.AWS.AssetsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	authRepo := auth.NewRepository(infra.Pool)
	if err := auth.EnsureAdmin(ctx, authRepo, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.FullName, logger); err != nil {
		logger.Fatal("admin bootstrap", zap.Error(err))
	}
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Broadcast pipeline
	bc := app.NewBroadcasting(cfg, infra, logger)

	var exports registrants.ExportStorage
	var banners settings.BannerStorage
	if s3Client != nil {
		exports, banners = s3Client, s3Client
	}
	registrantHandler := registrants.NewHandler(bc.Registrants, exports, logger)
	settingsHandler := settings.NewHandler(bc.Settings, banners, logger)
	logsHandler := broadcastlogs.NewHandler(bc.Logs)
	overviewHandler := dashboard.NewHandler(bc.Registrants, bc.Logs, bc.Service, logger)

	var enqueuer broadcast.Enqueuer
	if infra.Queue != nil {
		enqueuer = infra.Queue
	}
	broadcastHandler := broadcast.NewHandler(bc.Service, enqueuer, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger, "/health"))

	// Health
	router.GET("/health", func(c *gin.Context) {
		if err := infra.Pool.Ping(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	// Public
	router.POST("/register", registrantHandler.Register)
	router.GET("/workshop", settingsHandler.PublicWorkshop)
	router.POST("/auth/login", authHandler.Login)

	// Admin (JWT + admin role)
	admin := router.Group("/admin")
	admin.Use(middleware.JWT(jwtService), middleware.RequireAdmin())
	{
		admin.GET("/overview", overviewHandler.Get)

		admin.GET("/registrants", registrantHandler.List)
		admin.GET("/registrants/export", registrantHandler.ExportCSV)
		admin.POST("/registrants/export", registrantHandler.ExportToS3)
		admin.GET("/registrants/:id", registrantHandler.Get)
		admin.PATCH("/registrants/:id", registrantHandler.Update)
		admin.DELETE("/registrants/:id", registrantHandler.Delete)

		admin.GET("/settings/workshop", settingsHandler.GetWorkshop)
		admin.PUT("/settings/workshop", settingsHandler.PutWorkshop)
		admin.POST("/settings/workshop/banner", settingsHandler.BannerUploadURL)
		admin.GET("/settings/email", settingsHandler.GetEmail)
		admin.PUT("/settings/email", settingsHandler.PutEmail)
		admin.GET("/settings/whatsapp", settingsHandler.GetWhatsApp)
		admin.PUT("/settings/whatsapp", settingsHandler.PutWhatsApp)

		admin.GET("/broadcasts", logsHandler.List)
		admin.POST("/broadcasts/:channel", broadcastHandler.Send)
		admin.GET("/broadcasts/:channel/preview", broadcastHandler.Preview)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Optional in-process queue consumer
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	if cfg.Broadcast.WorkerInProcess && infra.Queue != nil {
		processor := worker.NewBroadcastProcessor(bc.Service, infra.Queue, logger)
		go func() {
			defer close(workerDone)
			processor.Run(workerCtx)
		}()
		logger.Info("broadcast worker started in-process")
	} else {
		close(workerDone)
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	workerCancel()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn("broadcast worker did not stop before shutdown timeout")
	}
	logger.Info("server stopped")
}
