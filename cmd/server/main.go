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

	"github.com/ikkim/annualreport-backend/config"
	"github.com/ikkim/annualreport-backend/internal/app/controller"
	"github.com/ikkim/annualreport-backend/internal/app/repository"
	"github.com/ikkim/annualreport-backend/internal/app/service"
	"github.com/ikkim/annualreport-backend/internal/db"
	"github.com/ikkim/annualreport-backend/internal/middleware"
	"github.com/ikkim/annualreport-backend/internal/router"
	"github.com/ikkim/annualreport-backend/internal/scheduler"
	"github.com/ikkim/annualreport-backend/internal/storage"
	ws "github.com/ikkim/annualreport-backend/internal/websocket"
	"github.com/ikkim/annualreport-backend/pkg/logger"
	"github.com/ikkim/annualreport-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := cfg.Server.LogLevel
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      cfg.Server.LogFormat,
		EnableColor: cfg.Server.Environment == "development",
		Service:     "annualreport-backend",
	})

	logger.Info("Starting annual report backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
		"time_zone":   cfg.Season.TimeZone,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(cfg.Admin); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Summary cache is optional; without Redis every read recomputes.
	var summaryCache service.SummaryCache
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, season summaries will not be cached", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			summaryCache = redis.NewCache(redis.GetClient())
			defer redis.Close()
		}
	}

	var exportStore service.ExportStore
	if cfg.S3.Enabled() {
		exportStore = storage.NewS3Storage(
			cfg.S3.Region,
			cfg.S3.Bucket,
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			cfg.S3.BaseURL,
			cfg.S3.PresignExpiry,
		)
	} else {
		logger.Info("S3 not configured, season exports will be streamed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub()
	go hub.Run(ctx)

	calendar, err := service.NewSeasonCalendar(cfg.Season, nil)
	if err != nil {
		logger.Fatal("Invalid season deadlines", err)
	}
	feed := service.NewChangeFeed(summaryCache, hub)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	clientRepo := repository.NewClientRepository(db.GetDB())
	reportRepo := repository.NewReportRepository(db.GetDB())
	historyRepo := repository.NewHistoryRepository(db.GetDB())
	scheduleRepo := repository.NewScheduleRepository(db.GetDB())
	stageRepo := repository.NewStageChangeRepository(db.GetDB())

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	clientService := service.NewClientService(clientRepo)
	reportService := service.NewReportService(reportRepo, historyRepo, clientRepo, calendar, feed, db.GetDB())
	workflowService := service.NewWorkflowService(reportRepo, historyRepo, scheduleRepo, stageRepo, calendar, feed, db.GetDB())
	seasonService := service.NewSeasonService(reportRepo, clientRepo, calendar, summaryCache, cfg.Season.SummaryTTL, feed, exportStore)

	seasonScheduler := scheduler.NewSeasonScheduler(seasonService, cfg.Season.RefreshCron, cfg.Season.TrackedYears, cfg.Season.Location())
	if err := seasonScheduler.Start(); err != nil {
		logger.Fatal("Failed to start season scheduler", err)
	}

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	clientController := controller.NewClientController(clientService)
	reportController := controller.NewReportController(reportService)
	workflowController := controller.NewWorkflowController(workflowService)
	seasonController := controller.NewSeasonController(seasonService)
	boardController := controller.NewBoardController(hub, cfg.CORS.AllowedOrigins)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	r := router.NewRouter(
		authController,
		clientController,
		reportController,
		workflowController,
		seasonController,
		boardController,
		authMiddleware,
		cfg,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	seasonScheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	cancel()

	logger.Info("Server stopped successfully")
}
