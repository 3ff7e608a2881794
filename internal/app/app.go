package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"seatpool_backend/database"
	"seatpool_backend/internal/config"
	"seatpool_backend/internal/handlers"
	"seatpool_backend/internal/logger"
	"seatpool_backend/internal/middleware"
	"seatpool_backend/internal/routes"
	"seatpool_backend/internal/services"
	"seatpool_backend/internal/services/dto"
	"seatpool_backend/internal/validator"
	"seatpool_backend/internal/workers"
	"seatpool_backend/pkg/apperrors"
)

// Bootstrap загружает конфиг, поднимает логгер и подключается к базе
func Bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	config.AppConfig = cfg

	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)
	apperrors.SetDebug(!cfg.IsProduction())

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database unavailable: %w", err)
	}
	logger.Info("Database connected")
	return cfg, db, nil
}

// Serve запускает HTTP-сервер и синхронизатор до отмены ctx
func Serve(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	container := initializeServices(cfg)
	router := SetupRouter(cfg, db, container)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(fmt.Sprintf("🚀 Server starting on %s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server startup error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		logger.Info("Shutting down server...")
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Sync.Enabled {
		worker := workers.NewStatusSyncWorker(db, container.StatusSyncService, cfg.Sync.Schedule, time.Minute)
		g.Go(func() error {
			return worker.Run(gctx)
		})
	} else {
		logger.Warn("Status sync worker disabled by config")
	}

	return g.Wait()
}

// Migrate создает или обновляет таблицы
func Migrate(db *gorm.DB) error {
	logger.Info("Running migrations...")
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	logger.Info("Migrations completed")
	return nil
}

// Sweep - один проход синхронизатора вне сервера
func Sweep(ctx context.Context, cfg *config.Config, db *gorm.DB) (*dto.SweepResult, error) {
	return initializeServices(cfg).StatusSyncService.RunSweep(ctx, db)
}

// SetupRouter собирает gin.Engine со всеми маршрутами
func SetupRouter(cfg *config.Config, db *gorm.DB, container *services.ServiceContainer) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	appHandlers := handlers.NewAppHandlers(container, validator.New())
	ginRouter := initializeGinRouter(db)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	routes.RegisterRoutes(ginRouter, appHandlers, metricsPath)
	return ginRouter
}

func initializeServices(cfg *config.Config) *services.ServiceContainer {
	return services.NewServiceContainer(services.NewRepositories(), nil, cfg.Sync.MarkRenewalOverdue)
}

func initializeGinRouter(db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}
