package app

import (
	"context"
	"fmt"
	"time"

	"ping_backend/database"
	"ping_backend/internal/config"
	"ping_backend/internal/handlers"
	"ping_backend/internal/logger"
	"ping_backend/internal/middleware"
	"ping_backend/internal/repositories"
	"ping_backend/internal/routes"
	"ping_backend/internal/services"
	"ping_backend/internal/validator"
	"ping_backend/internal/workers"
	"ping_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Run boots the notification service: config, database, migrations, outbox
// worker, websocket hub and the HTTP server. Blocks until the server exits.
func Run() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.Server.Env)
	logger.Info("logger initialized", "env", cfg.Server.Env)

	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("database unavailable", "error", err)
	}
	logger.Info("database connected")

	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("migration failed", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	router := SetupRouter(ctx, cfg, gormDB)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server starting", "address", address)
	if err := router.Run(address); err != nil {
		logger.Fatal("server startup error", "error", err)
	}
}

// SetupRouter assembles the full dependency graph and returns the gin
// engine. The outbox worker and websocket hub run on goroutines tied to ctx.
func SetupRouter(ctx context.Context, cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	notificationRepo := repositories.NewNotificationRepository(gormDB)
	outboxRepo := repositories.NewOutboxRepository(gormDB)
	membershipRepo := repositories.NewMembershipRepository(gormDB)
	preferenceRepo := repositories.NewPreferenceRepository(gormDB)

	wsManager := ws.NewManager()
	go wsManager.Run(ctx)

	notificationService := services.NewNotificationService(notificationRepo, wsManager)
	resolver := services.NewRecipientResolver(membershipRepo, membershipRepo, membershipRepo, preferenceRepo)

	worker := workers.NewOutboxWorker(outboxRepo, notificationRepo, resolver, notificationService, workers.OutboxWorkerOptions{
		Interval:       cfg.WorkerInterval(),
		BatchSize:      cfg.Notifications.BatchSize,
		ResolveTimeout: cfg.ResolveTimeout(),
		MaxAttempts:    cfg.Notifications.MaxAttempts,
		Retention:      time.Duration(cfg.Notifications.RetentionDays) * 24 * time.Hour,
	})
	go worker.Run(ctx)

	baseHandler := handlers.NewBaseHandler(validator.New())
	notificationHandler := handlers.NewNotificationHandler(baseHandler, notificationService)
	wsHandler := ws.NewHandler(wsManager, notificationService)

	router := initializeGinRouter(cfg)
	routes.RegisterRoutes(router, notificationHandler, wsHandler)
	return router
}

func initializeGinRouter(cfg *config.Config) *gin.Engine {
	if cfg.Server.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	return router
}
