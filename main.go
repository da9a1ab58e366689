package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/vote-portal/login-approval-service/config"
	"github.com/vote-portal/login-approval-service/consumer"
	"github.com/vote-portal/login-approval-service/handlers"
	"github.com/vote-portal/login-approval-service/models"
	"github.com/vote-portal/login-approval-service/realtime"
	"github.com/vote-portal/login-approval-service/redis"
	"github.com/vote-portal/login-approval-service/services"
	"github.com/vote-portal/login-approval-service/utils"

	"github.com/google/uuid"
)

const serviceName = "login-approval-service"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, relying on environment variables")
	}

	cfg, err := config.LoadAppConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	platforms, err := config.LoadPlatforms(os.Getenv("PLATFORM_CONFIG_PATH"))
	if err != nil {
		slog.Error("Failed to load platform configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("Platform configuration loaded", "platforms", platforms.Platforms)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(&models.LoginRequest{}, &models.AuditLogEntry{}); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connection established")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := realtime.NewHub()
	origin := instanceOrigin()

	// Redis is optional: without it events are delivered to local
	// subscribers only, which is correct for a single-instance deployment.
	var redisClient *redis.Client
	var publisher realtime.StreamPublisher
	if cfg.RedisAddr != "" {
		client, err := redis.NewClient(&redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			slog.Warn("Redis unavailable, events will only reach local subscribers", "error", err)
		} else {
			defer client.Close()
			redisClient = client
			publisher = client

			streamConsumer, err := consumer.NewStreamConsumer(client, hub, origin)
			if err != nil {
				slog.Error("Failed to create stream consumer", "error", err)
				os.Exit(1)
			}
			go streamConsumer.Start(ctx)
			slog.Info("Redis stream bridge enabled", "origin", origin)
		}
	}

	bridge := realtime.NewBridge(hub, publisher, origin)

	auditService := services.NewAuditService(db, bridge)
	loginService := services.NewLoginService(db, platforms, auditService, bridge, cfg.PendingExpiry)

	sweeper := services.NewExpirySweeper(loginService, cfg.SweepInterval)
	go sweeper.Start(ctx)

	loginHandler := handlers.NewLoginHandler(loginService, auditService)
	auditHandler := handlers.NewAuditHandler(auditService)
	eventsHandler := handlers.NewEventsHandler(hub, cfg.AdminKey)

	var redisHealth handlers.RedisHealthChecker
	if redisClient != nil {
		redisHealth = redisClient
	}
	healthHandler := handlers.NewHealthHandler(serviceName, redisHealth)

	router := handlers.NewRouter(loginHandler, auditHandler, eventsHandler, healthHandler, cfg.AdminKey)
	mux := http.NewServeMux()
	router.RegisterRoutes(mux)

	serverConfig := utils.DefaultServerConfig()
	serverConfig.Port = cfg.Port
	server := utils.CreateServer(serverConfig, router.ApplyCORS(mux))

	if err := utils.StartServerWithGracefulShutdown(server, serviceName); err != nil {
		os.Exit(1)
	}
}

// instanceOrigin derives a stable-enough identity for this process so
// stream events can be tagged with their publisher.
func instanceOrigin() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host + "-" + uuid.NewString()[:8]
	}
	return "instance-" + uuid.NewString()[:8]
}
