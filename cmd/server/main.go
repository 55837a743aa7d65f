package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storytree/storytree/internal/api"
	rediscache "github.com/storytree/storytree/internal/cache"
	"github.com/storytree/storytree/internal/db"
	"github.com/storytree/storytree/internal/media"
	"github.com/storytree/storytree/internal/scene"
	"github.com/storytree/storytree/internal/tree"
	"github.com/storytree/storytree/pkg/config"
	"github.com/storytree/storytree/pkg/logging"
	"github.com/storytree/storytree/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Storytree API Server")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Connect to the database
	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.Fatal("Failed to migrate schema", zap.Error(err))
	}

	repo := db.NewRepository(database.DB)
	scenes := db.NewSceneRepository(repo)
	ratings := db.NewRatingRepository(repo)
	users := db.NewUserRepository(repo)

	// Build the relation cache; serving anything before this
	// completes would answer from an empty tree
	relations := tree.New()
	buildCtx, cancelBuild := context.WithTimeout(context.Background(), 60*time.Second)
	if err := relations.Build(buildCtx, scenes); err != nil {
		cancelBuild()
		logger.Fatal("Failed to build relation cache", zap.Error(err))
	}
	cancelBuild()

	// Optional Redis cache for anonymous scene views
	redisCache, err := rediscache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	tenor, err := media.New(&cfg.Media)
	if err != nil {
		logger.Fatal("Failed to initialize media client", zap.Error(err))
	}

	service := scene.NewService(relations, scenes, ratings, tenor, &cfg.Voting)

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	apiRouter := api.NewRouter(service, users, redisCache)
	apiRouter.SetupRoutes(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	// Let optimistic vote writes reach storage before exit
	service.Drain()

	logger.Info("Server exited")
}
