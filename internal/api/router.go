package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storytree/storytree/internal/cache"
	"github.com/storytree/storytree/internal/db"
	"github.com/storytree/storytree/internal/scene"
	"github.com/storytree/storytree/pkg/logging"
)

// Router sets up API routes
type Router struct {
	service *scene.Service
	users   *db.UserRepository
	cache   *cache.Cache
	logger  *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(service *scene.Service, users *db.UserRepository, redisCache *cache.Cache) *Router {
	return &Router{
		service: service,
		users:   users,
		cache:   redisCache,
		logger:  logging.WithComponent("api-router"),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	engine.GET("/scene/:id", r.fetchScene)
	engine.POST("/scene/:id/rate", r.rateScene)
	engine.POST("/scene/:id/children", r.createScene)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "storytree-api",
	})
}
