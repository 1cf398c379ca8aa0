package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/handler"
	"github.com/stemsi/exstem-quiz/internal/middleware"
	"github.com/stemsi/exstem-quiz/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Artifact *handler.ArtifactHandler
	Cloud    *handler.CloudHandler
	Health   *handler.HealthHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds the lifetime of the rate limiter's cleanup loop.
func SetupRouter(
	ctx context.Context,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// Compiled quizzes run from file:// or any host; empty means all origins.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware(log))
	router.Use(middleware.Brotli())

	router.GET("/health", middleware.NoStore(), handlers.Health.Check)

	api := router.Group("/api/v1")

	// ─── 1. Artifacts ──────────────────────────────────────────────────
	artifacts := api.Group("/artifacts")
	{
		artifacts.POST("", handlers.Artifact.Compile)
		artifacts.GET("/:id", middleware.Immutable(), handlers.Artifact.Download)
		artifacts.GET("/:id/preview", middleware.CacheControl(300), handlers.Artifact.Preview)
	}

	// ─── 2. Cloud Folders ──────────────────────────────────────────────
	// Pushes come from runtimes and the editor, reads from dashboards.
	// Pushes are limited per IP.
	ingestLimiter := middleware.NewRateLimiter(ctx, cfg.IngestRate, time.Minute)

	folder := api.Group("/cloud/:folder")
	folder.Use(middleware.NoStore(), handlers.Cloud.RequireFolder())
	{
		folder.POST("/results", ingestLimiter.Middleware(), handlers.Cloud.SubmitResult)
		folder.GET("/results", handlers.Cloud.ListResults)

		folder.POST("/tests", ingestLimiter.Middleware(), handlers.Cloud.SaveTest)
		folder.GET("/tests", handlers.Cloud.ListTests)
		folder.GET("/tests/:id", handlers.Cloud.GetTest)

		folder.POST("/bank", ingestLimiter.Middleware(), handlers.Cloud.PushBank)
		folder.GET("/bank", handlers.Cloud.ListBank)
	}

	return router
}
