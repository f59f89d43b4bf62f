package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkpulse/internal/cache"
	"linkpulse/internal/config"
	"linkpulse/internal/database"
	"linkpulse/internal/geo"
	"linkpulse/internal/handler"
	"linkpulse/internal/middleware"
	"linkpulse/internal/repository"
	"linkpulse/internal/service"
	"linkpulse/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	db, err := database.Connect(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database ready")

	// Redis is optional: without it the service runs uncached with the
	// in-memory rate limiter.
	redisClient, err := cache.NewRedisClient(cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		CacheTTL:     cfg.Redis.CacheTTL,
	})
	if err != nil {
		logger.Warn("redis unavailable, running without cache", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		logger.Info("redis connected")
	}

	var linkCache cache.Cache
	if redisClient != nil {
		linkCache = redisClient
	}

	linkRepo := repository.NewPostgresLinkRepository(db)
	if linkCache != nil {
		linkRepo = repository.NewCachedLinkRepository(linkRepo, linkCache, logger)
	}
	clickRepo := repository.NewPostgresClickRepository(db)
	apiKeyRepo := repository.NewPostgresAPIKeyRepository(db)

	geoResolver := geo.NewResolver(geo.Config{
		BaseURL:   cfg.Geo.BaseURL,
		CacheSize: cfg.Geo.CacheSize,
		CacheTTL:  cfg.Geo.TTL(),
		Timeout:   cfg.Geo.Timeout(),
	}, logger)

	notifier := webhook.NewNotifier(cfg.Webhook.Timeout(), logger)

	linkService := service.NewLinkService(linkRepo, clickRepo, cfg.GetBaseURL())
	clickRecorder := service.NewClickRecorder(clickRepo, notifier, cfg.Webhook.Timeout(), logger)

	linkHandler := handler.NewLinkHandler(linkService, clickRecorder, geoResolver, logger)
	healthHandler := handler.NewHealthHandler(db, linkCache, cfg.App.Environment)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.GetAllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Api-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	if redisClient != nil {
		router.Use(middleware.RedisRateLimit(redisClient, redisClient.GetKeyBuilder(), 100, time.Minute, logger))
	} else {
		limiter := middleware.NewRateLimiter(100.0/60.0, 20)
		router.Use(limiter.LimitMiddleware())
	}

	router.GET("/health", healthHandler.Health)
	router.GET("/info", healthHandler.Info)

	api := router.Group("/api")
	api.Use(middleware.APIKeyAuth(apiKeyRepo, logger))
	{
		api.POST("/links", linkHandler.CreateLink)
		api.GET("/links", linkHandler.ListLinks)
		api.GET("/links/:slug", linkHandler.GetLink)
		api.PATCH("/links/:slug", linkHandler.UpdateLink)
		api.DELETE("/links/:slug", linkHandler.DeleteLink)
		api.GET("/links/:slug/analytics", linkHandler.Analytics)
	}

	// Registered last so the wildcard does not shadow fixed routes.
	router.GET("/:slug", linkHandler.Redirect)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.GetServerAddress()),
			zap.Bool("cache_enabled", redisClient != nil))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	if cfg.IsProduction() {
		logger, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return logger
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger
}
