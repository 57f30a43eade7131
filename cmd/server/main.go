package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zfogg/unify/internal/auth"
	"github.com/zfogg/unify/internal/cache"
	"github.com/zfogg/unify/internal/config"
	"github.com/zfogg/unify/internal/database"
	"github.com/zfogg/unify/internal/email"
	"github.com/zfogg/unify/internal/friends"
	"github.com/zfogg/unify/internal/handlers"
	"github.com/zfogg/unify/internal/kernel"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/metrics"
	"github.com/zfogg/unify/internal/middleware"
	"github.com/zfogg/unify/internal/search"
	"github.com/zfogg/unify/internal/storage"
	"github.com/zfogg/unify/internal/stories"
	"github.com/zfogg/unify/internal/telemetry"
	"github.com/zfogg/unify/internal/typing"
	"github.com/zfogg/unify/internal/validation"
	"github.com/zfogg/unify/internal/websocket"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== Unify server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
	)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Initialize()

	ctx := context.Background()
	k := kernel.New().SetConfig(cfg).SetLogger(logger.Log)

	tp, err := telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:  telemetry.ServiceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTelEndpoint,
		Enabled:      cfg.OTelEnabled,
		SamplingRate: cfg.OTelSamplingRate,
	})
	if err != nil {
		logger.WarnWithFields("Tracing disabled", err)
	} else if tp != nil {
		k.OnCleanup(tp.Shutdown)
	}

	if err := database.Initialize(cfg.Database, !cfg.IsProduction()); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	if cfg.OTelEnabled {
		if err := database.DB.Use(telemetry.GORMTracingPlugin()); err != nil {
			logger.WarnWithFields("Failed to install gorm tracing", err)
		}
	}
	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}
	k.SetDB(database.DB).OnCleanup(func(context.Context) error { return database.Close() })

	validator := validation.NewServiceValidator()

	// Redis backs caches, typing state and shared rate limits; everything
	// degrades to in-process state without it
	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled() {
		if rc, err := cache.NewRedisClient(cfg.Redis); err != nil {
			logger.WarnWithFields("Redis unavailable, continuing without it", err)
		} else {
			redisClient = rc
			validator.Register(validation.ServiceRedis, rc.Ping)
			k.SetCache(rc).OnCleanup(func(context.Context) error { return rc.Close() })
		}
	}

	var es *search.Client
	if cfg.ElasticsearchURL != "" {
		if es, err = search.NewClient(cfg.ElasticsearchURL); err != nil {
			logger.WarnWithFields("Elasticsearch unavailable, search falls back to SQL", err)
			es = nil
		} else {
			validator.Register(validation.ServiceElasticsearch, es.Ping)
			if err := es.InitializeIndices(ctx); err != nil {
				logger.WarnWithFields("Failed to create search indices", err)
			}
		}
	}

	if cfg.AWSBucket != "" {
		uploader, err := storage.NewS3Uploader(ctx, cfg.AWSRegion, cfg.AWSBucket, cfg.CDNBaseURL)
		if err != nil {
			logger.WarnWithFields("Failed to initialize S3 uploader", err)
		} else {
			validator.Register(validation.ServiceS3, uploader.CheckBucketAccess)
			k.SetMedia(uploader)
		}
	} else {
		logger.Log.Warn("AWS_BUCKET not set, media uploads are disabled")
	}

	if cfg.SESFromEmail != "" {
		mailer, err := email.NewSESService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.WebBaseURL)
		if err != nil {
			logger.WarnWithFields("Failed to initialize SES", err)
		} else {
			validator.Register(validation.ServiceSES, func(context.Context) error { return nil })
			k.SetMailer(mailer)
		}
	}

	if err := validator.ValidateServices(ctx); err != nil {
		logger.FatalWithFields("Required service unavailable", err)
	}

	hub := websocket.NewHub()
	go hub.Run()
	k.SetPusher(hub).OnCleanup(hub.Shutdown)

	friendsService := friends.NewService(database.DB, redisClient)
	typingStore := typing.NewStore(redisClient)
	if mem, ok := typingStore.(*typing.MemoryStore); ok {
		mem.Start()
		k.OnCleanup(func(context.Context) error { mem.Stop(); return nil })
	}
	typingService := typing.NewService(typingStore, hub)
	storiesService := stories.NewService(database.DB, k.Media())

	k.SetAuth(auth.NewService(cfg.JWTSecret, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.APIBaseURL)).
		SetFriends(friendsService).
		SetTyping(typingService).
		SetSearch(search.NewService(database.DB, es, redisClient, friendsService)).
		SetStories(storiesService)

	if err := k.Validate(); err != nil {
		logger.FatalWithFields("Service wiring is incomplete", err)
	}

	storyCleanup := stories.NewCleanupService(storiesService, cfg.StoryCleanupInterval)
	storyCleanup.Start()
	k.OnCleanup(func(context.Context) error { storyCleanup.Stop(); return nil })

	wsHandler := websocket.NewHandler(hub, cfg.CORSAllowedOrigins)
	wsHandler.RegisterTypingHandler(typingService.Update)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	if cfg.OTelEnabled {
		r.Use(middleware.TracingMiddleware(telemetry.ServiceName))
	}
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.GinLoggerMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/ws", "/metrics"})))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authService := k.Auth()
	h := handlers.NewHandlers(k)
	h.RegisterRoutes(r, handlers.RouteOptions{
		Auth:     middleware.AuthMiddleware(authService),
		Optional: middleware.OptionalAuthMiddleware(authService),
		Limit: func(rl middleware.RateLimitConfig) gin.HandlerFunc {
			if rl.Name == "api" {
				rl.Limit, rl.Window = cfg.RateLimitMax, cfg.RateLimitWindow
			}
			return middleware.RedisRateLimitMiddleware(rl)
		},
		WebSocket:   wsHandler,
		Environment: cfg.Environment,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Unify backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithFields("Server forced to shutdown", err)
	}
	if err := k.Cleanup(shutdownCtx); err != nil {
		logger.ErrorWithFields("Cleanup finished with errors", err)
	}
	logger.Log.Info("Server exited")
}
