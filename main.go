package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dutyfinder/dutyfinder-api/config"
	"github.com/dutyfinder/dutyfinder-api/controllers"
	"github.com/dutyfinder/dutyfinder-api/logger"
	"github.com/dutyfinder/dutyfinder-api/middleware"
	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	zapLogger.Info("Starting DutyFinder API server...", zap.String("env", cfg.GoEnv))

	db, err := config.ConnectDatabase(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := models.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}
	zapLogger.Info("Database migration completed successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := services.Dependencies{
		DB:     db,
		Config: cfg,
		Logger: zapLogger,
		Bus:    services.NewEventBus(zapLogger),
	}

	if cfg.RedisURL != "" {
		client, err := services.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Warn("Redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			deps.Cache = services.NewRedisCache(client)
		}
	}

	if cfg.S3Enabled() {
		storage, err := services.NewS3Storage(ctx, cfg)
		if err != nil {
			zapLogger.Warn("S3 unavailable, backups and profile images disabled", zap.Error(err))
		} else {
			deps.Storage = storage
		}
	}

	svc := services.New(deps)

	seeded, err := svc.Admin.SeedAdmin(ctx, cfg.AdminPassword)
	if err != nil {
		zapLogger.Fatal("Failed to seed administrator", zap.Error(err))
	}
	if seeded {
		zapLogger.Warn("Seeded default administrator account, change its password")
	}

	go svc.Backups.Run(ctx)

	router, err := newRouter(cfg, db, svc, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      0, // the event stream stays open
	}

	go func() {
		zapLogger.Info("Server is running", zap.String("addr", "http://localhost:"+cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	deps.Bus.Wait()

	zapLogger.Info("Server exited")
}

// newRouter builds the gin engine with the global middleware and every route
func newRouter(cfg *config.Config, db *gorm.DB, svc *services.Services, zapLogger *zap.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := controllers.RegisterValidators(); err != nil {
		return nil, err
	}

	jwtValidator, err := middleware.NewTokenValidator(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(zapLogger))
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/events"})))

	controllers.RegisterRoutes(router, db, svc, middleware.EnsureValidToken(jwtValidator, zapLogger), zapLogger)
	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
