package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lojinha-labs/service-catalog/internal/application"
	"github.com/lojinha-labs/service-catalog/internal/config"
	"github.com/lojinha-labs/service-catalog/internal/events"
	"github.com/lojinha-labs/service-catalog/internal/handler"
	"github.com/lojinha-labs/service-catalog/internal/pkg/database"
	"github.com/lojinha-labs/service-catalog/internal/pkg/health"
	"github.com/lojinha-labs/service-catalog/internal/pkg/kafka"
	"github.com/lojinha-labs/service-catalog/internal/pkg/logger"
	"github.com/lojinha-labs/service-catalog/internal/pkg/middleware"
	"github.com/lojinha-labs/service-catalog/internal/repository"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, "service-catalog")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting service-catalog",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.IsProduction() {
		if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), cfg.MigrationsPath, zapLogger); err != nil {
			zapLogger.Fatal("failed to run migrations", zap.Error(err))
		}
	} else {
		if err := db.AutoMigrate(&repository.ProductModel{}, &repository.CouponModel{}, &repository.ApplicationModel{}); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (dev auto-migrate)")
	}

	// Initialize Kafka producer and event publisher
	kafkaProducer := kafka.NewProducer(cfg.KafkaBrokers, zapLogger)
	defer kafkaProducer.Close()
	publisher := events.NewPublisher(kafkaProducer, zapLogger)

	// Initialize repositories
	productRepo := repository.NewGormProductRepository(db)
	couponRepo := repository.NewGormCouponRepository(db)

	// Initialize application services
	productService := application.NewProductService(productRepo, publisher, zapLogger)
	couponService := application.NewCouponService(couponRepo, publisher, zapLogger)
	discountService := application.NewDiscountService(productRepo, couponRepo, publisher, zapLogger)

	// Initialize HTTP handlers
	productHandler := handler.NewProductHandler(productService, discountService)
	couponHandler := handler.NewCouponHandler(couponService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.Recovery(zapLogger))
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-catalog")
	healthHandler.RegisterRoutes(router)

	// Register API routes
	apiV1 := router.Group("/api/v1")
	productHandler.RegisterRoutes(apiV1)
	couponHandler.RegisterRoutes(apiV1)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down service-catalog...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("service-catalog stopped")
}
