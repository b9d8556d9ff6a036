package main

import (
	"strconv"
	"time"

	"procurement-service/internal/handler"
	"procurement-service/internal/imagestore"
	"procurement-service/internal/middleware"
	"procurement-service/internal/repository"
	"procurement-service/pkg/config"
	"procurement-service/pkg/database"
	"procurement-service/pkg/logger"
	"procurement-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting procurement service...", zap.String("environment", cfg.Server.Env))

	// Monetary values are emitted as JSON numbers, matching the API contract
	decimal.MarshalJSONWithoutQuotes = true

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Initialize database and run migrations
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed",
		zap.String("db_host", cfg.DB.Host), zap.String("db_name", cfg.DB.DBName))

	// Initialize the item image store
	images, err := imagestore.New(cfg.Upload.Dir)
	if err != nil {
		log.Fatal("Failed to initialize image store", zap.Error(err))
	}
	log.Info("Image store initialized", zap.String("dir", images.Dir()))

	// Repositories and handlers
	db := database.GetDB()
	supplierRepo := repository.NewSupplierRepository(db)
	itemRepo := repository.NewItemRepository(db)
	orderRepo := repository.NewOrderRepository(db, itemRepo)

	supplierHandler := handler.NewSupplierHandler(supplierRepo)
	itemHandler := handler.NewItemHandler(itemRepo, images)
	orderHandler := handler.NewOrderHandler(orderRepo)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)

	// Request logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Process request
			err := next(c)

			// Calculate duration
			duration := time.Since(start).Seconds()
			status := c.Response().Status

			// Log request details
			log := logger.FromContext(c)
			log.Info("HTTP Request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", status),
				zap.Float64("duration_s", duration),
				zap.String("ip", c.RealIP()),
			)

			// Update Prometheus HTTP metrics
			prometheus.HttpRequestsTotal.WithLabelValues(
				c.Request().Method,
				c.Request().URL.Path,
				strconv.Itoa(status),
			).Inc()

			prometheus.HttpRequestDuration.WithLabelValues(
				c.Request().Method,
				c.Request().URL.Path,
				strconv.Itoa(status),
			).Observe(duration)

			return err
		}
	})

	// Routes
	e.GET("/", handler.Health)
	e.GET("/health", handler.Health)

	// Prometheus metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Item images are written after creation and served statically
	e.Static("/uploads", images.Dir())

	// Supplier endpoints
	suppliers := e.Group("/suppliers")
	suppliers.POST("", supplierHandler.Create)
	suppliers.GET("", supplierHandler.List)
	suppliers.GET("/active", supplierHandler.ListActive)
	suppliers.GET("/:id", supplierHandler.Get)
	suppliers.PUT("/:id", supplierHandler.Update)
	suppliers.DELETE("/:id", supplierHandler.Delete)

	// Item endpoints
	items := e.Group("/items")
	items.POST("", itemHandler.Create)
	items.GET("", itemHandler.List)
	items.GET("/active", itemHandler.ListActive)
	items.GET("/:id", itemHandler.Get)
	items.PUT("/:id", itemHandler.Update)
	items.DELETE("/:id", itemHandler.Delete)

	// Order endpoints
	orders := e.Group("/orders")
	orders.POST("", orderHandler.Create)
	orders.GET("", orderHandler.List)
	orders.GET("/export", orderHandler.Export)
	orders.GET("/:id", orderHandler.Get)
	orders.PUT("/:id", orderHandler.Update)
	orders.DELETE("/:id", orderHandler.Delete)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
