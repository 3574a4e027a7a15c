package main

import (
	"context"
	"net/http"

	"github.com/klaker79/lacaleta-api/internal/alerting"
	"github.com/klaker79/lacaleta-api/internal/costing"
	"github.com/klaker79/lacaleta-api/internal/handler"
	"github.com/klaker79/lacaleta-api/internal/ledger"
	mid "github.com/klaker79/lacaleta-api/internal/middleware"
	"github.com/klaker79/lacaleta-api/internal/recalc"
	"github.com/klaker79/lacaleta-api/internal/storage"
	"github.com/klaker79/lacaleta-api/pkg/config"
	"github.com/klaker79/lacaleta-api/pkg/database"
	"github.com/klaker79/lacaleta-api/pkg/jwtutil"
	"github.com/klaker79/lacaleta-api/pkg/logger"
	"github.com/klaker79/lacaleta-api/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration (reads .env when present)
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting lacaleta-api",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

	// Initialize JWT utility
	jwtutil.Initialize(&appConfig.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	if err := database.InitDB(appConfig); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")
	db := database.GetDB()

	// Stores
	ingredientStore := storage.NewIngredientStore(db)
	recipeStore := storage.NewRecipeStore(db)
	movementStore := storage.NewMovementStore(db)
	alertStore := storage.NewAlertStore(db)

	// Domain services
	outbox := ledger.NewOutbox(movementStore, appConfig.Alerting.OutboxRetryPeriod, log)
	outbox.OnEnqueue(prometheus.OutboxRetriesCounter.Inc)
	stockLedger := ledger.New(db, ingredientStore, movementStore, outbox, log)
	engine := costing.NewEngine(recipeStore, ingredientStore, log)
	machine := alerting.NewMachine(alertStore, alerting.Thresholds{
		MinMarginPct:     appConfig.Alerting.MinMarginPct,
		MaxFoodCostPct:   appConfig.Alerting.MaxFoodCostPct,
		PriceIncreasePct: appConfig.Alerting.PriceIncreasePct,
	}, log)
	orchestrator := recalc.New(recipeStore, engine, machine, log)

	// Retry loop for movement log writes that failed at mutation time
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	outbox.Start(ctx)

	// Handlers
	ingredientHandler := handler.NewIngredientHandler(ingredientStore, movementStore, stockLedger, machine, orchestrator)
	recipeHandler := handler.NewRecipeHandler(recipeStore, engine, machine, orchestrator)
	alertHandler := handler.NewAlertHandler(alertStore, machine)
	saleHandler := handler.NewSaleHandler(db, recipeStore, ingredientStore, stockLedger, machine)

	// Initialize Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Ingredient API routes - auth middleware validates JWT and extracts tenant ID
	ingredientAPI := e.Group("/api/ingredients", mid.AuthMiddleware)
	ingredientAPI.GET("", ingredientHandler.List)
	ingredientAPI.GET("/:id", ingredientHandler.Get)
	ingredientAPI.POST("", ingredientHandler.Create)
	ingredientAPI.PUT("/:id", ingredientHandler.Update)
	ingredientAPI.DELETE("/:id", ingredientHandler.Delete)
	ingredientAPI.POST("/:id/stock", ingredientHandler.ApplyStockDelta)
	ingredientAPI.POST("/stock/bulk", ingredientHandler.ApplyStockDeltaBulk)
	ingredientAPI.GET("/:id/movements", ingredientHandler.ListMovements)
	ingredientAPI.POST("/:id/recalculate", recipeHandler.RecalculateByIngredient)

	// Recipe API routes
	recipeAPI := e.Group("/api/recipes", mid.AuthMiddleware)
	recipeAPI.GET("", recipeHandler.List)
	recipeAPI.GET("/:id", recipeHandler.Get)
	recipeAPI.POST("", recipeHandler.Create)
	recipeAPI.PUT("/:id", recipeHandler.Update)
	recipeAPI.DELETE("/:id", recipeHandler.Delete)
	recipeAPI.POST("/:id/cost", recipeHandler.CalculateCost)

	// Sale and purchase registration
	saleAPI := e.Group("/api/sales", mid.AuthMiddleware)
	saleAPI.POST("", saleHandler.RegisterSale)
	purchaseAPI := e.Group("/api/purchases", mid.AuthMiddleware)
	purchaseAPI.POST("", saleHandler.RegisterPurchase)

	// Alert API routes
	alertAPI := e.Group("/api/alerts", mid.AuthMiddleware)
	alertAPI.GET("", alertHandler.List)
	alertAPI.PUT("/:id/acknowledge", alertHandler.Acknowledge)
	alertAPI.PUT("/:id/resolve", alertHandler.Resolve)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
