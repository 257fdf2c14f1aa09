package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/application/aggregation"
	inventoryapp "github.com/orderhub/backend/internal/application/inventory"
	syncapp "github.com/orderhub/backend/internal/application/sync"
	"github.com/orderhub/backend/internal/infrastructure/cache"
	"github.com/orderhub/backend/internal/infrastructure/channels"
	"github.com/orderhub/backend/internal/infrastructure/config"
	"github.com/orderhub/backend/internal/infrastructure/logger"
	"github.com/orderhub/backend/internal/infrastructure/persistence"
	"github.com/orderhub/backend/internal/infrastructure/telemetry"
	"github.com/orderhub/backend/internal/interfaces/http/handler"
	"github.com/orderhub/backend/internal/interfaces/http/middleware"
	"github.com/orderhub/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting OrderHub Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("demo_mode", cfg.Channels.DemoMode),
	)

	// Tracing
	ctx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Stats cache: Redis when configured, in-process otherwise
	var statsCache cache.StatsCache
	if redisCache, err := cache.NewRedisStatsCache(&cfg.Redis); err != nil {
		log.Warn("Redis unavailable, using in-memory stats cache", zap.Error(err))
		statsCache = cache.NewInMemoryStatsCache()
	} else {
		log.Info("Redis stats cache connected", zap.String("addr", cfg.Redis.Addr()))
		statsCache = redisCache
	}
	defer func() {
		if err := statsCache.Close(); err != nil {
			log.Error("Error closing stats cache", zap.Error(err))
		}
	}()

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	changeLogRepo := persistence.NewGormChangeLogRepository(db.DB)
	connectionRepo := persistence.NewGormConnectionRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Channel adapters
	registry := channels.NewRegistry(&cfg.Channels, &cfg.Sync, log)

	// Application services
	ledgerService := inventoryapp.NewLedgerService(txScope, productRepo, changeLogRepo, log)
	aggregator := aggregation.NewAggregator(registry, cfg.Sync.ChannelTimeout, statsCache, cfg.Sync.StatsCacheTTL, log)
	orchestrator := syncapp.NewOrchestrator(ledgerService, aggregator, connectionRepo, log)

	// HTTP handlers
	orderHandler := handler.NewOrderHandler(aggregator, orchestrator, cfg.Sync.DefaultPageSize)
	inventoryHandler := handler.NewInventoryHandler(ledgerService, orchestrator)
	channelHandler := handler.NewChannelHandler(registry, aggregator, orchestrator, connectionRepo, cfg.Sync.DefaultPageSize)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, db)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORS(cfg.HTTP.CORSAllowOrigins))
	if cfg.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}

	// Liveness endpoint outside API versioning for load balancers
	engine.GET("/healthz", systemHandler.Health)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(orderHandler).
		Register(inventoryHandler).
		Register(channelHandler).
		Register(systemHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Background sync loop
	syncCtx, stopSync := context.WithCancel(ctx)
	go orchestrator.Start(syncCtx, cfg.Sync.Interval, cfg.Sync.DefaultPageSize)

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	stopSync()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}
