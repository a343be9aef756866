package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	disputeapp "github.com/rentio/backend/internal/application/dispute"
	refundapp "github.com/rentio/backend/internal/application/refund"
	rentalapp "github.com/rentio/backend/internal/application/rental"
	"github.com/rentio/backend/internal/infrastructure/auth"
	"github.com/rentio/backend/internal/infrastructure/cache"
	"github.com/rentio/backend/internal/infrastructure/config"
	"github.com/rentio/backend/internal/infrastructure/event"
	"github.com/rentio/backend/internal/infrastructure/logger"
	"github.com/rentio/backend/internal/infrastructure/persistence"
	"github.com/rentio/backend/internal/infrastructure/scheduler"
	"github.com/rentio/backend/internal/infrastructure/telemetry"
	"github.com/rentio/backend/internal/interfaces/http/handler"
	"github.com/rentio/backend/internal/interfaces/http/middleware"
	"github.com/rentio/backend/internal/interfaces/http/router"
)

//	@title			Rentio Backend API
//	@version		1.0
//	@description	Rental marketplace dispute and deposit refund resolution API

//	@contact.name	API Support
//	@contact.url	https://github.com/rentio/backend

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Rentio Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracer provider (no-op when telemetry is disabled)
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize Redis for the dashboard counter cache. Redis being down is
	// not fatal: the counter cache degrades to repository reads.
	redisClient := newRedisClient(cfg, log)
	counterCache := cache.NewCounterCache(redisClient, log)
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()

	// Initialize repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	caseRepo := persistence.NewGormViolationCaseRepository(db.DB)
	resolutionRepo := persistence.NewGormIssueResolutionRepository(db.DB)
	refundRepo := persistence.NewGormDepositRefundRepository(db.DB)
	txManager := persistence.NewGormTransactionManager(db.DB)

	// Initialize application services
	violationService := disputeapp.NewViolationService(caseRepo, orderRepo, txManager)
	negotiationService := disputeapp.NewNegotiationService(caseRepo, orderRepo, txManager)
	resolutionService := disputeapp.NewResolutionService(caseRepo, resolutionRepo, txManager)
	calculatorService := refundapp.NewCalculatorService(refundRepo, caseRepo, orderRepo)
	refundService := refundapp.NewRefundService(refundRepo)
	orderSyncService := rentalapp.NewOrderSyncService(orderRepo, caseRepo, calculatorService, log)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	// Terminal case -> immediate order reconciliation
	caseClosedHandler := rentalapp.NewCaseClosedHandler(orderSyncService, log)
	eventBus.Subscribe(caseClosedHandler)

	// Dispute/refund state change -> dashboard counter invalidation
	countInvalidationHandler := cache.NewCountInvalidationHandler(counterCache)
	eventBus.Subscribe(countInvalidationHandler)

	log.Info("Event handlers registered",
		zap.Strings("case_closed_events", caseClosedHandler.EventTypes()),
		zap.Strings("count_invalidation_events", countInvalidationHandler.EventTypes()),
	)

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Inject event bus into services that publish events
	violationService.SetEventPublisher(eventBus)
	negotiationService.SetEventPublisher(eventBus)
	resolutionService.SetEventPublisher(eventBus)
	calculatorService.SetEventPublisher(eventBus)
	refundService.SetEventPublisher(eventBus)
	orderSyncService.SetEventPublisher(eventBus)

	// Reconciliation scheduler: the periodic sweep backing up the
	// event-driven order status sync
	reconciliation, err := scheduler.NewReconciliationScheduler(scheduler.ReconciliationSchedulerConfig{
		Enabled:      cfg.Scheduler.Enabled,
		SyncInterval: cfg.Scheduler.SyncInterval,
		JobTimeout:   cfg.Scheduler.JobTimeout,
	}, orderSyncService.SyncResolvedOrderStatuses, log)
	if err != nil {
		log.Fatal("Failed to create reconciliation scheduler", zap.Error(err))
	}
	if err := reconciliation.Start(context.Background()); err != nil {
		log.Fatal("Failed to start reconciliation scheduler", zap.Error(err))
	}
	defer func() {
		if err := reconciliation.Stop(context.Background()); err != nil {
			log.Error("Error stopping reconciliation scheduler", zap.Error(err))
		}
	}()
	log.Info("Reconciliation scheduler started",
		zap.Bool("enabled", cfg.Scheduler.Enabled),
		zap.Duration("sync_interval", cfg.Scheduler.SyncInterval),
		zap.Duration("job_timeout", cfg.Scheduler.JobTimeout),
	)

	// JWT service for validating access tokens issued by the identity service
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize HTTP handlers
	violationCaseHandler := handler.NewViolationCaseHandler(violationService, negotiationService)
	refundHandler := handler.NewRefundHandler(refundService, calculatorService)
	resolutionHandler := handler.NewResolutionHandler(resolutionService, refundService, orderSyncService, counterCache, reconciliation)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - otelgin span per request
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes.
	// Tokens are issued by the marketplace identity service; this API only
	// validates them, so the public surface is the health/system endpoints.
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Attach JWT claims to the active span once authentication has run
	r.Use(middleware.TracingAttributeInjector())

	// Dispute domain: violation cases and the negotiation between parties
	disputeRoutes := router.NewDomainGroup("dispute", "")
	disputeRoutes.POST("/violations",
		middleware.RequireRole(auth.RoleProvider), violationCaseHandler.Create)
	disputeRoutes.GET("/violations/:id", violationCaseHandler.GetByID)
	disputeRoutes.PUT("/violations/:id",
		middleware.RequireRole(auth.RoleProvider), violationCaseHandler.Edit)
	disputeRoutes.POST("/violations/:id/revise",
		middleware.RequireRole(auth.RoleProvider), violationCaseHandler.Revise)
	disputeRoutes.POST("/violations/:id/respond",
		middleware.RequireRole(auth.RoleCustomer), violationCaseHandler.Respond)
	disputeRoutes.POST("/violations/:id/escalate",
		middleware.RequireRole(auth.RoleCustomer, auth.RoleProvider), violationCaseHandler.Escalate)
	disputeRoutes.POST("/violations/:id/evidence",
		middleware.RequireRole(auth.RoleCustomer, auth.RoleProvider), violationCaseHandler.AddEvidence)
	disputeRoutes.GET("/orders/:id/violations", violationCaseHandler.ListByOrder)

	// Refund domain: the customer-facing read side
	refundRoutes := router.NewDomainGroup("refund", "")
	refundRoutes.GET("/refunds",
		middleware.RequireRole(auth.RoleCustomer), refundHandler.ListOwn)
	refundRoutes.GET("/refunds/:id",
		middleware.RequireRole(auth.RoleCustomer), refundHandler.GetOwn)
	refundRoutes.POST("/refunds/:id/reopen",
		middleware.RequireRole(auth.RoleCustomer), refundHandler.ReopenOwn)
	refundRoutes.GET("/orders/:id/refund", refundHandler.GetByOrder)

	// Admin domain: arbitration queue, rulings, refund processing, dashboard
	adminRoutes := router.NewDomainGroup("admin", "/admin")
	adminRoutes.Use(middleware.RequireAdmin())
	adminRoutes.GET("/disputes/pending", resolutionHandler.ListPendingDisputes)
	adminRoutes.POST("/resolutions", resolutionHandler.CreateResolution)
	adminRoutes.GET("/violations/:id/resolution", resolutionHandler.GetResolution)
	adminRoutes.GET("/dashboard/pending-counts", resolutionHandler.GetPendingCounts)
	adminRoutes.POST("/reconciliation/run", resolutionHandler.TriggerSync)
	adminRoutes.POST("/orders/:id/resolve", resolutionHandler.ResolveOrder)
	adminRoutes.GET("/refunds", refundHandler.List)
	adminRoutes.GET("/refunds/:id", refundHandler.GetByID)
	adminRoutes.POST("/refunds/:id/process", refundHandler.Process)
	adminRoutes.POST("/refunds/:id/reopen", refundHandler.Reopen)
	adminRoutes.POST("/orders/:id/refund/calculate", refundHandler.Calculate)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(disputeRoutes).
		Register(refundRoutes).
		Register(adminRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newRedisClient connects to Redis, logging instead of failing when the
// connection cannot be established at startup.
func newRedisClient(cfg *config.Config, log *zap.Logger) *redis.Client {
	client, err := cache.NewRedisClient(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, counter cache will fall back to repository reads", zap.Error(err))
		return redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Host + ":" + strconv.Itoa(cfg.Redis.Port),
		})
	}
	log.Info("Redis connected successfully")
	return client
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
