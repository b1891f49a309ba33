package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	_ "github.com/store/backend/docs"
	identityapp "github.com/store/backend/internal/application/identity"
	storeapp "github.com/store/backend/internal/application/store"
	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/domain/store"
	"github.com/store/backend/internal/infrastructure/auth"
	"github.com/store/backend/internal/infrastructure/cache"
	"github.com/store/backend/internal/infrastructure/config"
	"github.com/store/backend/internal/infrastructure/logger"
	"github.com/store/backend/internal/infrastructure/persistence"
	"github.com/store/backend/internal/infrastructure/search"
	"github.com/store/backend/internal/infrastructure/searchsync"
	"github.com/store/backend/internal/infrastructure/storage"
	"github.com/store/backend/internal/infrastructure/telemetry"
	"github.com/store/backend/internal/interfaces/http/handler"
	"github.com/store/backend/internal/interfaces/http/middleware"
	"github.com/store/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Store Backend API
//	@version		1.0
//	@description	CRUD and search API for product categories, products, orders, order items, invoices and shipments.

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			bootLog.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	// Same console output, plus the OTLP bridge when log export is on
	log, err := logger.New(logCfg, providers.Logs.ZapCore(cfg.Telemetry.ServiceName, zapcore.InfoLevel))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting store backend",
		zap.String("app", cfg.App.Name),
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	var meter metric.Meter
	if providers.Meter.IsEnabled() {
		meter = providers.Meter.Meter(cfg.Telemetry.ServiceName)
	}

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:        log,
		LogLevel:      cfg.Log.Level,
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if meter != nil {
		if sqlDB, err := db.DB.DB(); err == nil {
			if _, err := telemetry.RegisterDBPoolMetrics(meter, sqlDB.Stats); err != nil {
				log.Warn("Failed to register database pool metrics", zap.Error(err))
			}
		}
	}

	storeMetrics := telemetry.NewNoopStoreMetrics()
	if meter != nil {
		if storeMetrics, err = telemetry.NewStoreMetrics(meter); err != nil {
			log.Fatal("Failed to create store metrics", zap.Error(err))
		}
	}

	// Search mirror
	backend, err := search.NewBackend(ctx, cfg.Search, search.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize search", zap.Error(err))
	}

	// Read-through entity cache
	var entityCache cache.EntityCache
	if cfg.Cache.Enabled {
		entityCache, err = cache.NewEntityCacheFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(!cfg.IsProduction()),
		).CreateCache(cfg.Cache.Provider)
		if err != nil {
			log.Fatal("Failed to initialize entity cache", zap.Error(err))
		}
		defer func() {
			_ = entityCache.Close()
		}()
	}

	repos := storeapp.Repositories{
		Categories: cached[store.ProductCategory](persistence.NewProductCategoryRepository(db.DB), entityCache, cfg.Cache, log,
			store.IndexProduct, store.IndexOrderItem),
		Products: cached[store.Product](persistence.NewProductRepository(db.DB), entityCache, cfg.Cache, log,
			store.IndexOrderItem),
		Orders: cached[store.ProductOrder](persistence.NewProductOrderRepository(db.DB), entityCache, cfg.Cache, log,
			store.IndexOrderItem, store.IndexInvoice, store.IndexShipment),
		OrderItems: cached[store.OrderItem](persistence.NewOrderItemRepository(db.DB), entityCache, cfg.Cache, log),
		Invoices: cached[store.Invoice](persistence.NewInvoiceRepository(db.DB), entityCache, cfg.Cache, log,
			store.IndexShipment),
		Shipments: cached[store.Shipment](persistence.NewShipmentRepository(db.DB), entityCache, cfg.Cache, log),
	}
	mirrors := storeapp.Mirrors{
		Categories: search.MirrorFor[store.ProductCategory](backend),
		Products:   search.MirrorFor[store.Product](backend),
		Orders:     search.MirrorFor[store.ProductOrder](backend),
		OrderItems: search.MirrorFor[store.OrderItem](backend),
		Invoices:   search.MirrorFor[store.Invoice](backend),
		Shipments:  search.MirrorFor[store.Shipment](backend),
	}

	// Failed mirror writes land in the search sync queue
	syncRepo := persistence.NewGormSearchSyncRepository(db.DB)
	syncQueue := searchsync.NewQueue(syncRepo, cfg.SearchSync.MaxRetries)

	services := storeapp.NewServices(repos, mirrors, log,
		storeapp.WithSyncQueue(syncQueue),
		storeapp.WithMetrics(storeMetrics),
	)
	if err := services.EnsureIndexes(ctx); err != nil {
		log.Warn("Failed to ensure search indexes", zap.Error(err))
	}

	if cfg.SearchSync.ProcessorEnabled {
		processor := searchsync.NewProcessor(syncRepo, searchsync.ConfigFrom(cfg.SearchSync), log,
			searchsync.WithMetrics(storeMetrics))
		for _, ix := range services.Indexers() {
			processor.Register(ix.Name(), ix)
		}
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start search sync processor", zap.Error(err))
		}
		defer func() {
			if err := processor.Stop(context.Background()); err != nil {
				log.Error("Error stopping search sync processor", zap.Error(err))
			}
		}()
		log.Info("Search sync processor started",
			zap.Int("batch_size", cfg.SearchSync.BatchSize),
			zap.Duration("poll_interval", cfg.SearchSync.PollInterval),
		)
	}

	// Product images
	objects, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	images := storeapp.NewProductImageService(services.Products, objects,
		cfg.Storage.MaxImageSize, cfg.Storage.PresignExpiration, log)

	// Identity
	tokens := auth.NewJWTService(cfg.JWT)
	blacklist, redisClient := newTokenBlacklist(ctx, cfg, log)
	if redisClient != nil {
		defer func() {
			_ = redisClient.Close()
		}()
	}
	users := persistence.NewGormUserRepository(db.DB)
	authService := identityapp.NewAuthService(users, tokens, blacklist, log)
	if created, err := authService.BootstrapAdmin(ctx, cfg.Auth); err != nil {
		log.Error("Failed to create bootstrap admin", zap.Error(err))
	} else if !created && cfg.Auth.AdminPassword == "" {
		log.Info("No admin password configured, skipping admin bootstrap")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	health := handler.NewHealthHandler(2*time.Second, log).
		Critical("database", db).
		Optional("search", backend)
	if entityCache != nil {
		health.Optional("cache", entityCache)
	}
	if redisClient != nil {
		health.Optional("redis", handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}

	jwtCfg := middleware.DefaultJWTConfig(tokens)
	jwtCfg.TokenBlacklist = blacklist
	jwtCfg.Logger = log

	engineCfg := router.EngineConfig{
		Logger: log,
		HTTP:   cfg.HTTP,
		JWT:    jwtCfg,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
			SkipPaths:   []string{"/health"},
		},
		Meter:     meter,
		Profiling: cfg.Telemetry.ProfilingEnabled,
		Swagger: middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		},
	}
	if cfg.HTTP.RateLimitEnabled {
		engineCfg.Limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer engineCfg.Limiter.Stop()
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	if cfg.HTTP.AuthRateLimitEnabled {
		engineCfg.AuthLimiter = middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		defer engineCfg.AuthLimiter.Stop()
	}

	engine := router.NewEngine(engineCfg, router.Handlers{
		Entities: handler.EntityHandlers(services),
		Images:   handler.NewProductImageHandler(images),
		Auth:     handler.NewAuthHandler(authService),
		Admin:    handler.NewAdminHandler(services, syncQueue, log),
		System:   handler.NewSystemHandler(cfg.App.Name, version, cfg.App.Env, backend.Provider()),
		Health:   health,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// cached puts the entity cache in front of repo when caching is enabled
func cached[T any, P shared.Record[T]](
	repo shared.Repository[T],
	c cache.EntityCache,
	cfg config.CacheConfig,
	log *zap.Logger,
	dependents ...string,
) shared.Repository[T] {
	if c == nil {
		return repo
	}
	return cache.NewCachedRepository[T, P](repo, c, cfg.TTL, cfg.Prefix, log, dependents...)
}

// newTokenBlacklist keeps revocations in Redis so they hold across
// instances. Outside production an unreachable Redis falls back to memory.
func newTokenBlacklist(ctx context.Context, cfg *config.Config, log *zap.Logger) (auth.TokenBlacklist, *redis.Client) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if cfg.IsProduction() {
			log.Fatal("Redis required for token revocation but unavailable", zap.Error(err))
		}
		log.Warn("Redis unavailable, token revocations are kept in memory", zap.Error(err))
		return auth.NewInMemoryTokenBlacklist(), nil
	}

	log.Info("Using Redis token blacklist", zap.String("addr", cfg.Redis.Addr()))
	return auth.NewRedisTokenBlacklist(client, "store:auth:"), client
}
