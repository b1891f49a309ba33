package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/store/backend/internal/domain/identity"
	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/infrastructure/config"
	"github.com/store/backend/internal/infrastructure/logger"
	"github.com/store/backend/internal/interfaces/http/dto"
	"github.com/store/backend/internal/interfaces/http/handler"
	"github.com/store/backend/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the endpoint groups served by the engine. Nil groups are
// not mounted.
type Handlers struct {
	Entities []handler.Registrar
	Images   *handler.ProductImageHandler
	Auth     *handler.AuthHandler
	Admin    *handler.AdminHandler
	System   *handler.SystemHandler
	Health   *handler.HealthHandler
}

// EngineConfig selects the middleware chain of the engine
type EngineConfig struct {
	Logger  *zap.Logger
	HTTP    config.HTTPConfig
	JWT     middleware.JWTMiddlewareConfig
	Tracing middleware.TracingConfig
	// Meter enables HTTP metrics when set
	Meter     metric.Meter
	Profiling bool
	// Limiter throttles every request per client IP when set
	Limiter *middleware.RateLimiter
	// AuthLimiter throttles POST /api/authenticate when set
	AuthLimiter *middleware.RateLimiter
	// Swagger guards /swagger; the docs package must be linked in for the
	// spec to be served
	Swagger middleware.SwaggerConfig
}

// NewEngine builds the gin engine: global middleware, /health, /swagger and
// the authenticated /api routes.
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
			_ = engine.SetTrustedProxies(nil)
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.Tracing(cfg.Tracing),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORSWithConfig(corsConfig(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	if cfg.Meter != nil {
		engine.Use(middleware.HTTPMetrics(cfg.Meter, log))
	}
	engine.Use(middleware.Profiling(cfg.Profiling))
	if cfg.Limiter != nil {
		engine.Use(middleware.RateLimit(cfg.Limiter))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(shared.CodeNotFound,
			"No route for "+c.Request.Method+" "+c.Request.URL.Path,
			c.GetString(middleware.RequestIDKey)))
	})

	if h.Health != nil {
		engine.GET("/health", h.Health.Check)
	}

	jwtCfg := cfg.JWT
	if jwtCfg.Logger == nil {
		jwtCfg.Logger = log
	}
	jwtAuth := middleware.JWTAuthMiddlewareWithConfig(jwtCfg)

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(cfg.Swagger, jwtAuth),
		ginSwagger.WrapHandler(swaggerFiles.Handler))

	r := NewRouter(engine,
		WithMiddleware(jwtAuth, middleware.TracingAttributeInjector()),
		WithAdminMiddleware(middleware.RequireAuthority(identity.AuthorityAdmin)),
	)

	if h.Auth != nil {
		if cfg.AuthLimiter != nil {
			h.Auth.GuardLogin(middleware.RateLimit(cfg.AuthLimiter))
		}
		r.Register(h.Auth)
	}
	for _, e := range h.Entities {
		r.Register(e)
	}
	if h.Images != nil {
		r.Register(h.Images)
	}
	if h.Admin != nil {
		r.RegisterAdmin(h.Admin)
	}
	if h.System != nil {
		r.RegisterAdmin(NewDomainGroup("system", "").GET("/info", h.System.Info))
	}
	r.Setup()

	return engine
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.CORSAllowOrigins
	}
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	return cors
}
