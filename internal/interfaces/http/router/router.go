// Package router 提供 HTTP 路由配置
package router

import (
	"astro-persona-api/internal/config"
	"astro-persona-api/internal/interfaces/http/handler"
	"astro-persona-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖的处理器集合
type Handlers struct {
	Health      *handler.HealthHandler
	Chart       *handler.ChartHandler
	Persona     *handler.PersonaHandler
	Orchestrate *handler.OrchestrateHandler
	Geocode     *handler.GeocodeHandler
	Session     *handler.SessionHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers *Handlers
	limiter  middleware.RateLimiter
	keyFn    middleware.RateLimitKeyFunc
}

// Option 路由器选项
type Option func(*Router)

// WithRateLimiter 启用按客户端 + 路由的限流
func WithRateLimiter(limiter middleware.RateLimiter, keyFn middleware.RateLimitKeyFunc) Option {
	return func(r *Router) {
		r.limiter = limiter
		r.keyFn = keyFn
	}
}

// New 创建新的路由器
func New(cfg *config.Config, handlers *Handlers, opts ...Option) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		cfg:      cfg,
		handlers: handlers,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	// 系统端点
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)
	r.engine.GET("/live", r.handlers.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.engine.Group("/v1")
	v1.Use(middleware.RateLimit(r.cfg.Security.RateLimit, r.limiter, r.keyFn))
	RegisterV1Routes(v1, r.handlers)
}
