package wire

import (
	"fmt"
	"time"

	"astro-persona-api/internal/application/chart"
	"astro-persona-api/internal/application/orchestration"
	"astro-persona-api/internal/application/persona"
	"astro-persona-api/internal/application/session"
	"astro-persona-api/internal/config"
	"astro-persona-api/internal/domain/entity"
	"astro-persona-api/internal/domain/repository"
	"astro-persona-api/internal/infrastructure/ephemeris"
	"astro-persona-api/internal/infrastructure/geocoding"
	"astro-persona-api/internal/infrastructure/llm"
	"astro-persona-api/internal/infrastructure/persistence/memory"
	"astro-persona-api/internal/infrastructure/persistence/redis"
	"astro-persona-api/internal/interfaces/http/handler"
	"astro-persona-api/internal/interfaces/http/middleware"
	"astro-persona-api/internal/interfaces/http/router"
	"astro-persona-api/internal/workflow/chain"
	workflowport "astro-persona-api/internal/workflow/port"
)

// ProvideRedisClientOptional Redis 未启用时返回 nil
func ProvideRedisClientOptional(cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideSessionStore session.store=redis 且 Redis 可用时使用 Redis，否则进程内存储（后台清理过期会话）
func ProvideSessionStore(cfg *config.Config, client *redis.Client) (repository.SessionStore, func(), error) {
	switch cfg.Session.Store {
	case "redis":
		if client == nil {
			return nil, nil, fmt.Errorf("session store redis requires cache.redis.enabled")
		}
		return redis.NewSessionStore(client, cfg.Session.TTL), func() {}, nil
	case "", "memory":
		store := memory.NewSessionStore(cfg.Session.TTL)
		stop := store.StartSweeper(sweepInterval(cfg.Session.TTL))
		return store, stop, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store: %s", cfg.Session.Store)
	}
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval > 10*time.Minute {
		interval = 10 * time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

// ProvideSessionLocker 与会话存储同源的会话锁。
// Redis 锁的 lock_ttl 不得短于一轮编排的最长耗时。
func ProvideSessionLocker(cfg *config.Config, client *redis.Client) (repository.SessionLocker, error) {
	if cfg.Session.Store == "redis" && client != nil {
		if need := cfg.Orchestration.WorstCaseDuration(); cfg.Session.LockTTL < need {
			return nil, fmt.Errorf("session.lock_ttl %s is shorter than the worst-case orchestration time %s", cfg.Session.LockTTL, need)
		}
		return redis.NewLocker(client, cfg.Session.LockTTL, cfg.Session.LockWaitTimeout), nil
	}
	return memory.NewLocker(cfg.Session.LockWaitTimeout), nil
}

// ProvidePersonaCache Redis 可用时跨进程共享人格缓存
func ProvidePersonaCache(client *redis.Client) persona.Cache {
	if client == nil {
		return memory.NewCache()
	}
	return redis.NewCache(client)
}

// ProvideRateLimiter 限流依赖 Redis，未启用时返回 nil
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideHealthChecker 就绪检查对象
func ProvideHealthChecker(client *redis.Client) handler.HealthChecker {
	if client == nil {
		return nil
	}
	return client
}

// ProvideGeocoder 地理编码客户端
func ProvideGeocoder(cfg *config.Config) *geocoding.Client {
	return geocoding.NewClient(cfg.Geocoding)
}

// ProvideCalculator 星盘计算器
func ProvideCalculator(cfg *config.Config, geo *geocoding.Client) (*chart.Calculator, error) {
	loc := time.UTC
	if tz := cfg.Chart.DefaultTimezone; tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid chart.default_timezone %q: %w", tz, err)
		}
		loc = l
	}
	return chart.NewCalculator(
		ephemeris.NewKeplerian(cfg.Ephemeris.SpeedStepDays),
		chart.WithGeocoder(geo),
		chart.WithHouseSystem(entity.ParseHouseSystem(cfg.Chart.HouseSystem)),
		chart.WithDefaultTimezone(loc),
	), nil
}

// ProvideCompositor 按配置选择人格合成策略
func ProvideCompositor(cfg *config.Config) (persona.Compositor, error) {
	tables, err := persona.DefaultTables()
	if err != nil {
		return nil, err
	}
	return persona.NewCompositor(cfg.Persona.Strategy, tables)
}

// ProvideLLMProvider 基于 Eino 编排链的补全服务
func ProvideLLMProvider(factory *llm.EinoFactory) workflowport.LLMProvider {
	return chain.NewCompletionChain(factory)
}

// ProvideGenerator 人格自述生成器
func ProvideGenerator(cfg *config.Config, provider workflowport.LLMProvider, compositor persona.Compositor, cache persona.Cache) *persona.Generator {
	return persona.NewGenerator(provider, compositor, cache, persona.GeneratorConfig{
		Provider:    cfg.LLM.DefaultProvider,
		Temperature: float32(cfg.Orchestration.Temperature),
		MaxRunes:    cfg.Persona.MaxRunes,
		CacheTTL:    cfg.Persona.CacheTTL,
	})
}

// ProvideEngine 编排引擎，重试时沿 fallback_chain 轮换提供商
func ProvideEngine(cfg *config.Config, provider workflowport.LLMProvider, compositor persona.Compositor, factory *llm.EinoFactory) *orchestration.Engine {
	return orchestration.NewEngine(provider, compositor, cfg.Orchestration, orchestration.WithProviderRouter(factory))
}

// ProvideSessionService 会话服务
func ProvideSessionService(
	cfg *config.Config,
	calc *chart.Calculator,
	engine *orchestration.Engine,
	generator *persona.Generator,
	store repository.SessionStore,
	locker repository.SessionLocker,
) *session.Service {
	return session.NewService(calc, engine, generator, store, locker, session.Config{
		HistoryWindow: cfg.Orchestration.HistoryWindow,
		Pregenerate:   cfg.Persona.Pregenerate,
	})
}

// ProvideHandlers 全部 HTTP 处理器
func ProvideHandlers(
	cfg *config.Config,
	checker handler.HealthChecker,
	calc *chart.Calculator,
	generator *persona.Generator,
	compositor persona.Compositor,
	geo *geocoding.Client,
	svc *session.Service,
) *router.Handlers {
	return &router.Handlers{
		Health:      handler.NewHealthHandler(cfg.App.Version, checker),
		Chart:       handler.NewChartHandler(calc),
		Persona:     handler.NewPersonaHandler(generator, compositor),
		Orchestrate: handler.NewOrchestrateHandler(cfg, svc),
		Geocode:     handler.NewGeocodeHandler(geo),
		Session:     handler.NewSessionHandler(cfg, svc),
	}
}

// ProvideRouter HTTP 路由器
func ProvideRouter(cfg *config.Config, handlers *router.Handlers, limiter middleware.RateLimiter) *router.Router {
	return router.New(cfg, handlers, router.WithRateLimiter(limiter, redis.BuildRateLimitKey))
}
