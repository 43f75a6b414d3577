//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"astro-persona-api/internal/config"
	"astro-persona-api/internal/infrastructure/llm"
	"astro-persona-api/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		StorageSet,
		ChartSet,
		LLMSet,
		SessionSet,
		RouterSet,
	)
	return nil, nil, nil
}

// StorageSet 会话存储、锁与缓存
var StorageSet = wire.NewSet(
	ProvideRedisClientOptional,
	ProvideSessionStore,
	ProvideSessionLocker,
	ProvidePersonaCache,
	ProvideRateLimiter,
	ProvideHealthChecker,
)

// ChartSet 星盘计算
var ChartSet = wire.NewSet(
	ProvideGeocoder,
	ProvideCalculator,
)

// LLMSet 模型、人格与编排
var LLMSet = wire.NewSet(
	llm.NewEinoFactory,
	ProvideLLMProvider,
	ProvideCompositor,
	ProvideGenerator,
	ProvideEngine,
)

// SessionSet 会话服务
var SessionSet = wire.NewSet(
	ProvideSessionService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHandlers,
	ProvideRouter,
)
