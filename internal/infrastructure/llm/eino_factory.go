// Package llm 管理 Eino ChatModel 客户端
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"astro-persona-api/internal/config"
)

// EinoFactory 管理多个 Eino ChatModel 客户端实例
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定名称的 ChatModel，如果未指定则返回默认客户端
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = f.config.DefaultProvider
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}
	if strings.TrimSpace(providerCfg.APIKey) == "" {
		return nil, fmt.Errorf("provider %s has no api key configured", name)
	}

	// 使用 Eino 的 OpenAI 适配器，兼容所有 OpenAI 协议的提供商
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      providerCfg.APIKey,
		BaseURL:     providerCfg.BaseURL,
		Model:       providerCfg.Model,
		MaxTokens:   ptr(providerCfg.MaxTokens),
		Temperature: ptr(float32(providerCfg.Temperature)),
		Timeout:     providerCfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	f.models[name] = chatModel
	return chatModel, nil
}

// ProviderChain 请求的提供商在前，随后是 fallback_chain 中其余配置了 api key 的提供商
func (f *EinoFactory) ProviderChain(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = f.config.DefaultProvider
	}
	out := []string{name}
	seen := map[string]bool{name: true}
	for _, p := range f.config.FallbackChain {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		if pc, ok := f.config.Providers[p]; !ok || strings.TrimSpace(pc.APIKey) == "" {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// ModelName 提供商配置的默认模型名
func (f *EinoFactory) ModelName(name string) string {
	if strings.TrimSpace(name) == "" {
		name = f.config.DefaultProvider
	}
	return f.config.Providers[name].Model
}

func ptr[T any](v T) *T {
	return &v
}
