// Package port 定义工作流层对外部模型服务的最小依赖
package port

import (
	"context"

	"github.com/cloudwego/eino/components/model"

	wfmodel "astro-persona-api/internal/workflow/model"
)

// ChatModelFactory 定义工作流层对 LLM ChatModel 的最小依赖（port）。
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// ModelNamer 可选：解析提供商的默认模型名，用于用量标签
type ModelNamer interface {
	ModelName(provider string) string
}

// LLMProvider 抽象的补全服务：一次请求，一次完整结果
type LLMProvider interface {
	Complete(ctx context.Context, req *wfmodel.CompletionRequest) (*wfmodel.CompletionResult, error)
}
