// Package chain 用 Eino compose 编排 模板渲染 -> 模型调用 -> 结果整理
package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	llmctx "astro-persona-api/internal/domain/service"
	wfmodel "astro-persona-api/internal/workflow/model"
	wfnode "astro-persona-api/internal/workflow/node"
	workflowport "astro-persona-api/internal/workflow/port"
	workflowprompt "astro-persona-api/internal/workflow/prompt"
	"astro-persona-api/pkg/logger"
)

var defaultPromptRegistry = workflowprompt.NewRegistry()

// CompletionChain 基于 ChatModelFactory 的 LLMProvider 实现
type CompletionChain struct {
	factory workflowport.ChatModelFactory

	chainOnce sync.Once
	chain     compose.Runnable[*wfmodel.CompletionRequest, *wfmodel.CompletionResult]
	chainErr  error
}

var _ workflowport.LLMProvider = (*CompletionChain)(nil)

func NewCompletionChain(factory workflowport.ChatModelFactory) *CompletionChain {
	return &CompletionChain{factory: factory}
}

// Complete 渲染模板并发起一次模型调用
func (c *CompletionChain) Complete(ctx context.Context, req *wfmodel.CompletionRequest) (*wfmodel.CompletionResult, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}

	chain, err := c.getChain()
	if err != nil {
		return nil, err
	}
	return chain.Invoke(ctx, req)
}

type completionChainState struct {
	Req        *wfmodel.CompletionRequest
	Messages   []*schema.Message
	OutMsg     *schema.Message
	SchemaMode string
	Model      string
}

func (c *CompletionChain) getChain() (compose.Runnable[*wfmodel.CompletionRequest, *wfmodel.CompletionResult], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *CompletionChain) buildChain(ctx context.Context) (compose.Runnable[*wfmodel.CompletionRequest, *wfmodel.CompletionResult], error) {
	chain := compose.NewChain[*wfmodel.CompletionRequest, *wfmodel.CompletionResult]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, req *wfmodel.CompletionRequest) (*completionChainState, error) {
			if req == nil {
				return nil, fmt.Errorf("request is nil")
			}
			if strings.TrimSpace(req.PromptID) == "" {
				return nil, fmt.Errorf("prompt id is empty")
			}
			return &completionChainState{Req: req}, nil
		}),
		compose.WithNodeName("completion.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *completionChainState) (*completionChainState, error) {
			tpl, err := defaultPromptRegistry.ChatTemplate(workflowprompt.PromptID(st.Req.PromptID))
			if err != nil {
				return nil, err
			}
			msgs, err := tpl.Format(ctx, st.Req.Vars)
			if err != nil {
				return nil, fmt.Errorf("format prompt %s: %w", st.Req.PromptID, err)
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName("completion.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *completionChainState) (*completionChainState, error) {
			provider := strings.TrimSpace(st.Req.Provider)
			st.Model = c.resolveModel(provider, st.Req.Model)
			ctx = llmctx.WithWorkflowProvider(ctx, st.Req.Workflow, provider)
			ctx = llmctx.WithModel(ctx, st.Model)

			chatModel, err := c.factory.Get(ctx, provider)
			if err != nil {
				return nil, err
			}

			withSchema := len(st.Req.Schema) > 0
			st.SchemaMode = wfmodel.SchemaModeNone
			if withSchema {
				st.SchemaMode = wfmodel.SchemaModeJSONSchema
			}

			outMsg, err := chatModel.Generate(ctx, st.Messages, buildModelOptions(st.Req, withSchema)...)
			if err != nil && withSchema && wfnode.IsResponseFormatUnsupportedError(err) {
				logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
					"provider", provider,
					"model", st.Model,
					"error", err.Error(),
				)
				st.SchemaMode = wfmodel.SchemaModePromptOnly
				outMsg, err = chatModel.Generate(ctx, st.Messages, buildModelOptions(st.Req, false)...)
			}
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("completion.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *completionChainState) (*wfmodel.CompletionResult, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			meta := wfmodel.LLMUsageMeta{
				Provider:    strings.TrimSpace(st.Req.Provider),
				Model:       st.Model,
				SchemaMode:  st.SchemaMode,
				GeneratedAt: time.Now().UTC(),
			}
			if st.Req.Temperature != nil {
				meta.Temperature = float64(*st.Req.Temperature)
			}
			if st.OutMsg.ResponseMeta != nil && st.OutMsg.ResponseMeta.Usage != nil {
				meta.PromptTokens = st.OutMsg.ResponseMeta.Usage.PromptTokens
				meta.CompletionTokens = st.OutMsg.ResponseMeta.Usage.CompletionTokens
			}
			return &wfmodel.CompletionResult{Content: st.OutMsg.Content, Meta: meta}, nil
		}),
		compose.WithNodeName("completion.finalize"),
	)

	return chain.Compile(ctx)
}

// resolveModel 请求未指定模型时取提供商的默认模型
func (c *CompletionChain) resolveModel(provider, requested string) string {
	if m := strings.TrimSpace(requested); m != "" {
		return m
	}
	if namer, ok := c.factory.(workflowport.ModelNamer); ok {
		return namer.ModelName(provider)
	}
	return ""
}

func buildModelOptions(req *wfmodel.CompletionRequest, enableSchema bool) []model.Option {
	opts := make([]model.Option, 0, 4)
	if req.Temperature != nil {
		opts = append(opts, model.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*req.MaxTokens))
	}
	if strings.TrimSpace(req.Model) != "" {
		opts = append(opts, model.WithModel(strings.TrimSpace(req.Model)))
	}

	if enableSchema {
		name := strings.TrimSpace(req.SchemaName)
		if name == "" {
			name = "structured_output"
		}
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   name,
					"strict": false,
					"schema": req.Schema,
				},
			},
		}))
	}
	return opts
}
