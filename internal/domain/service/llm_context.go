// Package service 提供领域级的上下文辅助
package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyWorkflow llmCtxKey = "llm_workflow"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
	llmCtxKeyModel    llmCtxKey = "llm_model"
)

// 工作流名称
const (
	WorkflowOrchestration = "orchestration"
	WorkflowPersona       = "persona_description"
)

func WithWorkflow(ctx context.Context, workflow string) context.Context {
	if ctx == nil {
		return nil
	}
	w := strings.TrimSpace(workflow)
	if w == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyWorkflow, w)
}

func WithProvider(ctx context.Context, provider string) context.Context {
	if ctx == nil {
		return nil
	}
	p := strings.TrimSpace(provider)
	if p == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyProvider, p)
}

func WithModel(ctx context.Context, model string) context.Context {
	if ctx == nil {
		return nil
	}
	m := strings.TrimSpace(model)
	if m == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyModel, m)
}

func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	return WithProvider(WithWorkflow(ctx, workflow), provider)
}

func ModelFromContext(ctx context.Context) string {
	return valueOrUnknown(ctx, llmCtxKeyModel)
}

func WorkflowFromContext(ctx context.Context) string {
	return valueOrUnknown(ctx, llmCtxKeyWorkflow)
}

func ProviderFromContext(ctx context.Context) string {
	return valueOrUnknown(ctx, llmCtxKeyProvider)
}

func valueOrUnknown(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return "unknown"
	}
	s, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.TrimSpace(s)
}
