package eino

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	llmctx "astro-persona-api/internal/domain/service"
	"astro-persona-api/pkg/metrics"
)

func TestChatModelCallbackRecordsUsage(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := llmctx.WithWorkflowProvider(context.Background(), "callback_test", "fake")
	ctx = llmctx.WithModel(ctx, "fake-model")

	ctx = h.OnStart(ctx, nil, &model.CallbackInput{})
	assert.Greater(t, elapsedSeconds(ctx), -1.0)

	h.OnEnd(ctx, nil, &model.CallbackOutput{
		Message:    schema.AssistantMessage("ok", nil),
		TokenUsage: &model.TokenUsage{PromptTokens: 120, CompletionTokens: 30},
	})

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("callback_test", "fake", "fake-model", "success")), 1e-9)
	assert.InDelta(t, 120, testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("callback_test", "fake", "fake-model", "prompt")), 1e-9)
	assert.InDelta(t, 30, testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("callback_test", "fake", "fake-model", "completion")), 1e-9)
}

func TestElapsedSecondsWithoutStart(t *testing.T) {
	assert.Zero(t, elapsedSeconds(context.Background()))

	ctx := context.WithValue(context.Background(), startTimeKey{}, time.Now().Add(-time.Second))
	assert.GreaterOrEqual(t, elapsedSeconds(ctx), 1.0)
}
