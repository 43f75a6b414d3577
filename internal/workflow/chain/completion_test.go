package chain

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wfmodel "astro-persona-api/internal/workflow/model"
	workflowprompt "astro-persona-api/internal/workflow/prompt"
)

type scriptedModel struct {
	mu       sync.Mutex
	replies  []*schema.Message
	errs     []error
	calls    int
	lastMsgs []*schema.Message
	optCount []int
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	m.lastMsgs = input
	m.optCount = append(m.optCount, len(opts))
	var err error
	if i < len(m.errs) {
		err = m.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	return m.replies[len(m.replies)-1], nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

type staticFactory struct {
	model model.BaseChatModel
	err   error
	names []string
}

func (f *staticFactory) Get(_ context.Context, name string) (model.BaseChatModel, error) {
	f.names = append(f.names, name)
	return f.model, f.err
}

type namedFactory struct {
	staticFactory
	defaults map[string]string
}

func (f *namedFactory) ModelName(provider string) string { return f.defaults[provider] }

func personaRequest() *wfmodel.CompletionRequest {
	temp := float32(0.7)
	return &wfmodel.CompletionRequest{
		Workflow: "persona_description",
		PromptID: string(workflowprompt.PromptPersonaV1),
		Vars: map[string]any{
			"max_chars":       280,
			"persona_prompt":  "You are Venus.",
			"display_name":    "Venus",
			"sign":            "Libra",
			"retrograde_note": "",
		},
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		Temperature: &temp,
		Schema:      map[string]any{"type": "object"},
		SchemaName:  "persona",
	}
}

func TestCompletionChainComplete(t *testing.T) {
	out := schema.AssistantMessage("I like things pretty.", nil)
	out.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 50, CompletionTokens: 9}}
	m := &scriptedModel{replies: []*schema.Message{out}}
	f := &staticFactory{model: m}

	res, err := NewCompletionChain(f).Complete(context.Background(), personaRequest())
	require.NoError(t, err)

	assert.Equal(t, "I like things pretty.", res.Content)
	assert.Equal(t, 50, res.Meta.PromptTokens)
	assert.Equal(t, 9, res.Meta.CompletionTokens)
	assert.Equal(t, wfmodel.SchemaModeJSONSchema, res.Meta.SchemaMode)
	assert.InDelta(t, 0.7, res.Meta.Temperature, 1e-6)
	assert.Equal(t, []string{"openai"}, f.names)
	assert.Equal(t, 1, m.calls)
	require.Len(t, m.lastMsgs, 2)
	assert.Contains(t, m.lastMsgs[1].Content, "Venus in Libra")
}

func TestCompletionChainReportsProviderDefaultModel(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("ok", nil)}}
	f := &namedFactory{staticFactory: staticFactory{model: m}, defaults: map[string]string{"deepseek": "deepseek-chat"}}

	req := personaRequest()
	req.Provider = "deepseek"
	req.Model = ""
	res, err := NewCompletionChain(f).Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", res.Meta.Model)

	// 请求显式指定的模型优先
	res, err = NewCompletionChain(f).Complete(context.Background(), personaRequest())
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", res.Meta.Model)
}

func TestCompletionChainFallsBackWithoutSchema(t *testing.T) {
	m := &scriptedModel{
		errs:    []error{errors.New("invalid parameter: response_format is not supported"), nil},
		replies: []*schema.Message{nil, schema.AssistantMessage("ok", nil)},
	}

	res, err := NewCompletionChain(&staticFactory{model: m}).Complete(context.Background(), personaRequest())
	require.NoError(t, err)

	assert.Equal(t, 2, m.calls)
	assert.Equal(t, wfmodel.SchemaModePromptOnly, res.Meta.SchemaMode)
	// 第二次调用不再携带 response_format
	assert.Equal(t, m.optCount[0]-1, m.optCount[1])
}

func TestCompletionChainPropagatesTransportError(t *testing.T) {
	m := &scriptedModel{errs: []error{errors.New("status code: 503")}}
	_, err := NewCompletionChain(&staticFactory{model: m}).Complete(context.Background(), personaRequest())

	require.Error(t, err)
	assert.ErrorContains(t, err, "503")
	assert.Equal(t, 1, m.calls)
}

func TestCompletionChainRejectsUnknownPrompt(t *testing.T) {
	req := personaRequest()
	req.PromptID = "missing_v9"
	_, err := NewCompletionChain(&staticFactory{model: &scriptedModel{}}).Complete(context.Background(), req)
	assert.Error(t, err)
}
