// Package orchestration 多人格编排：决定哪些行星人格回复用户消息，一次模型调用生成全部回复并校验
package orchestration

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"astro-persona-api/internal/application/persona"
	"astro-persona-api/internal/config"
	"astro-persona-api/internal/domain/entity"
	llmctx "astro-persona-api/internal/domain/service"
	wfmodel "astro-persona-api/internal/workflow/model"
	wfnode "astro-persona-api/internal/workflow/node"
	workflowport "astro-persona-api/internal/workflow/port"
	workflowprompt "astro-persona-api/internal/workflow/prompt"
	apperrors "astro-persona-api/pkg/errors"
	"astro-persona-api/pkg/logger"
	"astro-persona-api/pkg/metrics"
	"astro-persona-api/pkg/tracer"
)

const responseSchemaName = "persona_responses"

// Input 一轮编排的输入
type Input struct {
	Message    string
	Placements map[entity.Body]*entity.PlanetPlacement
	History    []*entity.ChatMessage
	Provider   string
	Model      string
}

// Response 单个人格的回复
type Response struct {
	Body    entity.Body `json:"planet"`
	Message string      `json:"message"`
}

// Result 编排结果，Responses 有序且 1..3 条
type Result struct {
	Responses []Response
	Mentioned []entity.Body
	Attempts  int
	Meta      wfmodel.LLMUsageMeta
}

// ProviderRouter 重试时轮换的提供商顺序
type ProviderRouter interface {
	ProviderChain(name string) []string
}

// Engine 编排引擎
type Engine struct {
	llm        workflowport.LLMProvider
	compositor persona.Compositor
	router     ProviderRouter
	cfg        config.OrchestrationConfig
	roll       func() float64
	newBackOff func() backoff.BackOff
}

// Option 引擎选项
type Option func(*Engine)

// WithProviderRouter 上游重试时按提供商链轮换
func WithProviderRouter(r ProviderRouter) Option {
	return func(e *Engine) { e.router = r }
}

// WithRand 替换第三条回复的随机源
func WithRand(roll func() float64) Option {
	return func(e *Engine) {
		if roll != nil {
			e.roll = roll
		}
	}
}

// WithBackOff 替换重试退避策略
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(e *Engine) {
		if newBackOff != nil {
			e.newBackOff = newBackOff
		}
	}
}

// NewEngine 创建编排引擎
func NewEngine(llm workflowport.LLMProvider, compositor persona.Compositor, cfg config.OrchestrationConfig, opts ...Option) *Engine {
	if cfg.MaxResponses <= 0 || cfg.MaxResponses > 3 {
		cfg.MaxResponses = 3
	}
	if cfg.MaxMessageRunes <= 0 {
		cfg.MaxMessageRunes = 300
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 1
	}
	e := &Engine{
		llm:        llm,
		compositor: compositor,
		cfg:        cfg,
		roll:       rand.Float64,
	}
	e.newBackOff = e.defaultBackOff
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if e.cfg.Retry.Initial > 0 {
		b.InitialInterval = e.cfg.Retry.Initial
	}
	if e.cfg.Retry.Max > 0 {
		b.MaxInterval = e.cfg.Retry.Max
	}
	if e.cfg.Retry.Multiplier > 1 {
		b.Multiplier = e.cfg.Retry.Multiplier
	}
	return b
}

// Orchestrate 为一条用户消息生成 1..3 条人格回复
func (e *Engine) Orchestrate(ctx context.Context, in *Input) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "orchestration.orchestrate")
	m := newMachine()
	defer func() {
		status := "success"
		if err != nil {
			status = string(apperrors.AsAppError(err).Code)
		}
		metrics.OrchestrationTotal.WithLabelValues(status).Inc()
		if res != nil {
			metrics.OrchestrationResponses.Observe(float64(len(res.Responses)))
		}
		tracer.End(span, err)
	}()

	// 1. 输入校验
	if in == nil || strings.TrimSpace(in.Message) == "" || len(in.Placements) == 0 {
		return nil, apperrors.ErrEmptyInput
	}
	message := strings.TrimSpace(in.Message)

	// 2. 组合指令：人格、点名、对话记录
	mentioned := DetectMentions(message, in.Placements)
	req := e.buildRequest(message, in, mentioned)

	// 3. 一次上游调用
	m.transition(ctx, StateAwaitingCompletion)
	out, attempts, err := e.complete(ctx, req, in.Provider)
	if err != nil {
		m.fail(ctx)
		return nil, err
	}

	// 4. 解析
	m.transition(ctx, StateValidating)
	entries, err := parseEntries(out.Content)
	if err != nil {
		logger.Error(ctx, "orchestration response is malformed", err,
			"provider", out.Meta.Provider,
			"raw", out.Content,
		)
		m.fail(ctx)
		return nil, apperrors.ErrMalformedResponse.WithError(err)
	}

	// 5-6. 逐条校验
	responses, dropped := validateEntries(entries, in.Placements, e.cfg.MaxMessageRunes)
	for reason, n := range dropped {
		metrics.OrchestrationDroppedEntries.WithLabelValues(reason).Add(float64(n))
	}
	if len(dropped) > 0 {
		logger.Info(ctx, "orchestration entries dropped", "dropped", dropped, "kept", len(responses))
	}
	if len(responses) == 0 {
		logger.Warn(ctx, "orchestration produced no valid responses", "raw", out.Content)
		m.fail(ctx)
		return nil, apperrors.ErrNoValidResponses
	}

	// 7. 点名优先并限制条数
	responses = prioritize(responses, mentioned)
	limit := ResponseCap(len(mentioned), e.cfg.MaxResponses, e.cfg.ThirdResponseProbability, e.roll)
	if len(responses) > limit {
		responses = responses[:limit]
	}

	m.transition(ctx, StateIdle)
	return &Result{
		Responses: responses,
		Mentioned: mentioned,
		Attempts:  attempts,
		Meta:      out.Meta,
	}, nil
}

func (e *Engine) buildRequest(message string, in *Input, mentioned []entity.Body) *wfmodel.CompletionRequest {
	briefs := make([]wfmodel.PersonaBrief, 0, len(in.Placements))
	for _, b := range entity.AllBodies() {
		p, ok := in.Placements[b]
		if !ok || p == nil {
			continue
		}
		briefs = append(briefs, wfmodel.PersonaBrief{
			Name:            string(b),
			DisplayName:     b.DisplayName(),
			Sign:            string(p.Sign),
			House:           int(p.House),
			Retrograde:      p.Retrograde,
			Prompt:          persona.ComposePlacement(e.compositor, p),
			SelfDescription: p.Persona,
		})
	}

	mentionedNames := make([]string, 0, len(mentioned))
	for _, b := range mentioned {
		mentionedNames = append(mentionedNames, b.DisplayName())
	}

	history := in.History
	if n := e.cfg.HistoryWindow; n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	lines := make([]wfmodel.TranscriptLine, 0, len(history))
	for _, msg := range history {
		if msg == nil || msg.Status == entity.MessageStatusFailed {
			continue
		}
		lines = append(lines, wfmodel.TranscriptLine{Speaker: msg.DisplaySender(), Content: msg.Content})
	}

	req := &wfmodel.CompletionRequest{
		Workflow: llmctx.WorkflowOrchestration,
		PromptID: string(workflowprompt.PromptOrchestrationV1),
		Vars: map[string]any{
			"personas_block":   wfnode.BuildPersonasBlock(briefs),
			"mentioned_block":  wfnode.BuildMentionedBlock(mentionedNames),
			"max_chars":        e.cfg.MaxMessageRunes,
			"transcript_block": wfnode.BuildTranscriptBlock(lines, e.cfg.MaxMessageRunes),
			"user_message":     message,
		},
		SchemaName: responseSchemaName,
		Schema:     ResponseSchema(e.cfg.MaxMessageRunes, e.cfg.MaxResponses),
		Model:      strings.TrimSpace(in.Model),
	}
	if e.cfg.Temperature > 0 {
		t := float32(e.cfg.Temperature)
		req.Temperature = &t
	}
	return req
}

// complete 调用上游；超时与传输错误视为 UpstreamUnavailable，按指数退避重试并轮换提供商
func (e *Engine) complete(ctx context.Context, req *wfmodel.CompletionRequest, provider string) (*wfmodel.CompletionResult, int, error) {
	providers := []string{strings.TrimSpace(provider)}
	if e.router != nil {
		if chain := e.router.ProviderChain(provider); len(chain) > 0 {
			providers = chain
		}
	}

	attempts := 0
	op := func() (*wfmodel.CompletionResult, error) {
		p := providers[attempts%len(providers)]
		attempts++

		call := *req
		call.Provider = p
		if p != providers[0] {
			// 切换提供商后使用其默认模型
			call.Model = ""
		}

		callCtx := ctx
		if e.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
			defer cancel()
		}

		out, err := e.llm.Complete(callCtx, &call)
		if err == nil {
			if out == nil {
				return nil, backoff.Permanent(apperrors.ErrMalformedResponse.WithDetail("empty completion"))
			}
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(apperrors.ErrUpstreamUnavailable.WithError(err))
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) || wfnode.IsTransientLLMError(err) {
			logger.Warn(ctx, "orchestration upstream call failed",
				"provider", p,
				"attempt", attempts,
				"error", err.Error(),
			)
			return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
		}
		logger.Error(ctx, "orchestration upstream call rejected", err, "provider", p)
		return nil, backoff.Permanent(apperrors.ErrUpstreamUnavailable.WithError(err))
	}

	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(e.newBackOff()),
		backoff.WithMaxTries(e.cfg.Retry.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.OrchestrationRetries.Inc()
			logger.Debug(ctx, "retrying orchestration upstream call", "next", next.String())
		}),
	)
	if err != nil {
		if !apperrors.IsAppError(err) {
			err = apperrors.ErrUpstreamUnavailable.WithError(err)
		}
		return nil, attempts, err
	}
	return out, attempts, nil
}

// ResponseSchema 结构化输出约束：{responses: [{planet: 十天体之一, message: 限长文本}]}
func ResponseSchema(maxRunes, maxItems int) map[string]any {
	names := make([]any, 0, 10)
	for _, b := range entity.AllBodies() {
		names = append(names, string(b))
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"responses"},
		"properties": map[string]any{
			"responses": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": maxItems,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"planet", "message"},
					"properties": map[string]any{
						"planet":  map[string]any{"type": "string", "enum": names},
						"message": map[string]any{"type": "string", "maxLength": maxRunes},
					},
				},
			},
		},
	}
}
