package persona

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"astro-persona-api/internal/domain/entity"
	llmctx "astro-persona-api/internal/domain/service"
	wfmodel "astro-persona-api/internal/workflow/model"
	wfnode "astro-persona-api/internal/workflow/node"
	workflowport "astro-persona-api/internal/workflow/port"
	workflowprompt "astro-persona-api/internal/workflow/prompt"
	apperrors "astro-persona-api/pkg/errors"
	"astro-persona-api/pkg/logger"
	"astro-persona-api/pkg/metrics"
)

// Cache 人格自述缓存，Redis 与进程内实现均提供同名方法
type Cache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
}

// GeneratorConfig 人格自述生成配置
type GeneratorConfig struct {
	Provider    string
	Model       string
	Temperature float32
	MaxRunes    int
	CacheTTL    time.Duration
}

// loadError 标记来自模型生成而非缓存本身的失败，共享同一次加载的请求据此直接返回
type loadError struct {
	err error
}

func (e *loadError) Error() string { return e.err.Error() }
func (e *loadError) Unwrap() error { return e.err }

// Generator 调用 LLM 生成人格的第一人称自述，按落点缓存
type Generator struct {
	llm        workflowport.LLMProvider
	compositor Compositor
	cache      Cache
	cfg        GeneratorConfig
}

// NewGenerator 创建生成器，cache 为 nil 时每次都调用模型
func NewGenerator(llm workflowport.LLMProvider, compositor Compositor, cache Cache, cfg GeneratorConfig) *Generator {
	if cfg.MaxRunes <= 0 {
		cfg.MaxRunes = 280
	}
	return &Generator{
		llm:        llm,
		compositor: compositor,
		cache:      cache,
		cfg:        cfg,
	}
}

// CacheKey persona:<body>:<sign>:<r|d>
func CacheKey(body entity.Body, sign entity.Sign, retrograde bool) string {
	motion := "d"
	if retrograde {
		motion = "r"
	}
	return fmt.Sprintf("persona:%s:%s:%s", body, strings.ToLower(string(sign)), motion)
}

// Generate 返回落点的自述，优先读缓存
func (g *Generator) Generate(ctx context.Context, body entity.Body, sign entity.Sign, retrograde bool) (string, error) {
	if !body.Valid() {
		return "", apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown planet %q", body))
	}
	if !sign.Valid() {
		return "", apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown sign %q", sign))
	}

	if g.cache == nil {
		return g.describe(ctx, body, sign, retrograde)
	}

	key := CacheKey(body, sign, retrograde)
	var loaded atomic.Bool
	raw, err := g.cache.GetOrLoadSafe(ctx, key, g.cfg.CacheTTL, func() (interface{}, error) {
		loaded.Store(true)
		desc, err := g.describe(ctx, body, sign, retrograde)
		if err != nil {
			return nil, &loadError{err: err}
		}
		return desc, nil
	})
	if err != nil {
		var le *loadError
		if errors.As(err, &le) {
			return "", le.err
		}
		// 缓存不可用时直接生成
		metrics.CacheRequestsTotal.WithLabelValues("error").Inc()
		logger.Warn(ctx, "persona cache unavailable, generating directly", "key", key, "error", err.Error())
		return g.describe(ctx, body, sign, retrograde)
	}
	if loaded.Load() {
		metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
	} else {
		metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
	}

	var desc string
	if err := json.Unmarshal(raw, &desc); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeCacheError, "corrupt persona cache entry")
	}
	return desc, nil
}

// Pregenerate 并发为星盘的每个落点填充自述，单个失败只记录日志
func (g *Generator) Pregenerate(ctx context.Context, chart *entity.BirthChart) {
	if chart == nil {
		return
	}
	placements := chart.Ordered()
	descs := make([]string, len(placements))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i, p := range placements {
		eg.Go(func() error {
			desc, err := g.Generate(egCtx, p.Body, p.Sign, p.Retrograde)
			if err != nil {
				logger.Warn(egCtx, "persona pregeneration failed", "planet", string(p.Body), "error", err.Error())
				return nil
			}
			descs[i] = desc
			return nil
		})
	}
	_ = eg.Wait()

	for i, p := range placements {
		if descs[i] != "" {
			p.Persona = descs[i]
		}
	}
}

func (g *Generator) describe(ctx context.Context, body entity.Body, sign entity.Sign, retrograde bool) (string, error) {
	if g.llm == nil {
		return "", apperrors.ErrUpstreamUnavailable.WithDetail("llm provider not configured")
	}

	retroNote := ""
	if retrograde {
		retroNote = ", retrograde"
	}
	temperature := g.cfg.Temperature
	req := &wfmodel.CompletionRequest{
		Workflow: llmctx.WorkflowPersona,
		PromptID: string(workflowprompt.PromptPersonaV1),
		Vars: map[string]any{
			"max_chars":       g.cfg.MaxRunes,
			"persona_prompt":  g.compositor.Compose(body, sign, 0, retrograde),
			"display_name":    body.DisplayName(),
			"sign":            string(sign),
			"retrograde_note": retroNote,
		},
		Provider: g.cfg.Provider,
		Model:    g.cfg.Model,
	}
	if temperature > 0 {
		req.Temperature = &temperature
	}

	res, err := g.llm.Complete(ctx, req)
	if err != nil {
		logger.Error(ctx, "persona generation failed", err, "planet", string(body), "sign", string(sign))
		return "", apperrors.ErrUpstreamUnavailable.WithError(err)
	}

	desc := wfnode.StripStageDirections(strings.Trim(strings.TrimSpace(res.Content), `"`))
	desc = wfnode.TruncateAtWord(desc, g.cfg.MaxRunes)
	if desc == "" {
		logger.Warn(ctx, "persona generation returned empty text", "planet", string(body), "raw", res.Content)
		return "", apperrors.ErrMalformedResponse.WithDetail("empty persona description")
	}
	return desc, nil
}
