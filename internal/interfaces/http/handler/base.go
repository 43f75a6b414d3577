// Package handler 提供 HTTP 处理器
package handler

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"astro-persona-api/internal/config"
	"astro-persona-api/internal/interfaces/http/dto"
	"astro-persona-api/pkg/errors"
	"astro-persona-api/pkg/logger"
)

// resolveProviderModel 解析 LLM Provider 和 Model
func resolveProviderModel(cfg *config.Config, provider, model string) (string, string, error) {
	if cfg == nil {
		return "", "", fmt.Errorf("server config not configured")
	}

	p := strings.TrimSpace(provider)
	if p == "" {
		p = strings.TrimSpace(cfg.LLM.DefaultProvider)
	}
	if p == "" {
		return "", "", fmt.Errorf("llm provider not specified")
	}
	if len(p) > 32 {
		return "", "", fmt.Errorf("llm provider too long")
	}

	providerCfg, ok := cfg.LLM.Providers[p]
	if !ok {
		return "", "", fmt.Errorf("llm provider not found: %s", p)
	}

	m := strings.TrimSpace(model)
	if m == "" {
		m = strings.TrimSpace(providerCfg.Model)
	}
	if len(m) > 64 {
		return "", "", fmt.Errorf("llm model too long")
	}
	return p, m, nil
}

// respondError 按 AppError 渲染错误响应；5xx 记录错误日志
func respondError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error(c.Request.Context(), "request failed", err,
			"path", c.FullPath(),
			"error_code", string(appErr.Code),
		)
	}
	dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   appErr.Detail,
	})
}

// respondBindError 请求体解析失败
func respondBindError(c *gin.Context, err error) {
	dto.ErrorWithDetail(c, 400, "invalid request body", &dto.ErrorDetail{
		ErrorCode: string(errors.CodeInvalidParam),
		Details:   err.Error(),
	})
}
