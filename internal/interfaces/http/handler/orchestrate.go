package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"astro-persona-api/internal/application/orchestration"
	"astro-persona-api/internal/config"
	"astro-persona-api/internal/interfaces/http/dto"
	"astro-persona-api/pkg/errors"
)

// SessionOrchestrator 可选地按会话互斥的编排
type SessionOrchestrator interface {
	Orchestrate(ctx context.Context, sessionID string, in *orchestration.Input) (*orchestration.Result, error)
}

// OrchestrateHandler 无状态编排处理器
type OrchestrateHandler struct {
	cfg          *config.Config
	orchestrator SessionOrchestrator
}

// NewOrchestrateHandler 创建编排处理器
func NewOrchestrateHandler(cfg *config.Config, orchestrator SessionOrchestrator) *OrchestrateHandler {
	return &OrchestrateHandler{
		cfg:          cfg,
		orchestrator: orchestrator,
	}
}

// Orchestrate 一轮多人格回复
// @Summary 多人格编排
// @Description 由客户端提供全部落点与历史，返回 1 到 3 条人格回复；带 session_id 时与该会话其他轮次排队执行
// @Tags Orchestration
// @Accept json
// @Produce json
// @Param body body dto.OrchestrateRequest true "编排请求"
// @Success 200 {object} dto.Response[dto.OrchestrateResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/orchestrate [post]
func (h *OrchestrateHandler) Orchestrate(c *gin.Context) {
	var req dto.OrchestrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	provider, model, err := resolveProviderModel(h.cfg, req.Provider, req.Model)
	if err != nil {
		respondError(c, errors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	in, err := req.ToInput(provider, model)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.orchestrator.Orchestrate(c.Request.Context(), req.SessionID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToOrchestrateResponse(res))
}
