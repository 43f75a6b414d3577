package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"astro-persona-api/internal/application/chart"
	"astro-persona-api/internal/application/session"
	"astro-persona-api/internal/config"
	"astro-persona-api/internal/domain/entity"
	"astro-persona-api/internal/interfaces/http/dto"
	"astro-persona-api/pkg/errors"
	"astro-persona-api/pkg/logger"
)

// SessionService 会话服务
type SessionService interface {
	Create(ctx context.Context, in *entity.BirthInput) (*session.Session, error)
	Chart(ctx context.Context, sessionID string) (*entity.BirthChart, error)
	SendMessage(ctx context.Context, sessionID, content string, opts session.SendOptions) (*session.Turn, error)
	History(ctx context.Context, sessionID string, lastN int) ([]*entity.ChatMessage, error)
	UpdateMessage(ctx context.Context, sessionID, messageID string, patch entity.ChatMessagePatch) (*entity.ChatMessage, error)
	Clear(ctx context.Context, sessionID string) error
	Delete(ctx context.Context, sessionID string) error
}

// SessionHandler 会话处理器
type SessionHandler struct {
	cfg      *config.Config
	sessions SessionService
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(cfg *config.Config, sessions SessionService) *SessionHandler {
	return &SessionHandler{
		cfg:      cfg,
		sessions: sessions,
	}
}

// CreateSession 创建会话
// @Summary 创建会话
// @Description 计算星盘并写入一条系统问候
// @Tags Sessions
// @Accept json
// @Produce json
// @Param body body dto.CreateSessionRequest true "出生数据"
// @Success 201 {object} dto.Response[dto.SessionResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	s, err := h.sessions.Create(c.Request.Context(), req.ToBirthInput())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Created(c, dto.ToSessionResponse(s))
}

// GetSession 获取会话星盘
// @Summary 获取会话星盘
// @Tags Sessions
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("sid")

	birthChart, err := h.sessions.Chart(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, &dto.SessionResponse{
		SessionID: sessionID,
		Chart:     chart.Summarize(birthChart),
	})
}

// DeleteSession 删除会话
// @Summary 删除会话
// @Tags Sessions
// @Param sid path string true "会话 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid} [delete]
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("sid")); err != nil {
		respondError(c, err)
		return
	}
	dto.NoContent(c)
}

// ListMessages 获取历史消息
// @Summary 获取历史消息
// @Tags Sessions
// @Produce json
// @Param sid path string true "会话 ID"
// @Param last query int false "最近 N 条，0 表示全部"
// @Success 200 {object} dto.Response[dto.HistoryResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/messages [get]
func (h *SessionHandler) ListMessages(c *gin.Context) {
	msgs, err := h.sessions.History(c.Request.Context(), c.Param("sid"), dto.BindHistoryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, &dto.HistoryResponse{Messages: dto.ToChatMessageList(msgs)})
}

// SendMessage 发送消息并获取人格回复
// @Summary 发送消息
// @Description 同一会话的消息排队处理；失败时不写入任何消息
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.SendMessageRequest true "消息"
// @Success 200 {object} dto.Response[dto.TurnResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/messages [post]
func (h *SessionHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	provider, model, err := resolveProviderModel(h.cfg, req.Provider, req.Model)
	if err != nil {
		respondError(c, errors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	ctx := logger.WithContext(c.Request.Context(), logger.SessionIDKey, c.Param("sid"))
	turn, err := h.sessions.SendMessage(ctx, c.Param("sid"), req.Content, session.SendOptions{
		Provider: provider,
		Model:    model,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToTurnResponse(turn))
}

// UpdateMessage 更新消息状态或内容
// @Summary 更新消息
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param mid path string true "消息 ID"
// @Param body body dto.UpdateMessageRequest true "更新字段"
// @Success 200 {object} dto.Response[dto.ChatMessage]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/messages/{mid} [patch]
func (h *SessionHandler) UpdateMessage(c *gin.Context) {
	var req dto.UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	msg, err := h.sessions.UpdateMessage(c.Request.Context(), c.Param("sid"), c.Param("mid"), req.ToPatch())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToChatMessageResponse(msg))
}

// ClearMessages 清空历史消息
// @Summary 清空历史消息
// @Tags Sessions
// @Param sid path string true "会话 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/messages [delete]
func (h *SessionHandler) ClearMessages(c *gin.Context) {
	if err := h.sessions.Clear(c.Request.Context(), c.Param("sid")); err != nil {
		respondError(c, err)
		return
	}
	dto.NoContent(c)
}
