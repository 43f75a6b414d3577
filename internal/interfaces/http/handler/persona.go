package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"astro-persona-api/internal/application/persona"
	"astro-persona-api/internal/domain/entity"
	"astro-persona-api/internal/interfaces/http/dto"
	"astro-persona-api/pkg/errors"
)

// PersonaGenerator 人格自述生成
type PersonaGenerator interface {
	Generate(ctx context.Context, body entity.Body, sign entity.Sign, retrograde bool) (string, error)
}

// PersonaHandler 人格处理器
type PersonaHandler struct {
	generator  PersonaGenerator
	compositor persona.Compositor
}

// NewPersonaHandler 创建人格处理器
func NewPersonaHandler(generator PersonaGenerator, compositor persona.Compositor) *PersonaHandler {
	return &PersonaHandler{
		generator:  generator,
		compositor: compositor,
	}
}

// GeneratePersona 生成行星人格自述
// @Summary 生成人格自述
// @Description 同一落点的自述会被缓存
// @Tags Personas
// @Accept json
// @Produce json
// @Param body body dto.PersonaRequest true "行星落点"
// @Success 200 {object} dto.Response[dto.PersonaResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/personas [post]
func (h *PersonaHandler) GeneratePersona(c *gin.Context) {
	var req dto.PersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	body, ok := entity.ParseBody(req.Planet)
	if !ok {
		respondError(c, errors.ErrInvalidParam.WithDetail("unknown planet: "+req.Planet))
		return
	}
	sign, ok := entity.ParseSign(req.Sign)
	if !ok {
		respondError(c, errors.ErrInvalidParam.WithDetail("unknown sign: "+req.Sign))
		return
	}

	text, err := h.generator.Generate(c.Request.Context(), body, sign, req.Retrograde)
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Success(c, &dto.PersonaResponse{
		Planet:   string(body),
		Sign:     string(sign),
		Persona:  text,
		Prompt:   h.compositor.Compose(body, sign, entity.House(req.House), req.Retrograde),
		Strategy: h.compositor.Name(),
	})
}
