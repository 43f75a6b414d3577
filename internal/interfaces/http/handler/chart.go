package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"astro-persona-api/internal/application/chart"
	"astro-persona-api/internal/domain/entity"
	"astro-persona-api/internal/interfaces/http/dto"
)

// ChartComputer 星盘计算
type ChartComputer interface {
	Compute(ctx context.Context, in *entity.BirthInput, opts ...chart.ComputeOption) (*entity.BirthChart, error)
}

// ChartHandler 星盘处理器
type ChartHandler struct {
	charts ChartComputer
}

// NewChartHandler 创建星盘处理器
func NewChartHandler(charts ChartComputer) *ChartHandler {
	return &ChartHandler{charts: charts}
}

// ComputeChart 计算本命星盘
// @Summary 计算本命星盘
// @Description 十个天体按固定顺序返回黄经、星座、宫位与逆行状态
// @Tags Charts
// @Accept json
// @Produce json
// @Param body body dto.BirthRequest true "出生数据"
// @Success 200 {object} dto.Response[chart.Summary]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/charts [post]
func (h *ChartHandler) ComputeChart(c *gin.Context) {
	var req dto.BirthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	birthChart, err := h.charts.Compute(c.Request.Context(), req.ToBirthInput())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, chart.Summarize(birthChart))
}
