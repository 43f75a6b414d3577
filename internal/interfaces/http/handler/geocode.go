package handler

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"astro-persona-api/internal/interfaces/http/dto"
)

// PlaceSearcher 地点联想
type PlaceSearcher interface {
	Predictions(ctx context.Context, query string) (json.RawMessage, error)
}

// GeocodeHandler 地理编码透传处理器
type GeocodeHandler struct {
	places PlaceSearcher
}

// NewGeocodeHandler 创建地理编码处理器
func NewGeocodeHandler(places PlaceSearcher) *GeocodeHandler {
	return &GeocodeHandler{places: places}
}

// Search 地点联想
// @Summary 地点联想
// @Description 原样返回地理编码服务的候选结果
// @Tags Geocoding
// @Produce json
// @Param q query string true "地点文本"
// @Success 200 {object} dto.Response[json.RawMessage]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/geocode [get]
func (h *GeocodeHandler) Search(c *gin.Context) {
	predictions, err := h.places.Predictions(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, predictions)
}
