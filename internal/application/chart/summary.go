package chart

import (
	"math"

	"astro-persona-api/internal/domain/entity"
)

// PlanetSummary 对外输出的单个行星
type PlanetSummary struct {
	Planet     string  `json:"planet"`
	Deg        float64 `json:"deg"`
	Sign       string  `json:"sign"`
	House      int     `json:"house"`
	Retrograde bool    `json:"retrograde"`
}

// Summary 对外输出的星盘，行星按固定枚举顺序
type Summary struct {
	Planets     []PlanetSummary `json:"planets"`
	HouseSystem string          `json:"house_system"`
	Ascendant   string          `json:"ascendant,omitempty"`
}

// Summarize 把星盘转为对外输出结构
func Summarize(c *entity.BirthChart) *Summary {
	out := &Summary{
		Planets:     make([]PlanetSummary, 0, len(c.Placements)),
		HouseSystem: string(c.HouseSystem),
	}
	if c.Ascendant != nil {
		out.Ascendant = string(*c.Ascendant)
	}
	for _, p := range c.Ordered() {
		out.Planets = append(out.Planets, PlanetSummary{
			Planet:     string(p.Body),
			Deg:        math.Round(p.Longitude*1e4) / 1e4,
			Sign:       string(p.Sign),
			House:      int(p.House),
			Retrograde: p.Retrograde,
		})
	}
	return out
}
