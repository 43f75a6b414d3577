// Package chart 本命星盘计算：儒略日换算、星历查询、星座/宫位/逆行判定
package chart

import (
	"context"

	"astro-persona-api/internal/domain/entity"
)

// Ephemeris 星历引擎端口
type Ephemeris interface {
	// Observe 返回天体在 jd (UT) 的地心黄经与黄经速度
	Observe(ctx context.Context, jd float64, body entity.Body) (entity.Observation, error)
}

// Geocoder 地理编码端口
type Geocoder interface {
	// Resolve 把地点文本解析为坐标，取最佳匹配
	Resolve(ctx context.Context, query string) (*entity.Location, error)
}
