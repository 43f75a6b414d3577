package chart

import (
	"math"

	"astro-persona-api/internal/domain/entity"
)

// AscendantLongitude 上升点黄经（度），lat/lon 为地理纬度与东经
func AscendantLongitude(jd, lat, lon float64) float64 {
	t := julianCenturies(jd)

	// 格林尼治平恒星时
	gmst := 280.46061837 + 360.98564736629*(jd-2451545.0) + 0.000387933*t*t - t*t*t/38710000
	ramc := entity.NormalizeLongitude(gmst+lon) * math.Pi / 180
	eps := (23.439291 - 0.0130042*t) * math.Pi / 180
	phi := lat * math.Pi / 180

	asc := math.Atan2(math.Cos(ramc), -(math.Sin(ramc)*math.Cos(eps) + math.Tan(phi)*math.Sin(eps)))
	return entity.NormalizeLongitude(asc * 180 / math.Pi)
}
