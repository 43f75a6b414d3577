package chart

import "math"

// JulianDay 公历日期转儒略日，hour 为 UT 小数小时
func JulianDay(year, month, day int, hour float64) float64 {
	y, m := year, month
	if m <= 2 {
		y--
		m += 12
	}
	a := math.Floor(float64(y) / 100)
	b := 2 - a + math.Floor(a/4)

	return math.Floor(365.25*float64(y+4716)) +
		math.Floor(30.6001*float64(m+1)) +
		float64(day) + hour/24 + b - 1524.5
}

// julianCenturies J2000 起算的儒略世纪数
func julianCenturies(jd float64) float64 {
	return (jd - 2451545.0) / 36525.0
}
