package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJulianDay(t *testing.T) {
	cases := []struct {
		name             string
		year, month, day int
		hour             float64
		want             float64
	}{
		{"J2000 epoch", 2000, 1, 1, 12, 2451545.0},
		{"1990 mid June", 1990, 6, 15, 0, 2448057.5},
		{"Meeus 1957 Sputnik", 1957, 10, 4, 19.44, 2436116.31},
		{"January uses previous year", 1987, 1, 27, 0, 2446822.5},
		{"leap day", 1988, 2, 29, 0, 2447220.5},
		{"gregorian 1900 not leap", 1900, 3, 1, 0, 2415079.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, JulianDay(tc.year, tc.month, tc.day, tc.hour), 1e-6)
		})
	}
}

func TestAscendantQuadrants(t *testing.T) {
	// J2000 正午 GMST = 280.46061837
	const gmst = 280.46061837
	jd := 2451545.0

	// 赤道上，春分点中天时上升点位于巨蟹 0 度
	assert.InDelta(t, 90, AscendantLongitude(jd, 0, -gmst), 1e-6)
	// 夏至点中天时上升点位于天秤 0 度
	assert.InDelta(t, 180, AscendantLongitude(jd, 0, 90-gmst), 1e-6)

	for lat := -60.0; lat <= 60; lat += 15 {
		asc := AscendantLongitude(jd, lat, 0)
		assert.GreaterOrEqual(t, asc, 0.0)
		assert.Less(t, asc, 360.0)
	}
}
