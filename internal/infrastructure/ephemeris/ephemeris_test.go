package ephemeris

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astro-persona-api/internal/domain/entity"
)

func TestSunAtJ2000(t *testing.T) {
	obs, err := NewKeplerian(0.5).Observe(context.Background(), 2451545.0, entity.BodySun)
	require.NoError(t, err)

	assert.InDelta(t, 280.37, obs.Longitude, 0.2)
	assert.InDelta(t, 1.02, obs.Speed, 0.05)
	assert.False(t, obs.Retrograde())
}

func TestMoonLongitudeReferenceDate(t *testing.T) {
	// 1992-04-12 0h
	lon := moonLongitude((2448724.5 - julianDayJ2000) / daysPerCentury)
	assert.InDelta(t, 133.1627, lon, 0.05)
}

func TestOuterPlanetsAtJ2000(t *testing.T) {
	eph := NewKeplerian(0.5)
	cases := map[entity.Body]entity.Sign{
		entity.BodyJupiter: entity.SignAries,
		entity.BodySaturn:  entity.SignTaurus,
		entity.BodyUranus:  entity.SignAquarius,
		entity.BodyNeptune: entity.SignAquarius,
		entity.BodyPluto:   entity.SignSagittarius,
	}
	for body, want := range cases {
		obs, err := eph.Observe(context.Background(), 2451545.0, body)
		require.NoError(t, err)
		assert.Equal(t, want, entity.SignFromLongitude(obs.Longitude), body.String())
	}
}

func TestMercuryRetrogradeSpring2023(t *testing.T) {
	eph := NewKeplerian(0.5)

	// 2023-05-01 0h，水星逆行中
	obs, err := eph.Observe(context.Background(), 2460065.5, entity.BodyMercury)
	require.NoError(t, err)
	assert.True(t, obs.Retrograde(), "speed=%v", obs.Speed)

	// 2023-06-01 0h，已恢复顺行
	obs, err = eph.Observe(context.Background(), 2460096.5, entity.BodyMercury)
	require.NoError(t, err)
	assert.False(t, obs.Retrograde(), "speed=%v", obs.Speed)
}

func TestSunAndMoonNeverRetrograde(t *testing.T) {
	eph := NewKeplerian(0.5)
	for jd := 2440000.5; jd < 2460000.5; jd += 97.3 {
		for _, body := range []entity.Body{entity.BodySun, entity.BodyMoon} {
			obs, err := eph.Observe(context.Background(), jd, body)
			require.NoError(t, err)
			assert.Greater(t, obs.Speed, 0.0, "%s at %v", body, jd)
			assert.GreaterOrEqual(t, obs.Longitude, 0.0)
			assert.Less(t, obs.Longitude, 360.0)
		}
	}
}

func TestObserveErrors(t *testing.T) {
	eph := NewKeplerian(0)

	_, err := eph.Observe(context.Background(), 2300000.5, entity.BodySun)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = eph.Observe(context.Background(), 2451545.0, entity.Body("vulcan"))
	assert.ErrorIs(t, err, ErrUnknownBody)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eph.Observe(ctx, 2451545.0, entity.BodySun)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolveKeplerConverges(t *testing.T) {
	for _, e := range []float64{0, 0.0167, 0.2056, 0.2488} {
		for m := -3.0; m <= 3.0; m += 0.25 {
			ea := solveKepler(m, e)
			assert.InDelta(t, m, ea-e*math.Sin(ea), 1e-10)
		}
	}
}
