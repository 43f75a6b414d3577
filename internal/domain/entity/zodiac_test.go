package entity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignFromLongitudeStableUnderFullTurns(t *testing.T) {
	for d := 0.0; d < 360; d += 0.7 {
		want := int(math.Floor(d/30)) % 12
		for k := -3; k <= 3; k++ {
			got := SignIndexFromLongitude(d + 360*float64(k))
			assert.Equal(t, want, got, "deg=%v k=%d", d, k)
		}
	}
}

func TestSignFromLongitudeBoundaries(t *testing.T) {
	assert.Equal(t, SignAries, SignFromLongitude(0))
	assert.Equal(t, SignAries, SignFromLongitude(29.9999))
	assert.Equal(t, SignTaurus, SignFromLongitude(30))
	assert.Equal(t, SignPisces, SignFromLongitude(359.9999))
	assert.Equal(t, SignPisces, SignFromLongitude(-0.0001))
	assert.Equal(t, SignAries, SignFromLongitude(360))
}

func TestDegreeInSign(t *testing.T) {
	assert.InDelta(t, 15.5, DegreeInSign(75.5), 1e-9)
	assert.InDelta(t, 0, DegreeInSign(720), 1e-9)
}

func TestWholeSignHouse(t *testing.T) {
	for _, anchor := range AllSigns() {
		// 锚点星座自身总在第一宫
		assert.Equal(t, House(1), WholeSignHouse(anchor, anchor))
		for _, s := range AllSigns() {
			h := WholeSignHouse(s, anchor)
			assert.True(t, h.Valid(), "%s from %s -> %d", s, anchor, h)
		}
	}
	assert.Equal(t, House(12), WholeSignHouse(SignAries, SignTaurus))
	assert.Equal(t, House(5), WholeSignHouse(SignSagittarius, SignLeo))
	assert.Equal(t, House(2), WholeSignHouse(SignAries, SignPisces))
}

func TestParseSign(t *testing.T) {
	s, ok := ParseSign(" leo ")
	assert.True(t, ok)
	assert.Equal(t, SignLeo, s)

	_, ok = ParseSign("Ophiuchus")
	assert.False(t, ok)
}

func TestSignAtWraps(t *testing.T) {
	assert.Equal(t, SignPisces, SignAt(-1))
	assert.Equal(t, SignAries, SignAt(12))
}
