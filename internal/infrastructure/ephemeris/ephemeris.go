// Package ephemeris 提供内置星历引擎：行星使用近似开普勒轨道根数，月球使用主要周期项级数
package ephemeris

import (
	"context"
	"errors"
	"fmt"

	"astro-persona-api/internal/domain/entity"
)

const (
	julianDayJ2000 = 2451545.0
	daysPerCentury = 36525.0

	// 1800-01-01 0h 至 2051-01-01 0h
	minJulianDay = 2378496.5
	maxJulianDay = 2470172.5

	defaultSpeedStep = 0.5
)

// ErrOutOfRange 儒略日超出轨道根数适用范围
var ErrOutOfRange = errors.New("julian day outside supported ephemeris range")

// ErrUnknownBody 未知天体
var ErrUnknownBody = errors.New("unknown body")

// Keplerian 内置星历引擎，无状态，可并发使用
type Keplerian struct {
	speedStep float64
}

// NewKeplerian 创建星历引擎，speedStepDays 为求速度的中心差分步长
func NewKeplerian(speedStepDays float64) *Keplerian {
	if speedStepDays <= 0 {
		speedStepDays = defaultSpeedStep
	}
	return &Keplerian{speedStep: speedStepDays}
}

// Observe 返回天体在 jd (UT) 的地心黄经与黄经速度（度/日）
func (k *Keplerian) Observe(ctx context.Context, jd float64, body entity.Body) (entity.Observation, error) {
	if err := ctx.Err(); err != nil {
		return entity.Observation{}, err
	}
	if jd < minJulianDay || jd > maxJulianDay {
		return entity.Observation{}, fmt.Errorf("%w: %.5f", ErrOutOfRange, jd)
	}
	if !body.Valid() {
		return entity.Observation{}, fmt.Errorf("%w: %s", ErrUnknownBody, body)
	}

	lon := k.longitude(jd, body)
	before := k.longitude(jd-k.speedStep, body)
	after := k.longitude(jd+k.speedStep, body)

	return entity.Observation{
		Body:      body,
		Longitude: lon,
		Speed:     normalizeSigned(after-before) / (2 * k.speedStep),
	}, nil
}

// longitude 地心黄经
func (k *Keplerian) longitude(jd float64, body entity.Body) float64 {
	t := (jd - julianDayJ2000) / daysPerCentury

	switch body {
	case entity.BodyMoon:
		return moonLongitude(t)
	case entity.BodySun:
		earth := earthMoonBarycenter.heliocentric(t)
		return eclipticLongitude(vec3{-earth.x, -earth.y, -earth.z}, t)
	default:
		earth := earthMoonBarycenter.heliocentric(t)
		planet := planetElements[body].heliocentric(t)
		return eclipticLongitude(planet.sub(earth), t)
	}
}
