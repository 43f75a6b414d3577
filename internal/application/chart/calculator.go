package chart

import (
	"context"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"astro-persona-api/internal/domain/entity"
	apperrors "astro-persona-api/pkg/errors"
	"astro-persona-api/pkg/logger"
	"astro-persona-api/pkg/metrics"
	"astro-persona-api/pkg/tracer"
)

// Calculator 本命星盘计算器
type Calculator struct {
	ephemeris   Ephemeris
	geocoder    Geocoder
	houseSystem entity.HouseSystem
	defaultTZ   *time.Location
	now         func() time.Time
}

// Option 计算器选项
type Option func(*Calculator)

// WithGeocoder 仅提供地点文本时用于解析坐标
func WithGeocoder(g Geocoder) Option {
	return func(c *Calculator) { c.geocoder = g }
}

// WithHouseSystem 指定宫位制
func WithHouseSystem(hs entity.HouseSystem) Option {
	return func(c *Calculator) { c.houseSystem = hs }
}

// WithDefaultTimezone 输入未指定时区时使用
func WithDefaultTimezone(loc *time.Location) Option {
	return func(c *Calculator) {
		if loc != nil {
			c.defaultTZ = loc
		}
	}
}

// NewCalculator 创建星盘计算器
func NewCalculator(eph Ephemeris, opts ...Option) *Calculator {
	c := &Calculator{
		ephemeris:   eph,
		houseSystem: entity.HouseSystemSun,
		defaultTZ:   time.UTC,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ComputeOption 单次计算选项
type ComputeOption func(*computeOptions)

type computeOptions struct {
	requireLocation bool
}

// RequireLocation 要求提供出生地点，否则返回 MissingLocation
func RequireLocation() ComputeOption {
	return func(o *computeOptions) { o.requireLocation = true }
}

// Compute 计算本命星盘
func (c *Calculator) Compute(ctx context.Context, in *entity.BirthInput, opts ...ComputeOption) (chart *entity.BirthChart, err error) {
	var co computeOptions
	for _, opt := range opts {
		opt(&co)
	}

	ctx, span := tracer.Start(ctx, "chart.compute")
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = string(apperrors.AsAppError(err).Code)
		}
		metrics.ChartComputationsTotal.WithLabelValues(status).Inc()
		metrics.ChartComputationDuration.Observe(time.Since(start).Seconds())
		tracer.End(span, err)
	}()

	// 1. 校验
	utc, err := c.birthInstant(in)
	if err != nil {
		return nil, err
	}
	if co.requireLocation && !in.HasLocation() {
		return nil, apperrors.ErrMissingLocation
	}
	loc, err := c.resolveLocation(ctx, in)
	if err != nil {
		return nil, err
	}

	// 2-3. 民用时间 -> 小数小时 -> 儒略日
	hour := entity.FractionalHour(utc.Hour(), utc.Minute(), utc.Second())
	jd := JulianDay(utc.Year(), int(utc.Month()), utc.Day(), hour)

	// 4. 并发查询十个天体
	observations, err := c.observeAll(ctx, jd)
	if err != nil {
		logger.Error(ctx, "ephemeris query failed", err, "julian_day", jd)
		return nil, apperrors.ErrEphemerisUnavailable.WithError(err)
	}

	// 5-6. 星座、宫位、逆行
	chart = &entity.BirthChart{
		Placements:  make(map[entity.Body]*entity.PlanetPlacement, len(observations)),
		HouseSystem: entity.HouseSystemSun,
		JulianDay:   jd,
		ComputedAt:  c.now().UTC(),
	}
	anchor := entity.SignFromLongitude(observations[0].Longitude)
	if c.houseSystem == entity.HouseSystemAscendant && loc != nil {
		asc := entity.SignFromLongitude(AscendantLongitude(jd, loc.Latitude, loc.Longitude))
		anchor = asc
		chart.HouseSystem = entity.HouseSystemAscendant
		chart.Ascendant = &asc
	}
	for _, obs := range observations {
		sign := entity.SignFromLongitude(obs.Longitude)
		chart.Placements[obs.Body] = &entity.PlanetPlacement{
			Body:       obs.Body,
			Longitude:  obs.Longitude,
			Degree:     entity.DegreeInSign(obs.Longitude),
			Sign:       sign,
			House:      entity.WholeSignHouse(sign, anchor),
			Retrograde: obs.Retrograde(),
			Speed:      obs.Speed,
		}
	}

	logger.Debug(ctx, "chart computed",
		"julian_day", jd,
		"house_system", chart.HouseSystem,
		"sun_sign", chart.Placements[entity.BodySun].Sign,
	)
	return chart, nil
}

// birthInstant 校验出生日期时间并换算为 UTC
func (c *Calculator) birthInstant(in *entity.BirthInput) (time.Time, error) {
	if in == nil || in.Year == 0 || in.Month == 0 || in.Day == 0 {
		return time.Time{}, apperrors.ErrMissingBirthTime
	}
	h, m, s := in.Clock()
	if in.Month < 1 || in.Month > 12 || in.Day < 1 || in.Day > 31 ||
		h < 0 || h > 23 || m < 0 || m > 59 || s < 0 || s > 59 {
		return time.Time{}, apperrors.ErrMissingBirthTime.WithDetail("birth date or time is out of range")
	}

	tz := c.defaultTZ
	if name := strings.TrimSpace(in.Timezone); name != "" {
		loaded, err := time.LoadLocation(name)
		if err != nil {
			return time.Time{}, apperrors.ErrMissingBirthTime.WithDetail(fmt.Sprintf("unknown timezone %q", name))
		}
		tz = loaded
	}

	local := time.Date(in.Year, time.Month(in.Month), in.Day, h, m, s, 0, tz)
	// time.Date 会把 2 月 30 日之类的日期规范化，视为非法
	if local.Day() != in.Day || int(local.Month()) != in.Month {
		return time.Time{}, apperrors.ErrMissingBirthTime.WithDetail("birth date does not exist")
	}
	return local.UTC(), nil
}

// resolveLocation 优先使用坐标；只有地点文本时交给地理编码
func (c *Calculator) resolveLocation(ctx context.Context, in *entity.BirthInput) (*entity.Location, error) {
	if in.Location != nil {
		if in.Location.Latitude < -90 || in.Location.Latitude > 90 ||
			in.Location.Longitude < -180 || in.Location.Longitude > 180 {
			return nil, apperrors.ErrMissingLocation.WithDetail("coordinates are out of range")
		}
		return in.Location, nil
	}
	place := strings.TrimSpace(in.Place)
	if place == "" || c.geocoder == nil {
		return nil, nil
	}
	loc, err := c.geocoder.Resolve(ctx, place)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrGeocodingFailed) {
			return nil, err
		}
		return nil, apperrors.ErrGeocodingFailed.WithError(err)
	}
	in.Location = loc
	return loc, nil
}

// observeAll 并发查询全部天体，结果按枚举顺序排列
func (c *Calculator) observeAll(ctx context.Context, jd float64) ([]entity.Observation, error) {
	bodies := entity.AllBodies()
	out := make([]entity.Observation, len(bodies))

	g, gctx := errgroup.WithContext(ctx)
	for i, body := range bodies {
		g.Go(func() error {
			obs, err := c.ephemeris.Observe(gctx, jd, body)
			if err != nil {
				return fmt.Errorf("observe %s: %w", body, err)
			}
			obs.Body = body
			out[i] = obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
