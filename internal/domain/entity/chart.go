package entity

import (
	"strings"
	"time"
)

// HouseSystem 宫位制
type HouseSystem string

const (
	// HouseSystemSun 以太阳星座代替上升星座的整宫制
	HouseSystemSun HouseSystem = "sun"
	// HouseSystemAscendant 以真实上升星座为第一宫的整宫制
	HouseSystemAscendant HouseSystem = "ascendant"
)

// ParseHouseSystem 解析宫位制，未知值回落到 sun
func ParseHouseSystem(s string) HouseSystem {
	switch HouseSystem(strings.ToLower(strings.TrimSpace(s))) {
	case HouseSystemAscendant:
		return HouseSystemAscendant
	default:
		return HouseSystemSun
	}
}

// Observation 星历观测：黄经与黄经速度
type Observation struct {
	Body      Body    `json:"body"`
	Longitude float64 `json:"longitude"`
	Speed     float64 `json:"speed"`
}

// Retrograde 速度严格小于 0 时逆行
func (o Observation) Retrograde() bool {
	return o.Speed < 0
}

// PlanetPlacement 行星落点
type PlanetPlacement struct {
	Body       Body    `json:"planet"`
	Longitude  float64 `json:"deg"`
	Degree     float64 `json:"degree_in_sign"`
	Sign       Sign    `json:"sign"`
	House      House   `json:"house"`
	Retrograde bool    `json:"retrograde"`
	Speed      float64 `json:"speed"`
	Persona    string  `json:"persona,omitempty"`
}

// Location 地理位置
type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name,omitempty"`
}

// BirthInput 出生数据
type BirthInput struct {
	Year     int       `json:"year"`
	Month    int       `json:"month"`
	Day      int       `json:"day"`
	Hour     *int      `json:"hour,omitempty"`
	Minute   *int      `json:"minute,omitempty"`
	Second   *int      `json:"second,omitempty"`
	Timezone string    `json:"timezone,omitempty"`
	Place    string    `json:"place,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// HasLocation 是否提供了地点文本或坐标
func (in *BirthInput) HasLocation() bool {
	return in.Location != nil || strings.TrimSpace(in.Place) != ""
}

// Clock 时分秒，缺省为 0
func (in *BirthInput) Clock() (h, m, s int) {
	if in.Hour != nil {
		h = *in.Hour
	}
	if in.Minute != nil {
		m = *in.Minute
	}
	if in.Second != nil {
		s = *in.Second
	}
	return h, m, s
}

// FractionalHour hour + (minute + second/60)/60
func FractionalHour(h, m, s int) float64 {
	return float64(h) + (float64(m)+float64(s)/60)/60
}

// BirthChart 本命星盘
type BirthChart struct {
	Placements  map[Body]*PlanetPlacement `json:"placements"`
	HouseSystem HouseSystem               `json:"house_system"`
	Ascendant   *Sign                     `json:"ascendant,omitempty"`
	JulianDay   float64                   `json:"julian_day"`
	ComputedAt  time.Time                 `json:"computed_at"`
}

// Complete 十个天体齐全时才算完整
func (c *BirthChart) Complete() bool {
	if c == nil {
		return false
	}
	for _, b := range allBodies {
		if _, ok := c.Placements[b]; !ok {
			return false
		}
	}
	return true
}

// Ordered 按枚举顺序返回已有落点
func (c *BirthChart) Ordered() []*PlanetPlacement {
	out := make([]*PlanetPlacement, 0, len(c.Placements))
	for _, b := range allBodies {
		if p, ok := c.Placements[b]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Get 按小写名称取落点
func (c *BirthChart) Get(name string) (*PlanetPlacement, bool) {
	b, ok := ParseBody(name)
	if !ok {
		return nil, false
	}
	p, ok := c.Placements[b]
	return p, ok
}
