package dto

import (
	"strings"

	"astro-persona-api/internal/domain/entity"
)

// BirthRequest 出生数据请求，时分秒缺省为 0
type BirthRequest struct {
	Year      int      `json:"year"`
	Month     int      `json:"month"`
	Day       int      `json:"day"`
	Hour      *int     `json:"hour,omitempty"`
	Minute    *int     `json:"minute,omitempty"`
	Second    *int     `json:"second,omitempty"`
	Timezone  string   `json:"timezone,omitempty"`
	Place     string   `json:"place,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// ToBirthInput 转为领域出生数据；经纬度需成对出现
func (r *BirthRequest) ToBirthInput() *entity.BirthInput {
	in := &entity.BirthInput{
		Year:     r.Year,
		Month:    r.Month,
		Day:      r.Day,
		Hour:     r.Hour,
		Minute:   r.Minute,
		Second:   r.Second,
		Timezone: strings.TrimSpace(r.Timezone),
		Place:    strings.TrimSpace(r.Place),
	}
	if r.Latitude != nil && r.Longitude != nil {
		in.Location = &entity.Location{
			Latitude:  *r.Latitude,
			Longitude: *r.Longitude,
		}
	}
	return in
}
