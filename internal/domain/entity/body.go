// Package entity 定义领域实体
package entity

import "strings"

// Body 天体
type Body string

const (
	BodySun     Body = "sun"
	BodyMoon    Body = "moon"
	BodyMercury Body = "mercury"
	BodyVenus   Body = "venus"
	BodyMars    Body = "mars"
	BodyJupiter Body = "jupiter"
	BodySaturn  Body = "saturn"
	BodyUranus  Body = "uranus"
	BodyNeptune Body = "neptune"
	BodyPluto   Body = "pluto"
)

var allBodies = [...]Body{
	BodySun, BodyMoon, BodyMercury, BodyVenus, BodyMars,
	BodyJupiter, BodySaturn, BodyUranus, BodyNeptune, BodyPluto,
}

// AllBodies 按固定枚举顺序返回全部天体
func AllBodies() []Body {
	out := make([]Body, len(allBodies))
	copy(out, allBodies[:])
	return out
}

// BodyNames 全部天体的小写名称，顺序同 AllBodies
func BodyNames() []string {
	out := make([]string, len(allBodies))
	for i, b := range allBodies {
		out[i] = string(b)
	}
	return out
}

// ParseBody 大小写不敏感地解析天体名称
func ParseBody(name string) (Body, bool) {
	b := Body(strings.ToLower(strings.TrimSpace(name)))
	return b, b.Valid()
}

// Valid 是否为已知天体
func (b Body) Valid() bool {
	return b.Index() >= 0
}

// Index 在枚举中的位置，未知天体返回 -1
func (b Body) Index() int {
	for i, v := range allBodies {
		if v == b {
			return i
		}
	}
	return -1
}

// DisplayName 首字母大写的展示名
func (b Body) DisplayName() string {
	return titleCase(string(b))
}

func (b Body) String() string {
	return string(b)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
