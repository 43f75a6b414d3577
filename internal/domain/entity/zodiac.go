package entity

import (
	"math"
	"strings"
)

// Sign 黄道十二星座
type Sign string

const (
	SignAries       Sign = "Aries"
	SignTaurus      Sign = "Taurus"
	SignGemini      Sign = "Gemini"
	SignCancer      Sign = "Cancer"
	SignLeo         Sign = "Leo"
	SignVirgo       Sign = "Virgo"
	SignLibra       Sign = "Libra"
	SignScorpio     Sign = "Scorpio"
	SignSagittarius Sign = "Sagittarius"
	SignCapricorn   Sign = "Capricorn"
	SignAquarius    Sign = "Aquarius"
	SignPisces      Sign = "Pisces"
)

var allSigns = [...]Sign{
	SignAries, SignTaurus, SignGemini, SignCancer, SignLeo, SignVirgo,
	SignLibra, SignScorpio, SignSagittarius, SignCapricorn, SignAquarius, SignPisces,
}

// AllSigns 按黄道顺序返回全部星座
func AllSigns() []Sign {
	out := make([]Sign, len(allSigns))
	copy(out, allSigns[:])
	return out
}

// SignAt 按序号取星座，序号对 12 取模
func SignAt(index int) Sign {
	return allSigns[mod(index, 12)]
}

// ParseSign 大小写不敏感地解析星座名称
func ParseSign(name string) (Sign, bool) {
	n := strings.TrimSpace(name)
	for _, s := range allSigns {
		if strings.EqualFold(string(s), n) {
			return s, true
		}
	}
	return Sign(n), false
}

// Index 星座序号 0..11，未知星座返回 -1
func (s Sign) Index() int {
	for i, v := range allSigns {
		if v == s {
			return i
		}
	}
	return -1
}

// Valid 是否为已知星座
func (s Sign) Valid() bool {
	return s.Index() >= 0
}

func (s Sign) String() string {
	return string(s)
}

// NormalizeLongitude 把任意角度归一到 [0,360)
func NormalizeLongitude(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	// math.Mod 对极小负数可能得到 360
	if d >= 360 {
		d = 0
	}
	return d
}

// SignIndexFromLongitude floor(deg/30) mod 12，对 deg+360k 稳定
func SignIndexFromLongitude(deg float64) int {
	return mod(int(math.Floor(NormalizeLongitude(deg)/30)), 12)
}

// SignFromLongitude 由黄经得到星座
func SignFromLongitude(deg float64) Sign {
	return allSigns[SignIndexFromLongitude(deg)]
}

// DegreeInSign 星座内度数 [0,30)
func DegreeInSign(deg float64) float64 {
	return math.Mod(NormalizeLongitude(deg), 30)
}

// House 宫位 1..12
type House int

// Valid 是否在 [1,12]
func (h House) Valid() bool {
	return h >= 1 && h <= 12
}

// WholeSignHouse 整宫制宫位：以 anchor 星座为第一宫
func WholeSignHouse(sign, anchor Sign) House {
	raw := (sign.Index() - anchor.Index()) % 12
	if raw < 0 {
		raw += 12
	}
	return House(raw + 1)
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
