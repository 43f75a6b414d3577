package orchestration

import (
	"strings"

	"astro-persona-api/internal/domain/entity"
)

// DetectMentions 消息中按名称（不区分大小写的子串）被点名的人格，按天体枚举顺序
func DetectMentions(message string, placements map[entity.Body]*entity.PlanetPlacement) []entity.Body {
	lower := strings.ToLower(message)
	var out []entity.Body
	for _, b := range entity.AllBodies() {
		if _, ok := placements[b]; !ok {
			continue
		}
		if strings.Contains(lower, string(b)) {
			out = append(out, b)
		}
	}
	return out
}

// ResponseCap 本轮最多保留的回复数。
// 有点名时为 min(点名数+2, limit)；否则为 2，并以概率 p 放宽到 3。
func ResponseCap(mentioned, limit int, p float64, roll func() float64) int {
	if limit <= 0 {
		limit = 3
	}
	n := 2
	if mentioned > 0 {
		n = mentioned + 2
	} else if roll != nil && roll() < p {
		n = 3
	}
	if n > limit {
		n = limit
	}
	return n
}

// prioritize 被点名的人格移到最前，两组内部保持模型给出的顺序
func prioritize(responses []Response, mentioned []entity.Body) []Response {
	if len(mentioned) == 0 {
		return responses
	}
	isMentioned := make(map[entity.Body]bool, len(mentioned))
	for _, b := range mentioned {
		isMentioned[b] = true
	}
	out := make([]Response, 0, len(responses))
	for _, r := range responses {
		if isMentioned[r.Body] {
			out = append(out, r)
		}
	}
	for _, r := range responses {
		if !isMentioned[r.Body] {
			out = append(out, r)
		}
	}
	return out
}
