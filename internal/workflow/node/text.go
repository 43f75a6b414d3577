package node

import (
	"strings"
	"unicode/utf8"
)

// TruncateByRunes 按字符数截断
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// TruncateAtWord 按字符数截断，尽量停在最后一个空白处
func TruncateAtWord(s string, maxRunes int) string {
	cut := TruncateByRunes(s, maxRunes)
	if len(cut) == len(s) {
		return s
	}
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

// StripStageDirections 去掉开头和结尾的 *动作描写* 与 (括号旁白)，正文中的强调保留。
// 整条都是动作描写时返回空串。
func StripStageDirections(s string) string {
	out := strings.TrimSpace(s)
	for {
		next := trimEnclosed(out)
		if next == out {
			return out
		}
		out = next
	}
}

func trimEnclosed(s string) string {
	pairs := [][2]byte{{'*', '*'}, {'(', ')'}, {'[', ']'}}
	for _, p := range pairs {
		if len(s) > 1 && s[0] == p[0] {
			if end := strings.IndexByte(s[1:], p[1]); end >= 0 {
				return strings.TrimSpace(s[end+2:])
			}
		}
		if len(s) > 1 && s[len(s)-1] == p[1] {
			if start := strings.LastIndexByte(s[:len(s)-1], p[0]); start >= 0 {
				return strings.TrimSpace(s[:start])
			}
		}
	}
	return s
}
