package node

import (
	"fmt"
	"strings"

	wfmodel "astro-persona-api/internal/workflow/model"
)

// BuildPersonasBlock 渲染全部人格的系统提示
func BuildPersonasBlock(personas []wfmodel.PersonaBrief) string {
	if len(personas) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(personas))
	for _, p := range personas {
		var b strings.Builder
		rx := ""
		if p.Retrograde {
			rx = ", retrograde"
		}
		fmt.Fprintf(&b, "### %s (%s in %s, house %d%s)\n", p.DisplayName, p.DisplayName, p.Sign, p.House, rx)
		b.WriteString(strings.TrimSpace(p.Prompt))
		if desc := strings.TrimSpace(p.SelfDescription); desc != "" {
			b.WriteString("\nIn their own words: ")
			b.WriteString(desc)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// BuildMentionedBlock 被点名的人格，空时返回固定提示
func BuildMentionedBlock(displayNames []string) string {
	if len(displayNames) == 0 {
		return "Nobody was mentioned by name. Pick whoever would naturally have something to say."
	}
	return "Mentioned by name, these must answer first: " + strings.Join(displayNames, ", ")
}

// BuildTranscriptBlock 按 "Speaker: content" 渲染压缩后的对话记录
func BuildTranscriptBlock(lines []wfmodel.TranscriptLine, maxRunesPerLine int) string {
	if len(lines) == 0 {
		return "(this is the start of the conversation)"
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		content := strings.Join(strings.Fields(l.Content), " ")
		if content == "" {
			continue
		}
		if maxRunesPerLine > 0 {
			content = TruncateByRunes(content, maxRunesPerLine)
		}
		out = append(out, l.Speaker+": "+content)
	}
	if len(out) == 0 {
		return "(this is the start of the conversation)"
	}
	return strings.Join(out, "\n")
}
