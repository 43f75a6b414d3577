package orchestration

import (
	"encoding/json"
	"fmt"
	"strings"

	"astro-persona-api/internal/domain/entity"
	wfnode "astro-persona-api/internal/workflow/node"
)

type rawEntry struct {
	Planet  string `json:"planet"`
	Message string `json:"message"`
}

type rawPayload struct {
	Responses []rawEntry `json:"responses"`
}

// 丢弃原因
const (
	dropUnknownPersona = "unknown_persona"
	dropEmptyMessage   = "empty_message"
	dropDuplicate      = "duplicate"
)

// parseEntries 解析模型输出，接受 {"responses": [...]} 或裸数组
func parseEntries(content string) ([]rawEntry, error) {
	raw := wfnode.ExtractJSONObject(content)
	if raw == "" {
		return nil, fmt.Errorf("empty response")
	}

	if strings.HasPrefix(raw, "[") {
		var entries []rawEntry
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			return nil, fmt.Errorf("decode response array: %w", err)
		}
		return entries, nil
	}

	var payload rawPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode response object: %w", err)
	}
	if payload.Responses == nil {
		return nil, fmt.Errorf("response object has no responses list")
	}
	return payload.Responses, nil
}

// validateEntries 逐条校验：人格必须存在于星盘、去掉舞台说明后文本非空、同一人格只保留第一条。
// 失败的条目被丢弃而非整体失败，返回各原因的丢弃数。
func validateEntries(entries []rawEntry, placements map[entity.Body]*entity.PlanetPlacement, maxRunes int) ([]Response, map[string]int) {
	dropped := make(map[string]int)
	seen := make(map[entity.Body]bool, len(entries))
	out := make([]Response, 0, len(entries))

	for _, e := range entries {
		body, ok := entity.ParseBody(e.Planet)
		if !ok {
			dropped[dropUnknownPersona]++
			continue
		}
		if _, ok := placements[body]; !ok {
			dropped[dropUnknownPersona]++
			continue
		}
		msg := strings.TrimSpace(wfnode.StripStageDirections(e.Message))
		if msg == "" {
			dropped[dropEmptyMessage]++
			continue
		}
		if seen[body] {
			dropped[dropDuplicate]++
			continue
		}
		seen[body] = true
		if maxRunes > 0 {
			msg = wfnode.TruncateAtWord(msg, maxRunes)
		}
		out = append(out, Response{Body: body, Message: msg})
	}
	return out, dropped
}
