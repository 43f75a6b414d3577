package dto

import (
	"strings"

	"astro-persona-api/internal/application/orchestration"
	"astro-persona-api/internal/domain/entity"
	apperrors "astro-persona-api/pkg/errors"
)

// PlanetData 单个行星的落点
type PlanetData struct {
	Sign       string `json:"sign"`
	House      int    `json:"house"`
	Retrograde bool   `json:"retrograde"`
}

// OrchestrateRequest 无状态编排请求
type OrchestrateRequest struct {
	Message             string                `json:"message"`
	AllPlanetsData      map[string]PlanetData `json:"allPlanetsData"`
	ConversationHistory []*ChatMessage        `json:"conversationHistory,omitempty"`
	SessionID           string                `json:"session_id,omitempty"`
	Provider            string                `json:"provider,omitempty"`
	Model               string                `json:"model,omitempty"`
}

// ToInput 转为编排输入。未知行星名忽略；已知行星的星座非法时报错。
func (r *OrchestrateRequest) ToInput(provider, model string) (*orchestration.Input, error) {
	placements := make(map[entity.Body]*entity.PlanetPlacement, len(r.AllPlanetsData))
	for name, data := range r.AllPlanetsData {
		body, ok := entity.ParseBody(name)
		if !ok {
			continue
		}
		sign, ok := entity.ParseSign(data.Sign)
		if !ok {
			return nil, apperrors.ErrInvalidParam.WithDetail("unknown sign for " + strings.ToLower(name) + ": " + data.Sign)
		}
		placements[body] = &entity.PlanetPlacement{
			Body:       body,
			Sign:       sign,
			House:      entity.House(data.House),
			Retrograde: data.Retrograde,
		}
	}

	history := make([]*entity.ChatMessage, 0, len(r.ConversationHistory))
	for _, m := range r.ConversationHistory {
		if m == nil {
			continue
		}
		history = append(history, m.ToEntity())
	}

	return &orchestration.Input{
		Message:    r.Message,
		Placements: placements,
		History:    history,
		Provider:   provider,
		Model:      model,
	}, nil
}

// PersonaReply 单条人格回复
type PersonaReply struct {
	Planet  string `json:"planet"`
	Message string `json:"message"`
}

// OrchestrateResponse 编排响应
type OrchestrateResponse struct {
	Responses []PersonaReply `json:"responses"`
	Mentioned []string       `json:"mentioned,omitempty"`
	Attempts  int            `json:"attempts"`
	Provider  string         `json:"provider,omitempty"`
	Model     string         `json:"model,omitempty"`
}

// ToOrchestrateResponse 编排结果转响应
func ToOrchestrateResponse(res *orchestration.Result) *OrchestrateResponse {
	out := &OrchestrateResponse{
		Responses: make([]PersonaReply, 0, len(res.Responses)),
		Attempts:  res.Attempts,
		Provider:  res.Meta.Provider,
		Model:     res.Meta.Model,
	}
	for _, r := range res.Responses {
		out.Responses = append(out.Responses, PersonaReply{Planet: string(r.Body), Message: r.Message})
	}
	for _, b := range res.Mentioned {
		out.Mentioned = append(out.Mentioned, string(b))
	}
	return out
}
