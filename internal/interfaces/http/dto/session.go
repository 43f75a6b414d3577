package dto

import (
	"astro-persona-api/internal/application/chart"
	"astro-persona-api/internal/application/session"
	"astro-persona-api/internal/domain/entity"
)

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	BirthRequest
}

// SessionResponse 会话响应
type SessionResponse struct {
	SessionID string         `json:"session_id"`
	Chart     *chart.Summary `json:"chart,omitempty"`
	Messages  []*ChatMessage `json:"messages,omitempty"`
}

// ToSessionResponse 会话转响应
func ToSessionResponse(s *session.Session) *SessionResponse {
	out := &SessionResponse{
		SessionID: s.ID,
		Messages:  ToChatMessageList(s.Messages),
	}
	if s.Chart != nil {
		out.Chart = chart.Summarize(s.Chart)
	}
	return out
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	Content  string `json:"content"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// TurnResponse 一轮对话响应
type TurnResponse struct {
	UserMessage *ChatMessage   `json:"user_message"`
	Replies     []*ChatMessage `json:"replies"`
	Mentioned   []string       `json:"mentioned,omitempty"`
}

// ToTurnResponse 对话轮次转响应
func ToTurnResponse(t *session.Turn) *TurnResponse {
	out := &TurnResponse{
		UserMessage: ToChatMessageResponse(t.UserMessage),
		Replies:     ToChatMessageList(t.Replies),
	}
	if t.Result != nil {
		for _, b := range t.Result.Mentioned {
			out.Mentioned = append(out.Mentioned, string(b))
		}
	}
	return out
}

// HistoryResponse 历史消息响应
type HistoryResponse struct {
	Messages []*ChatMessage `json:"messages"`
}

// UpdateMessageRequest 更新消息请求
type UpdateMessageRequest struct {
	Content *string `json:"content,omitempty"`
	Status  *string `json:"status,omitempty"`
}

// ToPatch 转为领域补丁
func (r *UpdateMessageRequest) ToPatch() entity.ChatMessagePatch {
	patch := entity.ChatMessagePatch{Content: r.Content}
	if r.Status != nil {
		status := entity.MessageStatus(*r.Status)
		patch.Status = &status
	}
	return patch
}
