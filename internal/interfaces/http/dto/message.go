package dto

import (
	"astro-persona-api/internal/domain/entity"
)

// ChatMessage 会话消息
type ChatMessage struct {
	ID        string `json:"id,omitempty"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Status    string `json:"status,omitempty"`
}

// ToChatMessageResponse 领域消息转响应
func ToChatMessageResponse(m *entity.ChatMessage) *ChatMessage {
	if m == nil {
		return nil
	}
	return &ChatMessage{
		ID:        m.ID,
		Sender:    m.Sender,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Status:    string(m.Status),
	}
}

// ToChatMessageList 批量转换
func ToChatMessageList(msgs []*entity.ChatMessage) []*ChatMessage {
	out := make([]*ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ToChatMessageResponse(m))
	}
	return out
}

// ToEntity 客户端提交的历史消息转领域对象
func (m *ChatMessage) ToEntity() *entity.ChatMessage {
	msg := entity.NewChatMessage(m.Sender, m.Content)
	if m.ID != "" {
		msg.ID = m.ID
	}
	if m.Timestamp > 0 {
		msg.Timestamp = m.Timestamp
	}
	if m.Status != "" {
		msg.Status = entity.MessageStatus(m.Status)
	}
	return msg
}
