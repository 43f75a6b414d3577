package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// 消息发送方
const (
	SenderUser   = "user"
	SenderSystem = "system"
)

// MessageStatus 消息状态
type MessageStatus string

const (
	MessageStatusPending  MessageStatus = "pending"
	MessageStatusResolved MessageStatus = "resolved"
	MessageStatusFailed   MessageStatus = "failed"
)

// ChatMessage 会话消息，会话内按插入顺序排列
type ChatMessage struct {
	ID        string        `json:"id"`
	Sender    string        `json:"sender"`
	Content   string        `json:"content"`
	Timestamp int64         `json:"timestamp"`
	Status    MessageStatus `json:"status,omitempty"`
}

// NewChatMessage 创建消息，时间戳为毫秒
func NewChatMessage(sender, content string) *ChatMessage {
	return &ChatMessage{
		ID:        uuid.NewString(),
		Sender:    strings.ToLower(strings.TrimSpace(sender)),
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
		Status:    MessageStatusResolved,
	}
}

// DisplaySender 转录时的发送方名称：User / System / 首字母大写的天体名
func (m *ChatMessage) DisplaySender() string {
	switch strings.ToLower(m.Sender) {
	case SenderUser:
		return "User"
	case SenderSystem:
		return "System"
	default:
		return titleCase(m.Sender)
	}
}

// ChatMessagePatch 就地更新的字段
type ChatMessagePatch struct {
	Content *string        `json:"content,omitempty"`
	Status  *MessageStatus `json:"status,omitempty"`
}

// Apply 应用补丁，不改变 ID、发送方与时间戳
func (p ChatMessagePatch) Apply(m *ChatMessage) {
	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
}

// Empty 补丁是否为空
func (p ChatMessagePatch) Empty() bool {
	return p.Content == nil && p.Status == nil
}
