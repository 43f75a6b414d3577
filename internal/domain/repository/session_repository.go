// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"astro-persona-api/internal/domain/entity"
)

// ChatSessionStore 会话消息日志，会话内只追加、按插入顺序排列
//
// 实现必须是消息顺序的唯一持有者：Append 的多条消息整体追加且保持相对顺序，
// UpdateMessage 只做就地修改，不得改变日志顺序。
type ChatSessionStore interface {
	// Append 原子地追加一条或多条消息
	Append(ctx context.Context, sessionID string, msgs ...*entity.ChatMessage) error
	// Snapshot 返回最后 lastN 条消息，lastN <= 0 时返回全部
	Snapshot(ctx context.Context, sessionID string, lastN int) ([]*entity.ChatMessage, error)
	// UpdateMessage 就地更新消息，消息不存在时返回 NotFound
	UpdateMessage(ctx context.Context, sessionID, messageID string, patch entity.ChatMessagePatch) (*entity.ChatMessage, error)
	// Clear 清空消息日志
	Clear(ctx context.Context, sessionID string) error
}

// ChartStore 会话星盘存储
type ChartStore interface {
	SaveChart(ctx context.Context, sessionID string, chart *entity.BirthChart) error
	// GetChart 会话不存在时返回 NotFound
	GetChart(ctx context.Context, sessionID string) (*entity.BirthChart, error)
	// DeleteSession 删除星盘与消息
	DeleteSession(ctx context.Context, sessionID string) error
}

// SessionStore 会话存储聚合
type SessionStore interface {
	ChatSessionStore
	ChartStore
}

// SessionLocker 保证同一会话同一时刻至多一个编排在途
type SessionLocker interface {
	// Acquire 排队等待会话锁，ctx 到期仍未获得时返回 SessionBusy
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}
