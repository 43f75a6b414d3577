// Package session 聊天会话：创建星盘会话、串行化每轮编排并写入消息日志
package session

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"astro-persona-api/internal/application/chart"
	"astro-persona-api/internal/application/orchestration"
	"astro-persona-api/internal/domain/entity"
	"astro-persona-api/internal/domain/repository"
	apperrors "astro-persona-api/pkg/errors"
	"astro-persona-api/pkg/logger"
)

const greeting = "Your planets have gathered and are ready to talk. Say hi, or ask one of them something by name."

// ChartComputer 星盘计算
type ChartComputer interface {
	Compute(ctx context.Context, in *entity.BirthInput, opts ...chart.ComputeOption) (*entity.BirthChart, error)
}

// Orchestrator 一轮多人格编排
type Orchestrator interface {
	Orchestrate(ctx context.Context, in *orchestration.Input) (*orchestration.Result, error)
}

// Pregenerator 为星盘预生成人格自述
type Pregenerator interface {
	Pregenerate(ctx context.Context, chart *entity.BirthChart)
}

// Config 会话服务配置
type Config struct {
	HistoryWindow int
	Pregenerate   bool
}

// Session 会话
type Session struct {
	ID       string                `json:"session_id"`
	Chart    *entity.BirthChart    `json:"-"`
	Messages []*entity.ChatMessage `json:"messages"`
}

// Turn 一轮对话写入的消息
type Turn struct {
	UserMessage *entity.ChatMessage
	Replies     []*entity.ChatMessage
	Result      *orchestration.Result
}

// SendOptions 单轮的模型选择
type SendOptions struct {
	Provider string
	Model    string
}

// Service 会话服务
type Service struct {
	charts       ChartComputer
	orchestrator Orchestrator
	personas     Pregenerator
	store        repository.SessionStore
	locker       repository.SessionLocker
	cfg          Config
	newID        func() string
}

// NewService 创建会话服务，personas 可为 nil
func NewService(
	charts ChartComputer,
	orchestrator Orchestrator,
	personas Pregenerator,
	store repository.SessionStore,
	locker repository.SessionLocker,
	cfg Config,
) *Service {
	return &Service{
		charts:       charts,
		orchestrator: orchestrator,
		personas:     personas,
		store:        store,
		locker:       locker,
		cfg:          cfg,
		newID:        uuid.NewString,
	}
}

// Create 计算星盘并开启会话
func (s *Service) Create(ctx context.Context, in *entity.BirthInput) (*Session, error) {
	if in == nil {
		return nil, apperrors.ErrMissingBirthTime
	}
	birthChart, err := s.charts.Compute(ctx, in, chart.RequireLocation())
	if err != nil {
		return nil, err
	}
	if s.cfg.Pregenerate && s.personas != nil {
		s.personas.Pregenerate(ctx, birthChart)
	}

	id := s.newID()
	ctx = logger.WithContext(ctx, logger.SessionIDKey, id)
	if err := s.store.SaveChart(ctx, id, birthChart); err != nil {
		return nil, err
	}
	hello := entity.NewChatMessage(entity.SenderSystem, greeting)
	if err := s.store.Append(ctx, id, hello); err != nil {
		_ = s.store.DeleteSession(ctx, id)
		return nil, err
	}

	logger.Info(ctx, "chat session created", "house_system", string(birthChart.HouseSystem))
	return &Session{ID: id, Chart: birthChart, Messages: []*entity.ChatMessage{hello}}, nil
}

// Chart 会话星盘
func (s *Service) Chart(ctx context.Context, sessionID string) (*entity.BirthChart, error) {
	return s.store.GetChart(ctx, sessionID)
}

// SendMessage 一轮对话。同一会话排队执行；失败时不写入任何消息。
func (s *Service) SendMessage(ctx context.Context, sessionID, content string, opts SendOptions) (*Turn, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.ErrEmptyInput
	}
	ctx = logger.WithContext(ctx, logger.SessionIDKey, sessionID)

	birthChart, err := s.store.GetChart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	// 持锁后再读历史，保证看到上一轮的回复
	history, err := s.store.Snapshot(ctx, sessionID, s.cfg.HistoryWindow)
	if err != nil {
		return nil, err
	}

	res, err := s.orchestrator.Orchestrate(ctx, &orchestration.Input{
		Message:    content,
		Placements: birthChart.Placements,
		History:    history,
		Provider:   opts.Provider,
		Model:      opts.Model,
	})
	if err != nil {
		logger.Warn(ctx, "chat turn failed", "error", err.Error())
		return nil, err
	}

	userMsg := entity.NewChatMessage(entity.SenderUser, content)
	replies := make([]*entity.ChatMessage, 0, len(res.Responses))
	for _, r := range res.Responses {
		reply := entity.NewChatMessage(string(r.Body), r.Message)
		if reply.Timestamp < userMsg.Timestamp {
			reply.Timestamp = userMsg.Timestamp
		}
		replies = append(replies, reply)
	}

	if err := s.store.Append(ctx, sessionID, append([]*entity.ChatMessage{userMsg}, replies...)...); err != nil {
		return nil, err
	}
	return &Turn{UserMessage: userMsg, Replies: replies, Result: res}, nil
}

// Orchestrate 无状态编排；给定 sessionID 时与该会话的其他轮次互斥
func (s *Service) Orchestrate(ctx context.Context, sessionID string, in *orchestration.Input) (*orchestration.Result, error) {
	if sessionID = strings.TrimSpace(sessionID); sessionID != "" {
		ctx = logger.WithContext(ctx, logger.SessionIDKey, sessionID)
		release, err := s.locker.Acquire(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		defer release()
	}
	return s.orchestrator.Orchestrate(ctx, in)
}

// History 最近 lastN 条消息，lastN<=0 返回全部
func (s *Service) History(ctx context.Context, sessionID string, lastN int) ([]*entity.ChatMessage, error) {
	if _, err := s.store.GetChart(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.Snapshot(ctx, sessionID, lastN)
}

// UpdateMessage 就地更新消息的状态或内容
func (s *Service) UpdateMessage(ctx context.Context, sessionID, messageID string, patch entity.ChatMessagePatch) (*entity.ChatMessage, error) {
	if patch.Empty() {
		return nil, apperrors.ErrInvalidParam.WithDetail("nothing to update")
	}
	if patch.Status != nil {
		switch *patch.Status {
		case entity.MessageStatusPending, entity.MessageStatusResolved, entity.MessageStatusFailed:
		default:
			return nil, apperrors.ErrInvalidParam.WithDetail("unknown message status")
		}
	}
	if _, err := s.store.GetChart(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.UpdateMessage(ctx, sessionID, messageID, patch)
}

// Clear 清空会话消息，星盘保留
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.store.GetChart(ctx, sessionID); err != nil {
		return err
	}
	return s.store.Clear(ctx, sessionID)
}

// Delete 删除会话
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.store.GetChart(ctx, sessionID); err != nil {
		return err
	}
	return s.store.DeleteSession(ctx, sessionID)
}
