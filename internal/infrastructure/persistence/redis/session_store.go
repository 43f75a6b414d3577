package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"astro-persona-api/internal/domain/entity"
	"astro-persona-api/internal/domain/repository"
	apperrors "astro-persona-api/pkg/errors"
)

const updateMaxRetries = 3

// SessionStore 每个会话一个 JSON 列表保存消息，星盘单独一个键；写入时刷新 TTL
type SessionStore struct {
	client *Client
	ttl    time.Duration
}

var _ repository.SessionStore = (*SessionStore)(nil)

// NewSessionStore 创建 Redis 会话存储
func NewSessionStore(client *Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func messagesKey(sessionID string) string {
	return fmt.Sprintf("chat:%s:messages", sessionID)
}

func chartKey(sessionID string) string {
	return fmt.Sprintf("chat:%s:chart", sessionID)
}

func (s *SessionStore) Append(ctx context.Context, sessionID string, msgs ...*entity.ChatMessage) error {
	ctx, span := tracer.Start(ctx, "session.Append",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("session.message_count", len(msgs)),
		))
	defer span.End()

	values := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		data, err := json.Marshal(m)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		values = append(values, data)
	}
	if len(values) == 0 {
		return nil
	}

	key := messagesKey(sessionID)
	_, err := s.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
			pipe.Expire(ctx, chartKey(sessionID), s.ttl)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to append messages")
	}
	return nil
}

func (s *SessionStore) Snapshot(ctx context.Context, sessionID string, lastN int) ([]*entity.ChatMessage, error) {
	ctx, span := tracer.Start(ctx, "session.Snapshot",
		trace.WithAttributes(attribute.String("session.id", sessionID), attribute.Int("session.last_n", lastN)))
	defer span.End()

	start := int64(0)
	if lastN > 0 {
		start = int64(-lastN)
	}
	raw, err := s.client.rdb.LRange(ctx, messagesKey(sessionID), start, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to read messages")
	}
	return decodeMessages(raw)
}

func (s *SessionStore) UpdateMessage(ctx context.Context, sessionID, messageID string, patch entity.ChatMessagePatch) (*entity.ChatMessage, error) {
	ctx, span := tracer.Start(ctx, "session.UpdateMessage",
		trace.WithAttributes(attribute.String("session.id", sessionID), attribute.String("message.id", messageID)))
	defer span.End()

	key := messagesKey(sessionID)
	var updated *entity.ChatMessage
	txf := func(tx *redis.Tx) error {
		raw, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return err
		}
		msgs, err := decodeMessages(raw)
		if err != nil {
			return err
		}
		idx := -1
		for i, m := range msgs {
			if m.ID == messageID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return apperrors.ErrMessageNotFound
		}

		patch.Apply(msgs[idx])
		data, err := json.Marshal(msgs[idx])
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LSet(ctx, key, int64(idx), data)
			return nil
		})
		if err == nil {
			updated = msgs[idx]
		}
		return err
	}

	for i := 0; i < updateMaxRetries; i++ {
		err := s.client.rdb.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to update message")
	}
	return nil, apperrors.ErrConflict.WithDetail("message was modified concurrently")
}

func (s *SessionStore) Clear(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "session.Clear", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	if err := s.client.rdb.Del(ctx, messagesKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to clear messages")
	}
	return nil
}

func (s *SessionStore) SaveChart(ctx context.Context, sessionID string, chart *entity.BirthChart) error {
	ctx, span := tracer.Start(ctx, "session.SaveChart", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	data, err := json.Marshal(chart)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal chart: %w", err)
	}
	if err := s.client.rdb.Set(ctx, chartKey(sessionID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to save chart")
	}
	return nil
}

func (s *SessionStore) GetChart(ctx context.Context, sessionID string) (*entity.BirthChart, error) {
	ctx, span := tracer.Start(ctx, "session.GetChart", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	data, err := s.client.rdb.Get(ctx, chartKey(sessionID)).Bytes()
	if err != nil {
		if IsNil(err) {
			return nil, apperrors.ErrSessionNotFound
		}
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to read chart")
	}

	var chart entity.BirthChart
	if err := json.Unmarshal(data, &chart); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unmarshal chart: %w", err)
	}
	return &chart, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "session.Delete", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	if err := s.client.rdb.Del(ctx, messagesKey(sessionID), chartKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to delete session")
	}
	return nil
}

func decodeMessages(raw []string) ([]*entity.ChatMessage, error) {
	out := make([]*entity.ChatMessage, 0, len(raw))
	for _, r := range raw {
		var m entity.ChatMessage
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		out = append(out, &m)
	}
	return out, nil
}
