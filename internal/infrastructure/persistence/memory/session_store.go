// Package memory 提供进程内的会话存储、会话锁与人格缓存，未启用 Redis 时使用
package memory

import (
	"context"
	"sync"
	"time"

	"astro-persona-api/internal/domain/entity"
	"astro-persona-api/internal/domain/repository"
	apperrors "astro-persona-api/pkg/errors"
	"astro-persona-api/pkg/logger"
)

type session struct {
	chart     *entity.BirthChart
	messages  []*entity.ChatMessage
	expiresAt time.Time
}

// SessionStore 进程内会话存储。写入会刷新过期时间，与 Redis 实现的 TTL 语义一致
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

var _ repository.SessionStore = (*SessionStore)(nil)

// NewSessionStore 创建进程内会话存储，ttl<=0 时会话不过期
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *SessionStore) expired(sess *session) bool {
	return !sess.expiresAt.IsZero() && s.now().After(sess.expiresAt)
}

// lookup 调用方需持有读锁或写锁
func (s *SessionStore) lookup(sessionID string) (*session, bool) {
	sess, ok := s.sessions[sessionID]
	if !ok || s.expired(sess) {
		return nil, false
	}
	return sess, true
}

func (s *SessionStore) touch(sess *session) {
	if s.ttl > 0 {
		sess.expiresAt = s.now().Add(s.ttl)
	}
}

func (s *SessionStore) getOrCreate(sessionID string) *session {
	sess, ok := s.lookup(sessionID)
	if !ok {
		sess = &session{}
		s.sessions[sessionID] = sess
	}
	s.touch(sess)
	return sess
}

func (s *SessionStore) Append(_ context.Context, sessionID string, msgs ...*entity.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreate(sessionID)
	for _, m := range msgs {
		if m == nil {
			continue
		}
		cp := *m
		sess.messages = append(sess.messages, &cp)
	}
	return nil
}

func (s *SessionStore) Snapshot(_ context.Context, sessionID string, lastN int) ([]*entity.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.lookup(sessionID)
	if !ok {
		return []*entity.ChatMessage{}, nil
	}
	msgs := sess.messages
	if lastN > 0 && len(msgs) > lastN {
		msgs = msgs[len(msgs)-lastN:]
	}
	out := make([]*entity.ChatMessage, len(msgs))
	for i, m := range msgs {
		cp := *m
		out[i] = &cp
	}
	return out, nil
}

func (s *SessionStore) UpdateMessage(_ context.Context, sessionID, messageID string, patch entity.ChatMessagePatch) (*entity.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookup(sessionID)
	if !ok {
		return nil, apperrors.ErrMessageNotFound
	}
	for _, m := range sess.messages {
		if m.ID == messageID {
			patch.Apply(m)
			s.touch(sess)
			cp := *m
			return &cp, nil
		}
	}
	return nil, apperrors.ErrMessageNotFound
}

func (s *SessionStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.lookup(sessionID); ok {
		sess.messages = nil
		s.touch(sess)
	}
	return nil
}

func (s *SessionStore) SaveChart(_ context.Context, sessionID string, chart *entity.BirthChart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getOrCreate(sessionID).chart = chart
	return nil
}

func (s *SessionStore) GetChart(_ context.Context, sessionID string) (*entity.BirthChart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.lookup(sessionID)
	if !ok || sess.chart == nil {
		return nil, apperrors.ErrSessionNotFound
	}
	return sess.chart, nil
}

func (s *SessionStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Sweep 删除已过期的会话，返回删除数量
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// StartSweeper 按 interval 周期清理过期会话，返回的 stop 会等待清理协程退出
func (s *SessionStore) StartSweeper(interval time.Duration) (stop func()) {
	if s.ttl <= 0 || interval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					logger.Debug(ctx, "expired sessions swept", "count", n)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
