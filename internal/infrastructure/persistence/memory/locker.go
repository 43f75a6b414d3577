package memory

import (
	"context"
	"sync"
	"time"

	"astro-persona-api/internal/domain/repository"
	apperrors "astro-persona-api/pkg/errors"
	"astro-persona-api/pkg/logger"
	"astro-persona-api/pkg/metrics"
)

// Locker 每个会话一个容量为 1 的信号量，等待者排队直到超时。
// 持有者与等待者都释放后回收该会话的信号量。
type Locker struct {
	mu      sync.Mutex
	slots   map[string]*lockSlot
	maxWait time.Duration
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

var _ repository.SessionLocker = (*Locker)(nil)

// NewLocker 创建进程内会话锁，maxWait<=0 时只受 ctx 约束
func NewLocker(maxWait time.Duration) *Locker {
	return &Locker{
		slots:   make(map[string]*lockSlot),
		maxWait: maxWait,
	}
}

func (l *Locker) ref(sessionID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[sessionID]
	if !ok {
		s = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[sessionID] = s
	}
	s.refs++
	return s.ch
}

func (l *Locker) unref(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[sessionID]
	if !ok {
		return
	}
	s.refs--
	if s.refs <= 0 {
		delete(l.slots, sessionID)
	}
}

// Acquire 排队获取会话锁，release 可重复调用
func (l *Locker) Acquire(ctx context.Context, sessionID string) (func(), error) {
	start := time.Now()
	ch := l.ref(sessionID)

	if l.maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.maxWait)
		defer cancel()
	}

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(sessionID)
		metrics.SessionLockWait.WithLabelValues("busy").Observe(time.Since(start).Seconds())
		logger.Warn(ctx, "session lock wait timed out", "session_id", sessionID)
		return nil, apperrors.ErrSessionBusy.WithError(ctx.Err())
	}

	metrics.SessionLockWait.WithLabelValues("acquired").Observe(time.Since(start).Seconds())
	var once sync.Once
	return func() {
		once.Do(func() {
			<-ch
			l.unref(sessionID)
		})
	}, nil
}
