package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"astro-persona-api/internal/domain/repository"
	apperrors "astro-persona-api/pkg/errors"
	"astro-persona-api/pkg/logger"
	"astro-persona-api/pkg/metrics"
)

// releaseScript 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript 只续期自己持有的锁
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker 基于 SET NX PX 的分布式会话锁，等待者以退避轮询排队。
// 持有期间后台每 ttl/3 续期一次，直到 release。
type Locker struct {
	client     *Client
	ttl        time.Duration
	renewEvery time.Duration
	maxWait    time.Duration
}

var _ repository.SessionLocker = (*Locker)(nil)

// NewLocker 创建会话锁
func NewLocker(client *Client, ttl, maxWait time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 150 * time.Second
	}
	renewEvery := ttl / 3
	if renewEvery <= 0 {
		renewEvery = ttl
	}
	return &Locker{client: client, ttl: ttl, renewEvery: renewEvery, maxWait: maxWait}
}

func lockKey(sessionID string) string {
	return fmt.Sprintf("chat:%s:lock", sessionID)
}

// Acquire 获取会话锁，超时返回 SessionBusy
func (l *Locker) Acquire(ctx context.Context, sessionID string) (func(), error) {
	ctx, span := tracer.Start(ctx, "session.lock.Acquire")
	defer span.End()

	start := time.Now()
	key := lockKey(sessionID)
	token := uuid.NewString()

	waitCtx := ctx
	if l.maxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.maxWait)
		defer cancel()
	}

	poll := backoff.NewExponentialBackOff()
	poll.InitialInterval = 20 * time.Millisecond
	poll.MaxInterval = 500 * time.Millisecond
	poll.Reset()

	for {
		ok, err := l.client.rdb.SetNX(waitCtx, key, token, l.ttl).Result()
		if err == nil && ok {
			break
		}
		if err != nil && waitCtx.Err() == nil {
			span.RecordError(err)
			return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "session lock unavailable")
		}

		timer := time.NewTimer(poll.NextBackOff())
		select {
		case <-waitCtx.Done():
			timer.Stop()
			metrics.SessionLockWait.WithLabelValues("busy").Observe(time.Since(start).Seconds())
			logger.Warn(ctx, "session lock wait timed out", "session_id", sessionID)
			return nil, apperrors.ErrSessionBusy.WithError(waitCtx.Err())
		case <-timer.C:
		}
	}

	metrics.SessionLockWait.WithLabelValues("acquired").Observe(time.Since(start).Seconds())

	watchCtx, stopWatch := context.WithCancel(context.WithoutCancel(ctx))
	watchDone := make(chan struct{})
	go l.keepAlive(watchCtx, key, token, sessionID, watchDone)

	var once sync.Once
	release := func() {
		once.Do(func() {
			stopWatch()
			<-watchDone
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.client.rdb, []string{key}, token).Err(); err != nil {
				logger.Error(rctx, "session lock release failed", err, "session_id", sessionID)
			}
		})
	}
	return release, nil
}

// keepAlive 周期性续期锁，锁已不属于自己时停止
func (l *Locker) keepAlive(ctx context.Context, key, token, sessionID string, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.renewEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		n, err := renewScript.Run(ctx, l.client.rdb, []string{key}, token, l.ttl.Milliseconds()).Int()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn(ctx, "session lock renewal failed", "session_id", sessionID, "error", err.Error())
			continue
		}
		if n == 0 {
			logger.Warn(ctx, "session lock lost before release", "session_id", sessionID)
			return
		}
	}
}
