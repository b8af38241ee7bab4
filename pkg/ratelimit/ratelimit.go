// Package ratelimit 提供按 key 隔离的进程内令牌桶限流器，
// 在 Redis 不可用时作为登录接口限流的降级实现。
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiter 每个 key 独立一个令牌桶
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New 创建限流器：window 内最多 limit 次请求
func New(limit int, window time.Duration) *KeyedLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &KeyedLimiter{
		limiters: make(map[string]*entry),
		limit:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		idleTTL:  2 * window,
		now:      time.Now,
	}
}

// Allow 非阻塞判断本次请求是否放行
func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Sweep 清理长时间未访问的 key，返回清理数量
func (l *KeyedLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleTTL)
	removed := 0
	for k, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, k)
			removed++
		}
	}
	return removed
}

// Len 当前跟踪的 key 数量
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
