package utils

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiter 每个 key（玩家）一个令牌桶，没有 redis 时的单机限流
// rate: 每秒补充的令牌数
// burst: 桶的容量（允许的突发请求数）
type KeyedLimiter struct {
	limit   rate.Limit
	burst   int
	now     func() time.Time
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func NewKeyedLimiter(perSecond, burst int) *KeyedLimiter {
	if burst < 1 {
		burst = 1
	}
	return &KeyedLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Allow 实现 http.Limiter。取令牌时持有 k.mu，Sweep 不会在中途换掉这个桶
func (k *KeyedLimiter) Allow(_ context.Context, key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	bucket, ok := k.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(k.limit, k.burst)
		k.buckets[key] = bucket
	}
	return bucket.AllowN(k.now(), 1)
}

// Sweep 回收已经回满的桶，返回回收数量
func (k *KeyedLimiter) Sweep() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := k.now()
	removed := 0
	for key, bucket := range k.buckets {
		if bucket.TokensAt(now) >= float64(k.burst) {
			delete(k.buckets, key)
			removed++
		}
	}
	return removed
}

// RunSweeper 定期回收，ctx 结束时退出
func (k *KeyedLimiter) RunSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Sweep()
		}
	}
}

func (k *KeyedLimiter) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}
