package utils

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(perSecond, burst int) (*KeyedLimiter, *fakeClock) {
	clock := newFakeClock()
	k := NewKeyedLimiter(perSecond, burst)
	k.now = clock.now
	return k, clock
}

func TestKeyedLimiter_BurstThenRefill(t *testing.T) {
	k, clock := newTestLimiter(2, 3)
	ctx := context.Background()

	assert.True(t, k.Allow(ctx, "p1"))
	assert.True(t, k.Allow(ctx, "p1"))
	assert.True(t, k.Allow(ctx, "p1"))
	assert.False(t, k.Allow(ctx, "p1"))

	clock.advance(500 * time.Millisecond)
	assert.True(t, k.Allow(ctx, "p1"))
	assert.False(t, k.Allow(ctx, "p1"))

	// 长时间空闲也不超过桶容量
	clock.advance(time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, k.Allow(ctx, "p1"))
	}
	assert.False(t, k.Allow(ctx, "p1"))
}

func TestKeyedLimiter_PerKeyBuckets(t *testing.T) {
	k, clock := newTestLimiter(1, 1)
	ctx := context.Background()

	assert.True(t, k.Allow(ctx, "p1"))
	assert.False(t, k.Allow(ctx, "p1"))
	assert.True(t, k.Allow(ctx, "p2"), "other players are unaffected")

	clock.advance(time.Second)
	assert.True(t, k.Allow(ctx, "p1"))
}

func TestKeyedLimiter_Sweep(t *testing.T) {
	k, clock := newTestLimiter(1, 1)
	ctx := context.Background()

	k.Allow(ctx, "p1")
	k.Allow(ctx, "p2")
	assert.Equal(t, 0, k.Sweep())
	assert.Equal(t, 2, k.size())

	clock.advance(2 * time.Second)
	assert.Equal(t, 2, k.Sweep())
	assert.Equal(t, 0, k.size())
}

func TestKeyedLimiter_SweepDoesNotRefundSpentTokens(t *testing.T) {
	k, _ := newTestLimiter(1, 5)
	ctx := context.Background()

	var wg sync.WaitGroup
	allowed := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			allowed <- k.Allow(ctx, "p1")
		}()
		go func() {
			defer wg.Done()
			k.Sweep()
		}()
	}
	wg.Wait()
	close(allowed)

	granted := 0
	for ok := range allowed {
		if ok {
			granted++
		}
	}
	// 时钟不走就没有补充，一个桶最多放行 burst 次，被回收的只会是满桶
	assert.Equal(t, 5, granted)
}
