package poll

import (
	"context"
	"sync"
	"time"

	"spellgate/common/log"
	"spellgate/engine"
)

// DefaultInterval 与页面原先 2000ms 的刷新频率一致
const DefaultInterval = 2 * time.Second

// Fetch 拉取一次完整状态，通常是 engine.Client.GetState
type Fetch func(ctx context.Context) (engine.Snapshot, error)

// Ticker 抽象 time.Ticker，测试里可以手动驱动
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	*time.Ticker
}

func (t realTicker) C() <-chan time.Time {
	return t.Ticker.C
}

type Option func(*Poller)

// WithTicker 替换计时器工厂
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(p *Poller) {
		p.newTicker = newTicker
	}
}

// Poller 绑定一个 View 的定时刷新。
// 启动时立即刷新一次，之后每个间隔刷新一次；所有 tick 在同一个 goroutine 里串行执行，
// 拉取期间错过的 tick 最多合并成一个排队（与 time.Ticker 的语义一致），不会重叠
type Poller struct {
	name      string
	interval  time.Duration
	fetch     Fetch
	view      *View
	newTicker func(time.Duration) Ticker

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Attach 启动轮询。调用方必须保证 Stop 一定被调用（通常 defer p.Stop()），
// ctx 结束时轮询也会停止
func Attach(ctx context.Context, name string, view *View, fetch Fetch, interval time.Duration, opts ...Option) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		name:     name,
		interval: interval,
		fetch:    fetch,
		view:     view,
		newTicker: func(d time.Duration) Ticker {
			return realTicker{time.NewTicker(d)}
		},
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	ctx, p.cancel = context.WithCancel(ctx)
	ticker := p.newTicker(p.interval)
	go p.run(ctx, ticker)
	log.Debug("轮询[%s] 启动, 间隔 %v", p.name, p.interval)
	return p
}

// Stop 幂等。返回时轮询 goroutine 已经退出，不会再有新的调用
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		<-p.done
		log.Debug("轮询[%s] 停止", p.name)
	})
}

// Done 轮询 goroutine 退出时关闭
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) run(ctx context.Context, ticker Ticker) {
	defer close(p.done)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	seq := p.view.Begin()
	snapshot, err := p.fetch(ctx)
	if ctx.Err() != nil {
		// 界面已经卸载，结果没人要了
		return
	}
	if err != nil {
		p.view.Fail(seq, err)
		return
	}
	p.view.Apply(seq, snapshot)
}
