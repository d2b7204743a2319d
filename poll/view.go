package poll

import (
	"sync"

	"spellgate/engine"
)

// Update 推给渲染层的一次变更。Err 非空时 Snapshot 仍是最后一次成功的快照
type Update struct {
	Seq      uint64
	Snapshot engine.Snapshot
	Err      error
}

// View 一个 UI 界面（一局游戏的一个页面）持有的状态。
// 轮询 tick 和玩家动作在调用引擎前都先 Begin 领取序号，
// 结果按序号应用，比已应用序号旧的结果直接丢弃，避免界面回退到旧状态
type View struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
	current engine.Snapshot
	render  func(Update)
}

// NewView render 在持锁状态下调用，保证渲染顺序与序号一致，不能阻塞
func NewView(render func(Update)) *View {
	if render == nil {
		render = func(Update) {}
	}
	return &View{render: render}
}

// Begin 领取下一个序号
func (v *View) Begin() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.issued++
	return v.issued
}

// Apply 应用快照，seq 不比已应用的新时返回 false
func (v *View) Apply(seq uint64, snapshot engine.Snapshot) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if seq <= v.applied {
		return false
	}
	v.applied = seq
	v.current = snapshot
	v.render(Update{Seq: seq, Snapshot: snapshot})
	return true
}

// Fail 报告一次失败，保留最后一次成功的快照。已经有更新的结果时丢弃
func (v *View) Fail(seq uint64, err error) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if seq <= v.applied {
		return false
	}
	v.render(Update{Seq: seq, Snapshot: v.current, Err: err})
	return true
}

// Current 最后一次成功应用的快照及其序号
func (v *View) Current() (engine.Snapshot, uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.applied
}
