package presence

import (
	"context"
	"sync"
	"time"

	"DogiCord/logger"
	"DogiCord/tools/safe"

	"go.uber.org/zap"
)

const (
	minHeartbeat     = 20 * time.Second
	maxHeartbeat     = 30 * time.Second
	defaultHeartbeat = 25 * time.Second
)

// Tracker 每个会话一个：把可见性 / 网络 / 卸载信号折算成 online 写入。
// 所有写入都是尽力而为：失败只记日志，不返回也不重试。
type Tracker struct {
	user   string
	w      Writer
	crumbs Breadcrumbs
	every  time.Duration
	now    func() time.Time

	// mu 同时保护状态和写入顺序：最后一次写入总是对应最新的可见性
	mu      sync.Mutex
	visible bool
	netUp   bool

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func NewTracker(user string, w Writer, crumbs Breadcrumbs, every time.Duration) *Tracker {
	if every < minHeartbeat || every > maxHeartbeat {
		every = defaultHeartbeat
	}
	return &Tracker{
		user:    user,
		w:       w,
		crumbs:  crumbs,
		every:   every,
		now:     time.Now,
		visible: true,
		netUp:   true,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (t *Tracker) User() string { return t.user }

func (t *Tracker) Visible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible
}

// SetInitialVisibility hello 帧里带的可见性，Start 之前调用
func (t *Tracker) SetInitialVisibility(visible bool) {
	t.mu.Lock()
	t.visible = visible
	t.mu.Unlock()
}

// Start 启动对账 + 心跳；只执行一次
func (t *Tracker) Start(ctx context.Context) {
	t.startOnce.Do(func() {
		t.reconcile(ctx)
		safe.SafeGo("presence-heartbeat:"+t.user, func() { t.loop(ctx) })
	})
}

// reconcile 上次是非正常退出时会留下 breadcrumb：清掉并重新上线
func (t *Tracker) reconcile(ctx context.Context) {
	if t.crumbs != nil {
		at, ok, err := t.crumbs.TakeBreadcrumb(ctx, t.user)
		switch {
		case err != nil:
			logger.Warn("[Presence] read breadcrumb failed", zap.String("user", t.user), zap.Error(err))
		case ok:
			logger.Info("[Presence] recovered from unclean shutdown",
				zap.String("user", t.user), zap.Time("closing_at", at))
		}
	}
	t.assertOnline(ctx)
}

func (t *Tracker) loop(ctx context.Context) {
	defer close(t.done)
	tk := time.NewTicker(t.every)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-tk.C:
			t.assertOnline(ctx)
		}
	}
}

// Heartbeat 客户端心跳帧：可见时重新声明在线
func (t *Tracker) Heartbeat(ctx context.Context) {
	t.assertOnline(ctx)
}

func (t *Tracker) assertOnline(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.visible && t.netUp {
		t.write(ctx, true)
	}
}

// SetPresence 无条件写入
func (t *Tracker) SetPresence(ctx context.Context, online bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.write(ctx, online)
}

// OnVisibility hide -> false, show -> true
func (t *Tracker) OnVisibility(ctx context.Context, visible bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.visible = visible
	t.write(ctx, visible)
}

// OnNetwork 断网强制离线；恢复且可见时强制在线，返回 reconnected
func (t *Tracker) OnNetwork(ctx context.Context, up bool) (reconnected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasUp := t.netUp
	t.netUp = up
	if !up {
		t.write(ctx, false)
		return false
	}
	if !t.visible {
		return false
	}
	t.write(ctx, true)
	return !wasUp
}

// OnUnload 先写 breadcrumb，再写离线
func (t *Tracker) OnUnload(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	at := t.now()
	if t.crumbs != nil {
		if err := t.crumbs.PutBreadcrumb(ctx, t.user, at); err != nil {
			logger.Warn("[Presence] write breadcrumb failed", zap.String("user", t.user), zap.Error(err))
		}
	}
	t.visible = false
	t.writeAt(ctx, false, at)
}

// Stop 停止心跳；幂等
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// Wait 等心跳协程退出（Start 之后才有意义）
func (t *Tracker) Wait() {
	<-t.done
}

func (t *Tracker) write(ctx context.Context, online bool) {
	t.writeAt(ctx, online, t.now())
}

func (t *Tracker) writeAt(ctx context.Context, online bool, at time.Time) {
	if err := t.w.WritePresence(ctx, t.user, online, at); err != nil {
		logger.Warn("[Presence] write failed",
			zap.String("user", t.user), zap.Bool("online", online), zap.Error(err))
	}
}
