package presence

import (
	"context"
	"sync"
	"time"

	"DogiCord/logger"

	"go.uber.org/zap"
)

// Observer 观察其它用户的在线状态
type Observer struct {
	src       Source
	threshold time.Duration
	now       func() time.Time
}

func NewObserver(src Source, threshold time.Duration) *Observer {
	if threshold <= 0 {
		threshold = DefaultStaleAfter
	}
	return &Observer{src: src, threshold: threshold, now: time.Now}
}

func (o *Observer) Threshold() time.Duration { return o.threshold }

// Online 单次查询
func (o *Observer) Online(ctx context.Context, user string) (Record, bool, error) {
	rec, err := o.src.Lookup(ctx, user)
	if err != nil {
		return rec, false, err
	}
	return rec, IsOnline(rec, o.now(), o.threshold), nil
}

type watch struct {
	o    *Observer
	user string
	cb   func(bool)

	// mu 保护 rec / 上次结果，并串行化回调
	mu      sync.Mutex
	rec     Record
	emitted bool
	last    bool

	// tmu 只保护 timer / closed，回调期间不持有
	tmu    sync.Mutex
	timer  *time.Timer
	closed bool
}

// Observe 首次结果一定回调，之后只在结果变化时回调；
// 在 last_seen + threshold 处安排一次重算，无新事件也能过期为离线。
// cb 里可以调用返回的 unsubscribe。
func (o *Observer) Observe(ctx context.Context, user string, cb func(online bool)) (func(), error) {
	w := &watch{o: o, user: user, cb: cb}

	unsub, err := o.src.Subscribe(user, w.update)
	if err != nil {
		return nil, err
	}
	rec, err := o.src.Lookup(ctx, user)
	if err != nil {
		logger.Warn("[Presence] lookup failed", zap.String("user", user), zap.Error(err))
		rec = Record{Username: user}
	}
	w.update(rec)

	var once sync.Once
	return func() {
		once.Do(func() {
			unsub()
			w.tmu.Lock()
			w.closed = true
			if w.timer != nil {
				w.timer.Stop()
			}
			w.tmu.Unlock()
		})
	}, nil
}

// update 新记录：比已知的更旧则忽略
func (w *watch) update(rec Record) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.emitted && rec.LastSeen.Before(w.rec.LastSeen) {
		return
	}
	w.rec = rec
	w.evaluateLocked()
}

func (w *watch) recheck() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evaluateLocked()
}

func (w *watch) evaluateLocked() {
	if w.isClosed() {
		return
	}
	now := w.o.now()
	online := IsOnline(w.rec, now, w.o.threshold)
	if online {
		w.schedule(w.rec.LastSeen.Add(w.o.threshold).Sub(now))
	}
	if w.emitted && online == w.last {
		return
	}
	w.emitted = true
	w.last = online
	w.cb(online)
}

func (w *watch) isClosed() bool {
	w.tmu.Lock()
	defer w.tmu.Unlock()
	return w.closed
}

func (w *watch) schedule(d time.Duration) {
	if d < 0 {
		d = 0
	}
	w.tmu.Lock()
	defer w.tmu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(d, w.recheck)
}
