package natsx

import (
	"context"
	"strings"
	"sync"
	"time"
)

// ----- 抽象存储 -----
type IdemStore interface {
	SeenOnce(key string, ttl time.Duration) (seen bool, err error)
}

// ----- 内存实现（单进程） -----
type MemIdem struct {
	mu   sync.Mutex
	m    map[string]time.Time // key -> expireAt
	ttl  time.Duration
	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// NewMemIdem 带后台清理协程；用完调用 Close
func NewMemIdem(defaultTTL time.Duration) *MemIdem {
	mi := newMemIdem(defaultTTL, time.Now)
	go mi.janitor(time.Minute)
	return mi
}

func newMemIdem(defaultTTL time.Duration, now func() time.Time) *MemIdem {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &MemIdem{m: make(map[string]time.Time), ttl: defaultTTL, now: now, stop: make(chan struct{})}
}

func (mi *MemIdem) janitor(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-mi.stop:
			return
		case <-t.C:
			mi.purge()
		}
	}
}

func (mi *MemIdem) purge() {
	now := mi.now()
	mi.mu.Lock()
	for k, exp := range mi.m {
		if !exp.After(now) {
			delete(mi.m, k)
		}
	}
	mi.mu.Unlock()
}

func (mi *MemIdem) SeenOnce(key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = mi.ttl
	}
	now := mi.now()
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if exp, ok := mi.m[key]; ok && exp.After(now) {
		return true, nil // 已见过
	}
	mi.m[key] = now.Add(ttl)
	return false, nil
}

func (mi *MemIdem) Len() int {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return len(mi.m)
}

func (mi *MemIdem) Close() {
	mi.once.Do(func() { close(mi.stop) })
}

// ----- 从消息头提取 msgID -----
func msgIDFromHeader(h map[string]string) string {
	for _, k := range []string{HeaderMsgID, "nats-msg-id", "X-Msg-Id", "x-msg-id"} {
		if v, ok := h[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// ----- 幂等中间件 -----
// 用法：NewNatsxConsumer(client, NatsxIdemMiddleware(store, ttl))
func NatsxIdemMiddleware(store IdemStore, ttl time.Duration) NatsxMiddleware {
	return func(next NatsxHandler) NatsxHandler {
		return func(ctx context.Context, msg NatsxMessage) error {
			id := msgIDFromHeader(msg.Header)
			if id == "" {
				// 无ID时根据 subject+内容构造一个弱ID
				id = msg.Subject + "|" + strings.TrimSpace(string(msg.Data))
			}
			seen, _ := store.SeenOnce(id, ttl)
			if seen {
				return nil
			}
			return next(ctx, msg)
		}
	}
}
