package feed

import (
	"context"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"DogiCord/service/natsx"
)

// Bus 字节级发布订阅；线上走 NATS，单节点/测试走 LocalBus
type Bus interface {
	Publish(ctx context.Context, subject, msgID string, data []byte) error
	Subscribe(subject string, fn func(data []byte, msgID string)) (unsubscribe func(), err error)
}

// Token 把任意用户名/ID 变成合法的 subject token
func Token(s string) string {
	if s != "" && !strings.ContainsAny(s, ". *>\t\r\n~") {
		return s
	}
	return "~" + hex.EncodeToString([]byte(s))
}

// ===== NATS =====

type NatsBus struct {
	prod     *natsx.NatsxSyncPublisher
	cons     *natsx.NatsxConsumer
	dedupTTL time.Duration
}

// NewNatsBus 发布带重试；每个订阅各自按 Nats-Msg-Id 去掉重试造成的重复
func NewNatsBus(c *natsx.NatsxClient, dedupTTL time.Duration) *NatsBus {
	if dedupTTL <= 0 {
		dedupTTL = time.Minute
	}
	return &NatsBus{
		prod:     &natsx.NatsxSyncPublisher{P: natsx.NewNatsxProducer(c), Retries: 2, Backoff: 50 * time.Millisecond},
		cons:     natsx.NewNatsxConsumer(c, natsx.NatsxRecoverMiddleware()),
		dedupTTL: dedupTTL,
	}
}

func (b *NatsBus) Publish(ctx context.Context, subject, msgID string, data []byte) error {
	return b.prod.PublishOnce(ctx, subject, msgID, data, nil)
}

func (b *NatsBus) Subscribe(subject string, fn func(data []byte, msgID string)) (func(), error) {
	idem := natsx.NewMemIdem(b.dedupTTL)
	unsub, err := b.cons.Subscribe(subject, "", func(ctx context.Context, msg natsx.NatsxMessage) error {
		fn(msg.Data, msg.Header[natsx.HeaderMsgID])
		return nil
	}, natsx.NatsxIdemMiddleware(idem, b.dedupTTL))
	if err != nil {
		idem.Close()
		return nil, err
	}
	return func() {
		unsub()
		idem.Close()
	}, nil
}

// ===== 进程内 =====

type localSub struct {
	fn func([]byte, string)
}

// LocalBus 同步投递，订阅回调在发布者协程中执行
type LocalBus struct {
	mu   sync.RWMutex
	subs map[string]map[*localSub]struct{}
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[*localSub]struct{})}
}

func (b *LocalBus) Publish(ctx context.Context, subject, msgID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	targets := make([]*localSub, 0, len(b.subs[subject]))
	for s := range b.subs[subject] {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		s.fn(append([]byte(nil), data...), msgID)
	}
	return nil
}

func (b *LocalBus) Subscribe(subject string, fn func([]byte, string)) (func(), error) {
	s := &localSub{fn: fn}
	b.mu.Lock()
	m, ok := b.subs[subject]
	if !ok {
		m = make(map[*localSub]struct{})
		b.subs[subject] = m
	}
	m[s] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[subject], s)
			if len(b.subs[subject]) == 0 {
				delete(b.subs, subject)
			}
			b.mu.Unlock()
		})
	}, nil
}

// Subscribers 某 subject 当前订阅数
func (b *LocalBus) Subscribers(subject string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[subject])
}
