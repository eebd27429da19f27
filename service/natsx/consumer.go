package natsx

import (
	"context"

	"DogiCord/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NatsxConsumer 消费端
type NatsxConsumer struct {
	c   *NatsxClient
	mws []NatsxMiddleware
}

func NewNatsxConsumer(c *NatsxClient, mws ...NatsxMiddleware) *NatsxConsumer {
	return &NatsxConsumer{c: c, mws: mws}
}

// Subscribe Core 订阅；queue 为空即广播。返回取消函数（幂等）
func (cs *NatsxConsumer) Subscribe(subject, queue string, h NatsxHandler, extra ...NatsxMiddleware) (func(), error) {
	h = NatsxChain(h, append(append([]NatsxMiddleware{}, cs.mws...), extra...)...)

	cb := func(m *nats.Msg) {
		msg := NatsxMessage{
			Subject: m.Subject,
			Data:    append([]byte(nil), m.Data...),
			Header:  headerToMap(m.Header),
		}
		if err := h(context.Background(), msg); err != nil {
			logger.Warn("[NATS] handler error", zap.String("subject", m.Subject), zap.Error(err))
		}
	}
	var (
		sub *nats.Subscription
		err error
	)
	if queue == "" {
		sub, err = cs.c.nc.Subscribe(subject, cb)
	} else {
		sub, err = cs.c.nc.QueueSubscribe(subject, queue, cb)
	}
	if err != nil {
		return nil, err
	}
	_ = sub.SetPendingLimits(65536, 64*1024*1024)
	cs.c.track(sub)

	return func() {
		cs.c.untrack(sub)
		_ = sub.Unsubscribe()
	}, nil
}

func headerToMap(h nats.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
