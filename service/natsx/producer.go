package natsx

import (
	"context"
)

// HeaderMsgID NATS 标准去重头
const HeaderMsgID = "Nats-Msg-Id"

// NatsxProducer 生产端
type NatsxProducer struct{ c *NatsxClient }

func NewNatsxProducer(c *NatsxClient) *NatsxProducer { return &NatsxProducer{c: c} }

// Publish 按 subject 发送
func (p *NatsxProducer) Publish(ctx context.Context, subject string, data []byte, hdr map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.c.sendCore(subject, data, hdr)
}

// PublishOnce 带 Nats-Msg-Id，消费端用 NatsxIdemMiddleware 去重
func (p *NatsxProducer) PublishOnce(ctx context.Context, subject, msgID string, data []byte, hdr map[string]string) error {
	h := make(map[string]string, len(hdr)+1)
	for k, v := range hdr {
		h[k] = v
	}
	if msgID != "" {
		h[HeaderMsgID] = msgID
	}
	return p.Publish(ctx, subject, data, h)
}
