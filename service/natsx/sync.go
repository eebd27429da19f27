package natsx

import (
	"context"
	"time"
)

// NatsxSyncPublisher 带重试的发布器；重试复用同一个 msgID，消费端按 msgID 去重
type NatsxSyncPublisher struct {
	P       *NatsxProducer
	Retries int
	Backoff time.Duration
}

func (sp *NatsxSyncPublisher) PublishOnce(ctx context.Context, subject, msgID string, payload []byte, hdr map[string]string) error {
	var err error
	for i := 0; i <= sp.Retries; i++ {
		err = sp.P.PublishOnce(ctx, subject, msgID, payload, hdr)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sp.Backoff):
		}
	}
	return err
}
