package kafka

import (
	"context"
	"encoding/json"
	"time"

	"DogiCord/logger"
	"DogiCord/tools/errs"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

// Activity 一条活动记录（消息、好友、群、屏蔽等变更）
type Activity struct {
	Kind    string    `json:"kind"`
	Actor   string    `json:"actor"`
	Target  string    `json:"target,omitempty"`
	Ref     string    `json:"ref,omitempty"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// EventLog 活动日志；key 决定分区（同一会话同分区保序）
type EventLog struct {
	producer sarama.SyncProducer
	topic    string
}

func NewEventLog(p sarama.SyncProducer, topic string) *EventLog {
	return &EventLog{producer: p, topic: topic}
}

// Record 失败只记日志：活动日志不影响主流程
func (l *EventLog) Record(ctx context.Context, key string, a Activity) {
	if err := l.Append(ctx, key, a); err != nil {
		logger.Warn("[EventLog] append failed", zap.String("kind", a.Kind), zap.String("key", key), zap.Error(err))
	}
}

func (l *EventLog) Append(ctx context.Context, key string, a Activity) error {
	if l == nil || l.producer == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.At.IsZero() {
		a.At = time.Now()
	}
	b, err := json.Marshal(a)
	if err != nil {
		return errs.Wrap(err)
	}
	msg := &sarama.ProducerMessage{
		Topic: l.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(b),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(a.Kind)},
		},
	}
	_, _, err = l.producer.SendMessage(msg)
	return errs.WrapMsg(err, "send activity", "topic", l.topic)
}

func (l *EventLog) Close() error {
	if l == nil || l.producer == nil {
		return nil
	}
	return l.producer.Close()
}
