package kafka

import (
	"DogiCord/tools/errs"

	"github.com/Shopify/sarama"
)

// NewSyncProducer 同步生产者
func NewSyncProducer(c Config) (sarama.SyncProducer, error) {
	if len(c.Brokers) == 0 {
		return nil, errs.New("kafka brokers missing")
	}
	cfg, err := BuildBaseConfig(c)
	if err != nil {
		return nil, err
	}
	p, err := sarama.NewSyncProducer(c.Brokers, cfg)
	if err != nil {
		return nil, errs.WrapMsg(err, "new sync producer", "brokers", c.Brokers)
	}
	return p, nil
}
