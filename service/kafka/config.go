package kafka

import (
	"strings"
	"time"

	"DogiCord/tools/errs"

	"github.com/Shopify/sarama"
)

// Config 活动日志的 Kafka 配置
type Config struct {
	Brokers           []string
	Topic             string
	Version           string // 例如 "2.1.0"
	Compression       string // none/snappy/lz4/zstd
	Retries           int
	Partitions        int32
	ReplicationFactor int16
	AutoCreateTopic   bool
}

func BuildBaseConfig(c Config) (*sarama.Config, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = "dogicord"

	if c.Version != "" {
		v, err := sarama.ParseKafkaVersion(c.Version)
		if err != nil {
			return nil, errs.WrapMsg(err, "parse kafka version", "version", c.Version)
		}
		cfg.Version = v
	} else {
		cfg.Version = sarama.V2_1_0_0
	}

	// Producer
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	retries := c.Retries
	if retries <= 0 {
		retries = 1
	}
	cfg.Producer.Retry.Max = retries
	cfg.Producer.Partitioner = sarama.NewHashPartitioner // Key 控制分区：同一会话有序
	switch strings.ToLower(c.Compression) {
	case "snappy":
		cfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		cfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		cfg.Producer.Compression = sarama.CompressionZSTD
	default:
		cfg.Producer.Compression = sarama.CompressionNone
	}

	// Net
	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg, nil
}
