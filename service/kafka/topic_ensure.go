package kafka

import (
	"errors"

	"DogiCord/logger"
	"DogiCord/tools/errs"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

// EnsureTopic 不存在则创建；已存在且分区数不足时扩分区（Kafka 只能增不能减）
func EnsureTopic(admin sarama.ClusterAdmin, c Config) error {
	partitions := c.Partitions
	if partitions <= 0 {
		partitions = 1
	}
	rf := c.ReplicationFactor
	if rf <= 0 {
		rf = 1
	}

	descs, err := admin.DescribeTopics([]string{c.Topic})
	if err == nil && len(descs) == 1 && errors.Is(descs[0].Err, sarama.ErrNoError) {
		have := int32(len(descs[0].Partitions))
		if have < partitions {
			if err := admin.CreatePartitions(c.Topic, partitions, nil, false); err != nil {
				return errs.WrapMsg(err, "create partitions", "topic", c.Topic)
			}
			logger.Info("[Topic] partitions increased", zap.String("topic", c.Topic), zap.Int32("from", have), zap.Int32("to", partitions))
			return nil
		}
		logger.Info("[Topic] exists", zap.String("topic", c.Topic), zap.Int32("partitions", have))
		return nil
	}

	minISR := "1"
	if rf >= 3 {
		minISR = "2"
	}
	td := &sarama.TopicDetail{
		NumPartitions:     partitions,
		ReplicationFactor: rf,
		ConfigEntries: map[string]*string{
			"cleanup.policy":                 strPtr("delete"),
			"min.insync.replicas":            strPtr(minISR),
			"unclean.leader.election.enable": strPtr("false"),
			"compression.type":               strPtr("producer"),
		},
	}
	if err := admin.CreateTopic(c.Topic, td, false); err != nil {
		if errors.Is(err, sarama.ErrTopicAlreadyExists) {
			return nil
		}
		var te *sarama.TopicError
		if errors.As(err, &te) && te.Err == sarama.ErrTopicAlreadyExists {
			return nil
		}
		return errs.WrapMsg(err, "create topic", "topic", c.Topic)
	}
	logger.Info("[Topic] created", zap.String("topic", c.Topic), zap.Int32("partitions", partitions), zap.Int16("rf", rf))
	return nil
}

// EnsureTopicWithBrokers 临时建一个 admin
func EnsureTopicWithBrokers(c Config) error {
	cfg, err := BuildBaseConfig(c)
	if err != nil {
		return err
	}
	admin, err := sarama.NewClusterAdmin(c.Brokers, cfg)
	if err != nil {
		return errs.WrapMsg(err, "new cluster admin")
	}
	defer func() { _ = admin.Close() }()
	return EnsureTopic(admin, c)
}

func strPtr(s string) *string { return &s }
