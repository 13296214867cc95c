package kafka

import (
	"context"
	"strings"
	"time"

	"github.com/Shopify/sarama"
	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"saga-orchestrator/domain/repositories"
	"saga-orchestrator/utils/configs"
)

// Storage bundles the sarama clients used by the orchestrator.
type Storage struct {
	*Producer
	Group  sarama.ConsumerGroup
	Admin  sarama.ClusterAdmin
	conf   configs.Kafka
	logger *zap.Logger
	// rejoin paces group rejoins after a failed session.
	rejoin backoff.BackOff
}

func newRejoinBackOff() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = 0
	return policy
}

// NewSaramaConfig builds a client config: synchronous acks from all replicas, hash
// partitioning on the record key, manual offset marking.
func NewSaramaConfig(conf configs.Kafka) (*sarama.Config, error) {
	c := sarama.NewConfig()
	if conf.Version != "" {
		v, err := sarama.ParseKafkaVersion(conf.Version)
		if err != nil {
			return nil, errors.Wrapf(err, "kafka version %s", conf.Version)
		}
		c.Version = v
	}
	if conf.ClientID != "" {
		c.ClientID = conf.ClientID
	}
	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Return.Successes = true
	c.Producer.Partitioner = sarama.NewHashPartitioner
	c.Consumer.Offsets.Initial = sarama.OffsetOldest
	c.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRange
	return c, nil
}

func NewConnection(conf configs.Kafka, logger *zap.Logger) (*Storage, error) {
	brokers := strings.Split(conf.Brokers, ",")
	c, err := NewSaramaConfig(conf)
	if err != nil {
		return nil, err
	}
	client, err := sarama.NewClient(brokers, c)
	if err != nil {
		return nil, errors.Wrap(err, "kafka client")
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "kafka producer")
	}
	group, err := sarama.NewConsumerGroupFromClient(conf.ConsumerGroup, client)
	if err != nil {
		_ = producer.Close()
		return nil, errors.Wrap(err, "kafka consumer group")
	}
	admin, err := sarama.NewClusterAdminFromClient(client)
	if err != nil {
		_ = group.Close()
		_ = producer.Close()
		return nil, errors.Wrap(err, "kafka admin")
	}
	return &Storage{
		Producer: NewProducer(producer),
		Group:    group,
		Admin:    admin,
		conf:     conf,
		logger:   logger,
		rejoin:   newRejoinBackOff(),
	}, nil
}

// Consume joins the consumer group until ctx is done, rejoining after every rebalance.
// A session that ends in an error delays the next join.
func (s *Storage) Consume(ctx context.Context, topics []string, handler repositories.MessageHandler) error {
	h := &groupHandler{handler: handler, logger: s.logger}
	if s.rejoin == nil {
		s.rejoin = newRejoinBackOff()
	}
	s.rejoin.Reset()
	for {
		err := s.Group.Consume(ctx, topics, h)
		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			s.rejoin.Reset()
			continue
		}
		wait := s.rejoin.NextBackOff()
		if wait == backoff.Stop {
			return errors.Wrap(err, "kafka consume")
		}
		s.logger.Error("kafka_consume_error", zap.Error(err), zap.Duration("rejoin_in", wait))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// EnsureTopics creates the topics that do not exist yet.
func (s *Storage) EnsureTopics(ctx context.Context, topics []string) error {
	existing, err := s.Admin.ListTopics()
	if err != nil {
		return errors.Wrap(err, "list topics")
	}
	partitions := int32(s.conf.Partitions)
	if partitions <= 0 {
		partitions = 1
	}
	replicas := int16(s.conf.Replicas)
	if replicas <= 0 {
		replicas = 1
	}
	for _, topic := range topics {
		if _, ok := existing[topic]; ok {
			continue
		}
		err = s.Admin.CreateTopic(topic, &sarama.TopicDetail{NumPartitions: partitions, ReplicationFactor: replicas}, false)
		if err != nil && !topicExists(err) {
			return errors.Wrapf(err, "create topic %s", topic)
		}
		s.logger.Info("kafka_topic_created", zap.String("topic", topic), zap.Int32("partitions", partitions))
	}
	return nil
}

func topicExists(err error) bool {
	if te, ok := err.(*sarama.TopicError); ok {
		return te.Err == sarama.ErrTopicAlreadyExists
	}
	return err == sarama.ErrTopicAlreadyExists
}

// Close stops the group and the producer; the admin closes the shared client last.
func (s *Storage) Close() error {
	_ = s.Group.Close()
	_ = s.Producer.Close()
	return s.Admin.Close()
}
