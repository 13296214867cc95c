package kafka

import (
	"context"

	"github.com/Shopify/sarama"
)

// Producer writes keyed records through a sarama sync producer.
type Producer struct {
	producer sarama.SyncProducer
}

func NewProducer(producer sarama.SyncProducer) *Producer {
	return &Producer{producer: producer}
}

func (p *Producer) Produce(ctx context.Context, topic, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	return err
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
