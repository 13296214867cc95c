package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"saga-orchestrator/domain/repositories"
)

type Record struct {
	Topic string
	Key   string
	Value []byte
}

// Broker is an in-process topic log. Records produced to a topic with an active consumer
// are also delivered to it.
type Broker struct {
	mu      sync.Mutex
	records []Record
	subs    map[string]chan Record
	logger  *zap.Logger
}

func NewBroker(logger *zap.Logger) *Broker {
	return &Broker{subs: map[string]chan Record{}, logger: logger}
}

func (b *Broker) Produce(ctx context.Context, topic, key string, value []byte) error {
	rec := Record{Topic: topic, Key: key, Value: append([]byte(nil), value...)}
	b.mu.Lock()
	b.records = append(b.records, rec)
	ch, ok := b.subs[topic]
	b.mu.Unlock()
	if ok {
		select {
		case ch <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Consume delivers records of topics to handler until ctx is done. A record whose handler
// fails is logged and dropped.
func (b *Broker) Consume(ctx context.Context, topics []string, handler repositories.MessageHandler) error {
	ch := make(chan Record, 64)
	b.mu.Lock()
	for _, t := range topics {
		b.subs[t] = ch
	}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		for _, t := range topics {
			if b.subs[t] == ch {
				delete(b.subs, t)
			}
		}
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case rec := <-ch:
			if err := handler(ctx, rec.Topic, []byte(rec.Key), rec.Value); err != nil {
				b.logger.Error("memory_consume_failed", zap.String("topic", rec.Topic), zap.String("key", rec.Key), zap.Error(err))
			}
		}
	}
}

// Records returns what was produced to topic, or everything when topic is empty.
func (b *Broker) Records(topic string) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	var res []Record
	for _, r := range b.records {
		if topic == "" || r.Topic == topic {
			res = append(res, r)
		}
	}
	return res
}

func (b *Broker) Reset() {
	b.mu.Lock()
	b.records = nil
	b.mu.Unlock()
}

func (b *Broker) EnsureTopics(ctx context.Context, topics []string) error {
	return nil
}
