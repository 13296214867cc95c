package rabbitmq

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"saga-orchestrator/domain/repositories"
	"saga-orchestrator/utils/gpooling"
)

const headerKey = "key"

type options struct {
	Uri        string
	Exchange   string
	AutoDelete bool
	Durable    bool
	Exclusive  bool
	NoWait     bool
	Prefetch   int
}

func NewOptions() *options {
	return &options{Exchange: "saga", Durable: true, Prefetch: 16}
}

func (o *options) WithUri(uri string) *options {
	o.Uri = uri
	return o
}

func (o *options) WithExchange(exchange string) *options {
	o.Exchange = exchange
	return o
}

func (o *options) WithPrefetch(n int) *options {
	o.Prefetch = n
	return o
}

// RabbiMQ carries saga topics over one topic exchange: the topic name is the routing key
// and every consumed topic gets its own durable queue.
type RabbiMQ struct {
	Connection *amqp.Connection
	IPool      gpooling.IPool
	options
	*zap.Logger
}

func NewRabbiMQ(o options, log *zap.Logger, pool gpooling.IPool) (*RabbiMQ, error) {
	conn, err := amqp.Dial(o.Uri)
	if err != nil {
		return nil, errors.Wrap(err, "rabbitmq dial")
	}
	r := &RabbiMQ{
		IPool:      pool,
		Connection: conn,
		options:    o,
		Logger:     log,
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "rabbitmq channel")
	}
	defer ch.Close()
	if err = r.declareExchange(ch); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return r, nil
}

func (r *RabbiMQ) declareExchange(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		r.Exchange, // name
		"topic",
		r.Durable,    // durable
		r.AutoDelete, // delete when unused
		false,        // internal
		r.NoWait,     // no-wait
		nil,          // arguments
	)
	return errors.Wrapf(err, "declare exchange %s", r.Exchange)
}

func (r *RabbiMQ) Produce(ctx context.Context, topic, key string, value []byte) error {
	ch, err := r.Connection.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.Publish(
		r.Exchange, // exchange
		topic,      // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      amqp.Table{headerKey: key},
			Body:         value,
		})
}

// EnsureTopics declares and binds the queue of every topic.
func (r *RabbiMQ) EnsureTopics(ctx context.Context, topics []string) error {
	ch, err := r.Connection.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	for _, topic := range topics {
		if err = r.declareQueue(ch, topic); err != nil {
			return err
		}
	}
	return nil
}

func (r *RabbiMQ) declareQueue(ch *amqp.Channel, topic string) error {
	q, err := ch.QueueDeclare(
		topic,        // name
		r.Durable,    // durable
		r.AutoDelete, // delete when unused
		r.Exclusive,  // exclusive
		r.NoWait,     // no-wait
		nil,          // arguments
	)
	if err != nil {
		return errors.Wrapf(err, "declare queue %s", topic)
	}
	err = ch.QueueBind(
		q.Name,     // queue name
		topic,      // routing key
		r.Exchange, // exchange
		r.NoWait,
		nil,
	)
	return errors.Wrapf(err, "bind queue %s", topic)
}

// Consume reads every topic queue with manual acknowledgement until ctx is done. A handler
// error requeues the delivery.
func (r *RabbiMQ) Consume(ctx context.Context, topics []string, handler repositories.MessageHandler) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(topics))
	for _, topic := range topics {
		topic := topic
		wg.Add(1)
		err := r.IPool.Submit(func() {
			defer wg.Done()
			if err := r.consumeTopic(ctx, topic, handler); err != nil {
				errs <- err
			}
		})
		if err != nil {
			wg.Done()
			return errors.Wrapf(err, "start consumer %s", topic)
		}
	}
	wg.Wait()
	close(errs)
	return <-errs
}

func (r *RabbiMQ) consumeTopic(ctx context.Context, topic string, handler repositories.MessageHandler) error {
	ch, err := r.Connection.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err = r.declareQueue(ch, topic); err != nil {
		return err
	}
	if r.Prefetch > 0 {
		if err = ch.Qos(r.Prefetch, 0, false); err != nil {
			return err
		}
	}
	msgs, err := ch.Consume(
		topic,       // queue
		"",          // consumer
		false,       // auto-ack
		r.Exclusive, // exclusive
		false,       // no-local
		r.NoWait,    // no-wait
		nil,         // args
	)
	if err != nil {
		return errors.Wrapf(err, "consume %s", topic)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.Errorf("rabbitmq delivery channel of %s closed", topic)
			}
			key, _ := d.Headers[headerKey].(string)
			if err := handler(ctx, d.RoutingKey, []byte(key), d.Body); err != nil {
				r.Logger.Error("rabbitmq_message_requeued", zap.String("topic", topic), zap.Error(err))
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (r *RabbiMQ) Close() error {
	return r.Connection.Close()
}
