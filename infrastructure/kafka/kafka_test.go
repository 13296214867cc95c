package kafka

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"saga-orchestrator/utils/configs"
)

func TestProducer_Produce(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"type":"USER_VERIFY_IDENTITY"}` {
			return fmt.Errorf("unexpected value %s", val)
		}
		return nil
	})
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducer(sp)
	require.NoError(t, p.Produce(context.Background(), "user.commands.deposit", "DEP-1", []byte(`{"type":"USER_VERIFY_IDENTITY"}`)))
	assert.Error(t, p.Produce(context.Background(), "user.commands.deposit", "DEP-1", []byte(`{}`)))
	require.NoError(t, p.Close())
}

func TestProducer_CancelledContext(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	p := NewProducer(sp)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Produce(ctx, "user.commands.deposit", "DEP-1", []byte(`{}`)))
	require.NoError(t, p.Close())
}

func TestNewSaramaConfig(t *testing.T) {
	c, err := NewSaramaConfig(configs.Kafka{Version: "2.1.0", ClientID: "saga"})
	require.NoError(t, err)
	assert.True(t, c.Producer.Return.Successes)
	assert.Equal(t, sarama.WaitForAll, c.Producer.RequiredAcks)
	assert.Equal(t, "saga", c.ClientID)
	assert.Equal(t, sarama.V2_1_0_0, c.Version)

	_, err = NewSaramaConfig(configs.Kafka{Version: "not-a-version"})
	assert.Error(t, err)
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	marked []int64
}

func (f *fakeSession) Context() context.Context {
	return context.Background()
}

func (f *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	f.marked = append(f.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (f *fakeClaim) Messages() <-chan *sarama.ConsumerMessage {
	return f.messages
}

func TestGroupHandler_MarksOnlyHandledMessages(t *testing.T) {
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 3)}
	for i := int64(0); i < 3; i++ {
		claim.messages <- &sarama.ConsumerMessage{Topic: "user.events.deposit", Offset: i, Value: []byte(fmt.Sprint(i))}
	}
	close(claim.messages)

	var seen []string
	h := &groupHandler{logger: zaptest.NewLogger(t), handler: func(ctx context.Context, topic string, key, value []byte) error {
		seen = append(seen, string(value))
		if string(value) == "1" {
			return fmt.Errorf("store down")
		}
		return nil
	}}
	session := &fakeSession{}

	err := h.ConsumeClaim(session, claim)
	assert.Error(t, err)
	assert.Equal(t, []string{"0", "1"}, seen)
	assert.Equal(t, []int64{0}, session.marked)
}

func TestTopicExists(t *testing.T) {
	assert.True(t, topicExists(&sarama.TopicError{Err: sarama.ErrTopicAlreadyExists}))
	assert.True(t, topicExists(sarama.ErrTopicAlreadyExists))
	assert.False(t, topicExists(&sarama.TopicError{Err: sarama.ErrInvalidPartitions}))
	assert.False(t, topicExists(fmt.Errorf("boom")))
}

// failingGroup fails the first failures sessions, then cancels the consumer.
type failingGroup struct {
	sarama.ConsumerGroup
	failures int
	cancel   context.CancelFunc
	joins    []time.Time
}

func (f *failingGroup) Consume(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error {
	f.joins = append(f.joins, time.Now())
	if len(f.joins) > f.failures {
		f.cancel()
		return nil
	}
	return fmt.Errorf("dead letter publish failed")
}

func TestStorage_ConsumeDelaysRejoinAfterError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	group := &failingGroup{failures: 3, cancel: cancel}
	s := &Storage{Group: group, logger: zaptest.NewLogger(t), rejoin: backoff.NewConstantBackOff(20 * time.Millisecond)}

	require.NoError(t, s.Consume(ctx, []string{"user.events.deposit"}, nil))
	require.Len(t, group.joins, 4)
	for i := 1; i < len(group.joins); i++ {
		assert.True(t, group.joins[i].Sub(group.joins[i-1]) >= 20*time.Millisecond, "join %d came too early", i)
	}
}

func TestStorage_ConsumeStopsWhenBackOffGivesUp(t *testing.T) {
	group := &failingGroup{failures: 10, cancel: func() {}}
	s := &Storage{Group: group, logger: zaptest.NewLogger(t), rejoin: &backoff.StopBackOff{}}

	err := s.Consume(context.Background(), []string{"user.events.deposit"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dead letter publish failed")
	assert.Len(t, group.joins, 1)
}
