package application

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"saga-orchestrator/domain/constants"
	"saga-orchestrator/domain/entities"
	"saga-orchestrator/domain/repositories"
)

// CommandPublisher routes commands to <service>.commands.<flow>, keyed by saga id so
// commands of one saga stay on one partition.
type CommandPublisher struct {
	producer repositories.MessageProducer
	logger   *zap.Logger
}

func NewCommandPublisher(producer repositories.MessageProducer, logger *zap.Logger) *CommandPublisher {
	return &CommandPublisher{producer: producer, logger: logger}
}

func (p *CommandPublisher) Publish(ctx context.Context, flow string, cmd *entities.CommandMessage) error {
	topic := constants.CommandTopic(cmd.TargetService, flow)
	value, err := json.Marshal(cmd)
	if err != nil {
		return errors.Wrapf(err, "marshal command %s", cmd.Type)
	}
	if err = p.producer.Produce(ctx, topic, cmd.SagaID, value); err != nil {
		return errors.Wrapf(err, "publish %s to %s", cmd.Type, topic)
	}
	p.logger.Info("command_published",
		zap.String("saga_id", cmd.SagaID),
		zap.String("topic", topic),
		zap.String("type", cmd.Type),
		zap.Int("step_id", cmd.StepID),
		zap.String("message_id", cmd.MessageID),
	)
	return nil
}

// DeadLetter is the envelope written to saga.dead-letter.
type DeadLetter struct {
	OriginalTopic string          `json:"originalTopic"`
	Payload       json.RawMessage `json:"payload"`
	Error         string          `json:"error"`
	FailedAt      string          `json:"failedAt"`
}

// PublishDeadLetter parks a message the consumer could not handle.
func (p *CommandPublisher) PublishDeadLetter(ctx context.Context, key string, letter DeadLetter) error {
	if !json.Valid(letter.Payload) {
		raw, _ := json.Marshal(string(letter.Payload))
		letter.Payload = raw
	}
	value, err := json.Marshal(letter)
	if err != nil {
		return errors.Wrap(err, "marshal dead letter")
	}
	return errors.Wrap(p.producer.Produce(ctx, constants.TopicDeadLetter, key, value), "publish dead letter")
}
