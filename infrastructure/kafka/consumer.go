package kafka

import (
	"github.com/Shopify/sarama"
	"go.uber.org/zap"
	"saga-orchestrator/domain/repositories"
)

type groupHandler struct {
	handler repositories.MessageHandler
	logger  *zap.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim marks a record only after the handler accepted it. A handler error ends
// the claim so the record is delivered again after the rebalance.
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.handler(session.Context(), msg.Topic, msg.Key, msg.Value); err != nil {
			h.logger.Error("kafka_message_not_acknowledged",
				zap.String("topic", msg.Topic),
				zap.Int32("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			return err
		}
		session.MarkMessage(msg, "")
	}
	return nil
}
