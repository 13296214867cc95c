package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"saga-orchestrator/domain/constants"
	"saga-orchestrator/domain/entities"
	sagaerrors "saga-orchestrator/errors"
	"saga-orchestrator/utils/metrics"
)

// ConsumeEvent is the broker handler for every <service>.events.<flow> topic. A record is
// acknowledged once it was handled or parked on the dead-letter topic; only a failed
// dead-letter publish or a cancelled context leaves it unacknowledged.
func (app *SagaApplication) ConsumeEvent(ctx context.Context, topic string, key, value []byte) error {
	_, flow, ok := constants.ParseEventTopic(topic)
	if !ok {
		return app.deadLetter(ctx, topic, key, value, errors.Wrapf(sagaerrors.ErrUnknownFlow, "topic %s", topic))
	}
	orchestrator, ok := app.orchestrators[flow]
	if !ok {
		return app.deadLetter(ctx, topic, key, value, errors.Wrapf(sagaerrors.ErrUnknownFlow, "flow %s", flow))
	}

	ev := &entities.EventMessage{}
	if err := json.Unmarshal(value, ev); err != nil {
		return app.deadLetter(ctx, topic, key, value, errors.Wrap(sagaerrors.ErrInvalidPayload, err.Error()))
	}
	if ev.SagaID == "" || ev.Type == "" {
		return app.deadLetter(ctx, topic, key, value, errors.Wrap(sagaerrors.ErrInvalidPayload, "sagaId and type are required"))
	}

	err := backoff.Retry(func() error {
		err := orchestrator.HandleEvent(ctx, ev)
		if err != nil {
			app.Logger.Warn("event_handle_failed",
				zap.String("topic", topic),
				zap.String("saga_id", ev.SagaID),
				zap.String("message_id", ev.MessageID),
				zap.Error(err),
			)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(app.consumerBackoff(), app.consumerRetries()), ctx))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return app.deadLetter(ctx, topic, key, value, err)
}

func (app *SagaApplication) deadLetter(ctx context.Context, topic string, key, value []byte, cause error) error {
	app.Metrics.Inc(metrics.EventDeadLettered)
	app.Logger.Error("event_dead_lettered", zap.String("topic", topic), zap.ByteString("key", key), zap.Error(cause))

	err := app.Publisher.PublishDeadLetter(ctx, string(key), DeadLetter{
		OriginalTopic: topic,
		Payload:       value,
		Error:         cause.Error(),
		FailedAt:      app.clock().Format(time.RFC3339Nano),
	})
	if err != nil {
		app.Logger.Error("dead_letter_publish_failed", zap.String("topic", topic), zap.Error(err))
	}
	return err
}

func (app *SagaApplication) consumerBackoff() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	if app.Config.Consumer.InitialBackoff > 0 {
		policy.InitialInterval = app.Config.Consumer.InitialBackoff
	}
	policy.MaxInterval = 10 * policy.InitialInterval
	return policy
}

// consumerRetries is the number of attempts after the first one.
func (app *SagaApplication) consumerRetries() uint64 {
	if app.Config.Consumer.MaxAttempts <= 1 {
		return 0
	}
	return app.Config.Consumer.MaxAttempts - 1
}
