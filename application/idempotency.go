package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"saga-orchestrator/domain/entities"
	"saga-orchestrator/domain/repositories"
	sagaerrors "saga-orchestrator/errors"
	"saga-orchestrator/utils/helpers"
)

// IdempotencyLedger remembers which inbound messages were already handled.
type IdempotencyLedger struct {
	repo      repositories.ProcessedMessageRepository
	retention time.Duration
	clock     func() time.Time
	logger    *zap.Logger
}

func NewIdempotencyLedger(repo repositories.ProcessedMessageRepository, retention time.Duration, logger *zap.Logger) *IdempotencyLedger {
	return &IdempotencyLedger{repo: repo, retention: retention, clock: helpers.GetCurrentTime, logger: logger}
}

// WithClock stamps records with clock instead of the wall clock.
func (l *IdempotencyLedger) WithClock(clock func() time.Time) *IdempotencyLedger {
	l.clock = clock
	return l
}

func (l *IdempotencyLedger) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	return l.repo.Exists(ctx, messageID)
}

// RecordProcessing stores the decision taken for a message. Recording the same id twice
// keeps the first record.
func (l *IdempotencyLedger) RecordProcessing(ctx context.Context, messageID, sagaID string, stepID int, messageType string, result map[string]interface{}) error {
	if messageID == "" {
		return nil
	}
	err := l.repo.Insert(ctx, &entities.ProcessedMessage{
		MessageID:   messageID,
		SagaID:      sagaID,
		StepID:      stepID,
		MessageType: messageType,
		ProcessedAt: l.clock(),
		Result:      result,
	})
	if errors.Is(err, sagaerrors.ErrAlreadyProcessed) {
		l.logger.Info("processed_message_exists", zap.String("message_id", messageID), zap.String("saga_id", sagaID))
		return nil
	}
	return err
}

func (l *IdempotencyLedger) GetProcessedResult(ctx context.Context, messageID string) (map[string]interface{}, error) {
	msg, err := l.repo.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return msg.Result, nil
}

// Purge drops records older than the retention window.
func (l *IdempotencyLedger) Purge(ctx context.Context, now time.Time) (int64, error) {
	if l.retention <= 0 {
		return 0, nil
	}
	return l.repo.DeleteProcessedBefore(ctx, now.Add(-l.retention))
}
