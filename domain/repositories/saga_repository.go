package repositories

import (
	"context"
	"time"

	"saga-orchestrator/domain/entities"
)

// SagaStateRepository persists saga instances. Update is a compare-and-set on Version:
// it fails with ErrVersionConflict when the stored version differs from state.Version,
// and bumps the version of the stored copy and of state on success.
type SagaStateRepository interface {
	Create(ctx context.Context, state *entities.SagaState) error
	FindByID(ctx context.Context, sagaID string) (*entities.SagaState, error)
	Update(ctx context.Context, state *entities.SagaState) error
	FindByStatus(ctx context.Context, statuses []entities.SagaStatus) ([]*entities.SagaState, error)
	// FindStuck returns sagas of sagaType in one of statuses whose current step started at or before olderThan.
	FindStuck(ctx context.Context, sagaType entities.SagaType, statuses []entities.SagaStatus, olderThan time.Time) ([]*entities.SagaState, error)
}

type ProcessedMessageRepository interface {
	Exists(ctx context.Context, messageID string) (bool, error)
	// Insert fails with ErrAlreadyProcessed when the message id is already recorded.
	Insert(ctx context.Context, msg *entities.ProcessedMessage) error
	FindByID(ctx context.Context, messageID string) (*entities.ProcessedMessage, error)
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

// SagaIDGenerator hands out new saga ids for a type prefix.
type SagaIDGenerator interface {
	NextID(ctx context.Context, prefix string) (string, error)
}

// MessageProducer writes one keyed record to a broker topic.
type MessageProducer interface {
	Produce(ctx context.Context, topic, key string, value []byte) error
}

// MessageHandler processes one inbound record. A nil error acknowledges it.
type MessageHandler func(ctx context.Context, topic string, key, value []byte) error

// MessageConsumer feeds records of topics to handler until ctx is done.
type MessageConsumer interface {
	Consume(ctx context.Context, topics []string, handler MessageHandler) error
}

// TopicAdmin provisions broker topics.
type TopicAdmin interface {
	EnsureTopics(ctx context.Context, topics []string) error
}

// Locker serialises work on one key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// StatusNotifier announces a saga reaching a terminal status.
type StatusNotifier interface {
	NotifyStatus(ctx context.Context, state *entities.SagaState) error
}

// Alerter raises operator alerts for sagas that need manual intervention.
type Alerter interface {
	Alert(ctx context.Context, message string) error
}
