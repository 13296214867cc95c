package application

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"saga-orchestrator/domain/constants"
	"saga-orchestrator/domain/entities"
	"saga-orchestrator/domain/repositories"
	sagaerrors "saga-orchestrator/errors"
	"saga-orchestrator/infrastructure/database_mgo"
	"saga-orchestrator/infrastructure/database_mgo/processed_message"
	"saga-orchestrator/infrastructure/database_mgo/saga_state"
	"saga-orchestrator/infrastructure/kafka"
	"saga-orchestrator/infrastructure/memory"
	"saga-orchestrator/infrastructure/mqtt"
	"saga-orchestrator/infrastructure/rabbitmq"
	"saga-orchestrator/infrastructure/redis_lock"
	"saga-orchestrator/utils/configs"
	"saga-orchestrator/utils/gpooling"
	"saga-orchestrator/utils/helpers"
	"saga-orchestrator/utils/keylock"
	"saga-orchestrator/utils/metrics"
	"saga-orchestrator/utils/telegram"
)

// Infrastructure holds the adapters an application is built on.
type Infrastructure struct {
	Store      repositories.SagaStateRepository
	Processed  repositories.ProcessedMessageRepository
	IDs        repositories.SagaIDGenerator
	Producer   repositories.MessageProducer
	Consumer   repositories.MessageConsumer
	TopicAdmin repositories.TopicAdmin
	Locker     repositories.Locker
	Notifier   repositories.StatusNotifier
	Alerter    repositories.Alerter
	Clock      func() time.Time
	Closers    []func() error
}

type SagaApplication struct {
	Config     *configs.Config
	Logger     *zap.Logger
	IPool      gpooling.IPool
	ScanPool   gpooling.IPool
	Store      repositories.SagaStateRepository
	Ledger     *IdempotencyLedger
	Publisher  *CommandPublisher
	Metrics    *metrics.Registry
	Consumer   repositories.MessageConsumer
	TopicAdmin repositories.TopicAdmin

	Deposit    *DepositOrchestrator
	Withdrawal *WithdrawalOrchestrator
	OrderBuy   *OrderBuyOrchestrator

	orchestrators map[string]*Orchestrator
	clock         func() time.Time
	closers       []func() error
}

// NewSagaApplicationWith wires the orchestrators on top of ready adapters.
func NewSagaApplicationWith(config *configs.Config, logger *zap.Logger, pool, scanPool gpooling.IPool, infra Infrastructure) *SagaApplication {
	if infra.Clock == nil {
		infra.Clock = helpers.GetCurrentTime
	}
	registry := metrics.New()
	ledger := NewIdempotencyLedger(infra.Processed, config.Jobs.ProcessedRetention, logger).WithClock(infra.Clock)
	publisher := NewCommandPublisher(infra.Producer, logger)

	deps := Dependencies{
		Store:     infra.Store,
		Ledger:    ledger,
		Publisher: publisher,
		Locker:    infra.Locker,
		IDs:       infra.IDs,
		Notifier:  infra.Notifier,
		Alerter:   infra.Alerter,
		Metrics:   registry,
		Logger:    logger,
		Clock:     infra.Clock,
	}

	app := &SagaApplication{
		Config:     config,
		Logger:     logger,
		IPool:      pool,
		ScanPool:   scanPool,
		Store:      infra.Store,
		Ledger:     ledger,
		Publisher:  publisher,
		Metrics:    registry,
		Consumer:   infra.Consumer,
		TopicAdmin: infra.TopicAdmin,
		Deposit:    NewDepositOrchestrator(config.Sagas.Deposit, deps),
		Withdrawal: NewWithdrawalOrchestrator(config.Sagas.Withdrawal, deps),
		OrderBuy:   NewOrderBuyOrchestrator(config.Sagas.OrderBuy, deps),
		clock:      infra.Clock,
		closers:    infra.Closers,
	}
	app.orchestrators = map[string]*Orchestrator{}
	for _, o := range app.Orchestrators() {
		app.orchestrators[o.Definition().Flow()] = o
	}
	return app
}

// NewSagaApplication builds the adapters selected by config and wires the application.
func NewSagaApplication(ctx context.Context, config *configs.Config, logger *zap.Logger, pool gpooling.IPool) (*SagaApplication, error) {
	infra, err := NewInfrastructure(ctx, config, logger, pool)
	if err != nil {
		return nil, err
	}
	workers := config.Jobs.ScanWorkers
	if workers <= 0 {
		workers = 1
	}
	scanPool, err := gpooling.NewPooling(workers, logger)
	if err != nil {
		closeAll(infra.Closers, logger)
		return nil, errors.Wrap(err, "scan pool")
	}
	infra.Closers = append(infra.Closers, func() error {
		scanPool.Release()
		return nil
	})
	return NewSagaApplicationWith(config, logger, pool, scanPool, *infra), nil
}

// NewInfrastructure connects the store, broker, lock, notifier and alerter named in config.
func NewInfrastructure(ctx context.Context, config *configs.Config, logger *zap.Logger, pool gpooling.IPool) (_ *Infrastructure, err error) {
	infra := &Infrastructure{Locker: keylock.New()}
	defer func() {
		if err != nil {
			closeAll(infra.Closers, logger)
		}
	}()

	switch config.Store {
	case configs.StoreMongo:
		client, err := database_mgo.NewMongoDBconnection(ctx, config.MongoURI)
		if err != nil {
			return nil, err
		}
		infra.Closers = append(infra.Closers, func() error { return client.Disconnect(context.Background()) })
		db := client.Database(config.MongoDB)
		store, err := saga_state.NewSagaStateCollection(ctx, db, logger)
		if err != nil {
			return nil, err
		}
		processed, err := processed_message.NewProcessedMessageCollection(ctx, db, config.Jobs.ProcessedRetention, logger)
		if err != nil {
			return nil, err
		}
		infra.Store, infra.Processed, infra.IDs = store, processed, saga_state.NewIDGenerator(db, config.Prefix)
	case configs.StoreMemory:
		infra.Store, infra.Processed, infra.IDs = memory.NewSagaStore(), memory.NewProcessedStore(), memory.IDGenerator{}
	default:
		return nil, errors.Errorf("unknown store %q", config.Store)
	}

	switch config.Broker {
	case configs.BrokerKafka:
		storage, err := kafka.NewConnection(config.KafkaConfig, logger)
		if err != nil {
			return nil, err
		}
		infra.Closers = append(infra.Closers, storage.Close)
		infra.Producer, infra.Consumer, infra.TopicAdmin = storage, storage, storage
	case configs.BrokerRabbitMQ:
		queue, err := rabbitmq.NewRabbiMQ(*rabbitmq.NewOptions().WithUri(config.QueueUri), logger, pool)
		if err != nil {
			return nil, err
		}
		infra.Closers = append(infra.Closers, queue.Close)
		infra.Producer, infra.Consumer, infra.TopicAdmin = queue, queue, queue
	case configs.BrokerMemory:
		broker := memory.NewBroker(logger)
		infra.Producer, infra.Consumer, infra.TopicAdmin = broker, broker, broker
	default:
		return nil, errors.Errorf("unknown broker %q", config.Broker)
	}

	if config.Redis.Address != "" {
		client, err := redis_lock.NewClient(ctx, config.Redis.Address, config.Redis.Password, config.Redis.DB)
		if err != nil {
			return nil, err
		}
		infra.Closers = append(infra.Closers, client.Close)
		infra.Locker = redis_lock.NewLocker(client, config.Redis.LockTTL, logger)
	}

	if config.MQTTInternalUri.Uri != "" {
		client, err := mqtt.Connection(config.MQTTInternalUri.Uri, config.MQTTInternalUri.Username, config.MQTTInternalUri.Password)
		if err != nil {
			return nil, err
		}
		notifier := mqtt.NewStatusNotifier(client, config.MQTTInternalUri.Prefix, logger)
		infra.Closers = append(infra.Closers, func() error {
			notifier.Close()
			return nil
		})
		infra.Notifier = notifier
	}

	alerter, err := telegram.NewAlerter(config.Telegram.Token, config.Telegram.ChannelId, logger)
	if err != nil {
		return nil, err
	}
	infra.Alerter = alerter
	return infra, nil
}

// Orchestrators lists the orchestrator of every saga type.
func (app *SagaApplication) Orchestrators() []*Orchestrator {
	return []*Orchestrator{app.Deposit.Orchestrator, app.Withdrawal.Orchestrator, app.OrderBuy.Orchestrator}
}

// OrchestratorFor returns the orchestrator of a flow such as "deposit".
func (app *SagaApplication) OrchestratorFor(flow string) (*Orchestrator, error) {
	o, ok := app.orchestrators[flow]
	if !ok {
		return nil, errors.Wrapf(sagaerrors.ErrUnknownFlow, "flow %s", flow)
	}
	return o, nil
}

func (app *SagaApplication) GetSaga(ctx context.Context, sagaID string) (*entities.SagaState, error) {
	if strings.TrimSpace(sagaID) == "" {
		return nil, errors.Wrap(sagaerrors.ErrInvalidRequest, "saga id is required")
	}
	return app.Store.FindByID(ctx, sagaID)
}

// ListActive returns every saga that has not reached a terminal status.
func (app *SagaApplication) ListActive(ctx context.Context) ([]*entities.SagaState, error) {
	return app.Store.FindByStatus(ctx, entities.ActiveStatuses)
}

// EventTopics are the topics the orchestrator consumes.
func (app *SagaApplication) EventTopics() []string {
	var topics []string
	for _, o := range app.Orchestrators() {
		topics = append(topics, constants.EventTopics(o.Definition().Flow(), o.Definition().TargetServices())...)
	}
	return topics
}

func (app *SagaApplication) CommandTopics() []string {
	var topics []string
	for _, o := range app.Orchestrators() {
		for _, service := range o.Definition().TargetServices() {
			topics = append(topics, constants.CommandTopic(service, o.Definition().Flow()))
		}
	}
	return topics
}

// AllTopics is every topic the orchestrator reads or writes, dead-letter included.
func (app *SagaApplication) AllTopics() []string {
	topics := append(app.CommandTopics(), app.EventTopics()...)
	return append(topics, constants.TopicDeadLetter)
}

func (app *SagaApplication) EnsureTopics(ctx context.Context) error {
	topics := app.AllTopics()
	if err := app.TopicAdmin.EnsureTopics(ctx, topics); err != nil {
		return err
	}
	app.Logger.Info("topics_ensured", zap.Strings("topics", topics))
	return nil
}

// ConsumeEvents feeds every event topic to ConsumeEvent until ctx is done.
func (app *SagaApplication) ConsumeEvents(ctx context.Context) error {
	topics := app.EventTopics()
	app.Logger.Info("consumer_starting", zap.Strings("topics", topics))
	return app.Consumer.Consume(ctx, topics, app.ConsumeEvent)
}

// Close releases adapters in reverse order of creation.
func (app *SagaApplication) Close() {
	closeAll(app.closers, app.Logger)
}

func closeAll(closers []func() error, logger *zap.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Warn("close_err", zap.Error(err))
		}
	}
}
