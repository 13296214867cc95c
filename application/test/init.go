package test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"saga-orchestrator/application"
	"saga-orchestrator/domain/constants"
	"saga-orchestrator/domain/entities"
	"saga-orchestrator/domain/repositories"
	"saga-orchestrator/domain/repositories/mocks"
	"saga-orchestrator/infrastructure/memory"
	"saga-orchestrator/utils/configs"
	"saga-orchestrator/utils/gpooling"
	"saga-orchestrator/utils/helpers"
	"saga-orchestrator/utils/keylock"
)

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type MockService struct {
	Config    *configs.Config
	App       *application.SagaApplication
	Store     *memory.SagaStore
	Processed *memory.ProcessedStore
	Broker    *memory.Broker
	Notifier  *mocks.StatusNotifier
	Alerter   *mocks.Alerter
	Clock     *Clock
}

type Option func(infra *application.Infrastructure)

// WithProducer replaces the in-memory broker as command producer.
func WithProducer(producer repositories.MessageProducer) Option {
	return func(infra *application.Infrastructure) {
		infra.Producer = producer
	}
}

// NewTestSagaApplication wires the application on in-memory adapters and mocked
// notifier and alerter. Tests that drive a saga to a terminal status set expectations on
// the mocks or call AllowNotifications.
func NewTestSagaApplication(t *testing.T, opts ...Option) *MockService {
	config, err := configs.LoadTestConfig(moduleRoot())
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	pool, err := gpooling.NewPooling(config.MaxPoolSize, logger)
	require.NoError(t, err)
	scanPool, err := gpooling.NewPooling(config.Jobs.ScanWorkers, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		scanPool.Release()
		pool.Release()
	})

	th := &MockService{
		Config:    config,
		Store:     memory.NewSagaStore(),
		Processed: memory.NewProcessedStore(),
		Broker:    memory.NewBroker(logger),
		Notifier:  &mocks.StatusNotifier{},
		Alerter:   &mocks.Alerter{},
		Clock:     NewClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
	infra := application.Infrastructure{
		Store:      th.Store,
		Processed:  th.Processed,
		IDs:        memory.IDGenerator{},
		Producer:   th.Broker,
		Consumer:   th.Broker,
		TopicAdmin: th.Broker,
		Locker:     keylock.New(),
		Notifier:   th.Notifier,
		Alerter:    th.Alerter,
		Clock:      th.Clock.Now,
	}
	for _, opt := range opts {
		opt(&infra)
	}
	th.App = application.NewSagaApplicationWith(config, logger, pool, scanPool, infra)
	return th
}

// AllowNotifications makes the mocked notifier and alerter accept every call.
func (th *MockService) AllowNotifications() {
	th.Notifier.On("NotifyStatus", mock.Anything, mock.Anything).Return(nil)
	th.Alerter.On("Alert", mock.Anything, mock.Anything).Return(nil)
}

// Commands decodes every command written to the broker, in publish order.
func (th *MockService) Commands(t *testing.T) []*entities.CommandMessage {
	var res []*entities.CommandMessage
	for _, rec := range th.Broker.Records("") {
		if !strings.Contains(rec.Topic, ".commands.") {
			continue
		}
		cmd := &entities.CommandMessage{}
		require.NoError(t, json.Unmarshal(rec.Value, cmd))
		res = append(res, cmd)
	}
	return res
}

func (th *MockService) LastCommand(t *testing.T) *entities.CommandMessage {
	cmds := th.Commands(t)
	require.NotEmpty(t, cmds)
	return cmds[len(cmds)-1]
}

// Reply builds the domain service answer to cmd.
func (th *MockService) Reply(t *testing.T, cmd *entities.CommandMessage, success bool, payload map[string]interface{}) *entities.EventMessage {
	flow, _ := cmd.Metadata[constants.MetaFlow].(string)
	o, err := th.App.OrchestratorFor(flow)
	require.NoError(t, err)
	step, ok := o.Definition().StepByNumber(cmd.StepID)
	require.True(t, ok, "no step %d in %s", cmd.StepID, flow)

	ev := &entities.EventMessage{
		MessageID:     helpers.GetUUId(),
		SagaID:        cmd.SagaID,
		StepID:        cmd.StepID,
		Type:          step.ReplyEventType,
		SourceService: cmd.TargetService,
		Success:       success,
		Timestamp:     th.Clock.Now(),
		Payload:       payload,
	}
	if !success {
		ev.ErrorCode = "REJECTED"
		ev.ErrorMessage = cmd.Type + " rejected"
	}
	return ev
}

// Answer replies to the latest command and hands the event to its orchestrator.
func (th *MockService) Answer(t *testing.T, success bool, payload map[string]interface{}) *entities.EventMessage {
	cmd := th.LastCommand(t)
	ev := th.Reply(t, cmd, success, payload)
	th.Handle(t, cmd, ev)
	return ev
}

func (th *MockService) Handle(t *testing.T, cmd *entities.CommandMessage, ev *entities.EventMessage) {
	flow, _ := cmd.Metadata[constants.MetaFlow].(string)
	o, err := th.App.OrchestratorFor(flow)
	require.NoError(t, err)
	require.NoError(t, o.HandleEvent(context.Background(), ev))
}

func (th *MockService) Saga(t *testing.T, sagaID string) *entities.SagaState {
	state, err := th.Store.FindByID(context.Background(), sagaID)
	require.NoError(t, err)
	return state
}

// moduleRoot lets packages at any depth load config_test.json.
func moduleRoot() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..")
}
