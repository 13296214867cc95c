package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"saga-orchestrator/domain/constants"
	"saga-orchestrator/domain/entities"
	"saga-orchestrator/domain/repositories"
	"saga-orchestrator/domain/steps"
	sagaerrors "saga-orchestrator/errors"
	"saga-orchestrator/utils/configs"
	"saga-orchestrator/utils/helpers"
	"saga-orchestrator/utils/metrics"
	"saga-orchestrator/utils/telegram"
)

const (
	TimeoutNone        = ""
	TimeoutRetried     = "retried"
	TimeoutCompensated = "compensated"
)

// Dependencies are shared by the orchestrators of every saga type.
type Dependencies struct {
	Store     repositories.SagaStateRepository
	Ledger    *IdempotencyLedger
	Publisher *CommandPublisher
	Locker    repositories.Locker
	IDs       repositories.SagaIDGenerator
	Notifier  repositories.StatusNotifier
	Alerter   repositories.Alerter
	Metrics   *metrics.Registry
	Logger    *zap.Logger
	// ConflictRetries bounds how often a version conflict is reloaded and reapplied.
	ConflictRetries uint64
	Clock           func() time.Time
}

// Orchestrator drives the sagas of one type through its step table.
type Orchestrator struct {
	Dependencies
	definition *steps.Definition
	config     configs.SagaConfig
	metrics    *metrics.Registry
	logger     *zap.Logger
}

func NewOrchestrator(definition *steps.Definition, config configs.SagaConfig, deps Dependencies) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = helpers.GetCurrentTime
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.ConflictRetries == 0 {
		deps.ConflictRetries = 5
	}
	return &Orchestrator{
		Dependencies: deps,
		definition:   definition,
		config:       config,
		metrics:      deps.Metrics.Scope(definition.Flow()),
		logger:       deps.Logger.With(zap.String("saga_type", string(definition.SagaType))),
	}
}

func (o *Orchestrator) Definition() *steps.Definition {
	return o.definition
}

func (o *Orchestrator) Config() configs.SagaConfig {
	return o.config
}

// StartSaga persists a new saga positioned on the first forward step and issues its
// first command. init fills the business details.
func (o *Orchestrator) StartSaga(ctx context.Context, description string, init func(state *entities.SagaState)) (*entities.SagaState, error) {
	id, err := o.IDs.NextID(ctx, o.definition.SagaType.IDPrefix())
	if err != nil {
		return nil, errors.Wrap(err, "generate saga id")
	}
	now := o.Clock()
	first := o.definition.First()
	state := &entities.SagaState{
		SagaID:               id,
		SagaType:             o.definition.SagaType,
		Status:               entities.SagaStatusStarted,
		CurrentStep:          first.Name,
		CurrentStepNumber:    first.Number,
		CompletedSteps:       []string{},
		StepData:             map[string]interface{}{},
		StartTime:            now,
		CurrentStepStartTime: now,
		LastUpdatedTime:      now,
		MaxRetries:           o.config.MaxRetries,
	}
	init(state)
	state.AppendEvent(entities.LogTypeStartSaga, description, now)

	unlock, err := o.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err = o.Store.Create(ctx, state); err != nil {
		return nil, err
	}
	o.metrics.Inc(metrics.SagaStarted)
	o.logger.Info("saga_started", zap.String("saga_id", id), zap.String("description", description))

	return o.processNextStep(ctx, state)
}

// HandleEvent applies one domain service reply. Unknown sagas, duplicates and replies that
// do not answer the current step are dropped without error.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev *entities.EventMessage) error {
	start := time.Now()
	defer o.metrics.Since(metrics.EventHandleLatency, start)
	log := o.logger.With(
		zap.String("saga_id", ev.SagaID),
		zap.String("message_id", ev.MessageID),
		zap.String("event_type", ev.Type),
		zap.Int("step_id", ev.StepID),
	)

	err := o.mutate(ctx, ev.SagaID, func(state *entities.SagaState) error {
		processed, err := o.Ledger.IsProcessed(ctx, ev.MessageID)
		if err != nil {
			return err
		}
		if processed {
			log.Info("event_duplicate")
			o.metrics.Inc(metrics.EventDuplicate)
			return nil
		}

		if state.SagaType != o.definition.SagaType {
			return o.ignore(ctx, log, ev, state, constants.IgnoredWrongFlow)
		}
		if state.Status.IsTerminal() {
			return o.ignore(ctx, log, ev, state, constants.IgnoredTerminal)
		}
		step, ok := o.definition.Step(state.CurrentStep)
		if !ok || !o.definition.Matches(step, ev) {
			return o.ignore(ctx, log, ev, state, constants.IgnoredStepMismatch)
		}

		next, err := o.applyEvent(ctx, state, step, ev)
		if err != nil {
			return err
		}
		o.metrics.Inc(metrics.EventProcessed)
		log.Info("event_processed", zap.String("status", next.Status.String()), zap.String("current_step", next.CurrentStep))
		return o.Ledger.RecordProcessing(ctx, ev.MessageID, ev.SagaID, stepIDOf(ev, step), ev.Type, map[string]interface{}{
			constants.ResultStatus: next.Status.String(),
			constants.ResultStep:   next.CurrentStep,
			constants.ResultNumber: next.CurrentStepNumber,
		})
	})
	if errors.Is(err, sagaerrors.ErrSagaNotFound) {
		log.Warn("event_unknown_saga")
		o.metrics.Inc(metrics.EventUnknownSaga)
		return nil
	}
	return err
}

func (o *Orchestrator) applyEvent(ctx context.Context, state *entities.SagaState, step *steps.Step, ev *entities.EventMessage) (*entities.SagaState, error) {
	now := o.Clock()
	if !ev.Success {
		reason := ev.ErrorMessage
		if reason == "" {
			reason = fmt.Sprintf(constants.MsgStepFailed, step.Name)
		}
		return o.processNextStep(ctx, o.fail(state, step, reason, now))
	}

	next, err := ApplyEventPayload(step, state, ev)
	if err != nil {
		o.logger.Warn("event_payload_invalid", zap.String("saga_id", state.SagaID), zap.String("event_type", ev.Type), zap.Error(err))
		return o.processNextStep(ctx, o.fail(state, step, fmt.Sprintf(constants.MsgInvalidEventPayload, ev.Type, err.Error()), now))
	}
	if step.IsCompensation() {
		next, err = MoveToNextCompensationStep(o.definition, next, now)
	} else {
		next, err = MoveToNextStep(o.definition, next, now)
	}
	if err != nil {
		return nil, err
	}
	return o.processNextStep(ctx, next)
}

// fail routes a step failure: forward failures enter compensation, a failing
// compensation step ends the saga in FAILED.
func (o *Orchestrator) fail(state *entities.SagaState, step *steps.Step, reason string, now time.Time) *entities.SagaState {
	if step.IsCompensation() {
		return FailCompensation(state, fmt.Sprintf(constants.MsgCompensationFailed, step.Name, reason), now)
	}
	return BeginCompensation(o.definition, state, reason, now)
}

// processNextStep runs local steps in place until the saga waits on a command reply or
// ends. The state is persisted before its command is published.
func (o *Orchestrator) processNextStep(ctx context.Context, state *entities.SagaState) (*entities.SagaState, error) {
	for {
		if state.Status.IsTerminal() {
			return state, o.finish(ctx, state)
		}
		step, ok := o.definition.Step(state.CurrentStep)
		if !ok || step.Terminal {
			return nil, errors.Wrapf(sagaerrors.ErrUnknownStep, "saga %s at %s", state.SagaID, state.CurrentStep)
		}
		now := o.Clock()

		if step.IsLocal() {
			next := state.Clone()
			if err := step.Local(next); err != nil {
				o.logger.Warn("local_step_failed", zap.String("saga_id", state.SagaID), zap.String("step", step.Name), zap.Error(err))
				state = o.fail(state, step, fmt.Sprintf(constants.MsgLocalStepFailed, step.Name, err.Error()), now)
				continue
			}
			advanced, err := MoveToNextStep(o.definition, next, now)
			if err != nil {
				return nil, err
			}
			state = advanced
			continue
		}

		cmd, err := o.buildCommand(state, step, now)
		if err != nil {
			o.logger.Warn("command_build_failed", zap.String("saga_id", state.SagaID), zap.String("step", step.Name), zap.Error(err))
			state = o.fail(state, step, err.Error(), now)
			continue
		}

		next := state.Clone()
		next.LastCommandID = cmd.MessageID
		next.LastUpdatedTime = now
		next.AppendEvent(entities.LogTypeSagaStepExec,
			fmt.Sprintf("%s sent to %s (attempt %d)", cmd.Type, cmd.TargetService, state.RetryCount+1), now)
		if err = o.Store.Update(ctx, next); err != nil {
			return nil, err
		}
		if err = o.Publisher.Publish(ctx, o.definition.Flow(), cmd); err != nil {
			o.metrics.Inc(metrics.CommandPublishFailed)
			o.logger.Error("command_publish_failed", zap.String("saga_id", next.SagaID), zap.String("step", step.Name), zap.Error(err))
			return next, err
		}
		o.metrics.Inc(metrics.CommandPublished)
		return next, nil
	}
}

func (o *Orchestrator) buildCommand(state *entities.SagaState, step *steps.Step, now time.Time) (*entities.CommandMessage, error) {
	typed, err := step.Payload(state)
	if err != nil {
		return nil, err
	}
	payload, err := entities.ToPayload(typed)
	if err != nil {
		return nil, err
	}
	return &entities.CommandMessage{
		MessageID:      helpers.GetUUId(),
		SagaID:         state.SagaID,
		StepID:         step.Number,
		Type:           step.CommandType,
		SourceService:  constants.SourceSagaOrchestrator,
		TargetService:  step.TargetService,
		IsCompensation: step.IsCompensation(),
		Timestamp:      now,
		Payload:        payload,
		Metadata: map[string]interface{}{
			constants.MetaRetryCount: state.RetryCount,
			constants.MetaSagaType:   string(state.SagaType),
			constants.MetaFlow:       o.definition.Flow(),
		},
	}, nil
}

// finish persists a terminal saga and announces it. Notification and alert failures are
// only logged.
func (o *Orchestrator) finish(ctx context.Context, state *entities.SagaState) error {
	if err := o.Store.Update(ctx, state); err != nil {
		return err
	}
	log := o.logger.With(zap.String("saga_id", state.SagaID), zap.String("status", state.Status.String()))
	switch state.Status {
	case entities.SagaStatusCompleted:
		o.metrics.Inc(metrics.SagaCompleted)
	case entities.SagaStatusCompensationCompleted:
		o.metrics.Inc(metrics.SagaCompensated)
	default:
		o.metrics.Inc(metrics.SagaFailed)
	}
	log.Info("saga_finished", zap.String("failure_reason", state.FailureReason), zap.Strings("completed_steps", state.CompletedSteps))

	if o.Notifier != nil {
		if err := o.Notifier.NotifyStatus(ctx, state); err != nil {
			log.Warn("saga_notify_failed", zap.Error(err))
		}
	}
	if state.Status.IsFailed() && state.CurrentStepNumber >= steps.CompensationBase && o.Alerter != nil {
		if err := o.Alerter.Alert(ctx, telegram.SagaAlertMessage(state)); err != nil {
			log.Error("saga_alert_failed", zap.Error(err))
		}
	}
	return nil
}

func (o *Orchestrator) ignore(ctx context.Context, log *zap.Logger, ev *entities.EventMessage, state *entities.SagaState, reason string) error {
	log.Info("event_ignored", zap.String("reason", reason), zap.String("current_step", state.CurrentStep), zap.Int("current_step_number", state.CurrentStepNumber))
	o.metrics.Inc(metrics.EventIgnored)
	return o.Ledger.RecordProcessing(ctx, ev.MessageID, ev.SagaID, ev.StepID, ev.Type, map[string]interface{}{
		constants.ResultIgnored: true,
		constants.ResultReason:  reason,
	})
}

// TimeoutCandidates lists active sagas of this type that may have outlived their step.
func (o *Orchestrator) TimeoutCandidates(ctx context.Context, now time.Time) ([]*entities.SagaState, error) {
	statuses := []entities.SagaStatus{entities.SagaStatusStarted, entities.SagaStatusInProgress}
	if o.config.ScanCompensating {
		statuses = append(statuses, entities.SagaStatusCompensating)
	}
	var names []string
	for _, s := range o.definition.AllSteps() {
		names = append(names, s.Name)
	}
	// The shortest step timeout is a looser cut than the longest one; HandleTimeout
	// re-checks every candidate against its own step.
	return o.Store.FindStuck(ctx, o.definition.SagaType, statuses, now.Add(-o.config.MinStepTimeout(names)))
}

// HandleTimeout re-checks one saga against the timeout of its current step and either
// re-issues the step or fails it once retries are exhausted.
func (o *Orchestrator) HandleTimeout(ctx context.Context, sagaID string, now time.Time) (string, error) {
	action := TimeoutNone
	err := o.mutate(ctx, sagaID, func(state *entities.SagaState) error {
		action = TimeoutNone
		if state.SagaType != o.definition.SagaType {
			return nil
		}
		if !state.Status.IsActive() || (state.Status.IsCompensating() && !o.config.ScanCompensating) {
			return nil
		}
		step, ok := o.definition.Step(state.CurrentStep)
		if !ok || step.Terminal {
			return nil
		}
		if now.Sub(state.CurrentStepStartTime) < o.config.TimeoutFor(step.Name) {
			return nil
		}

		log := o.logger.With(
			zap.String("saga_id", state.SagaID),
			zap.String("step", step.Name),
			zap.Int("retry_count", state.RetryCount),
			zap.String("stuck_since", helpers.Since(state.CurrentStepStartTime)),
		)
		var next *entities.SagaState
		if state.RetryCount < state.MaxRetries {
			next = RetryStep(state, now)
			action = TimeoutRetried
			log.Warn("step_timeout_retry")
		} else {
			next = o.fail(state, step, fmt.Sprintf(constants.MsgStepTimedOut, step.Name, state.RetryCount), now)
			action = TimeoutCompensated
			log.Warn("step_timeout_exhausted", zap.String("status", next.Status.String()))
		}
		_, err := o.processNextStep(ctx, next)
		return err
	})
	if err != nil {
		return TimeoutNone, err
	}
	switch action {
	case TimeoutRetried:
		o.metrics.Inc(metrics.TimeoutRetried)
	case TimeoutCompensated:
		o.metrics.Inc(metrics.TimeoutCompensated)
	}
	return action, nil
}

// mutate loads the saga under its lock and applies fn. fn is applied again on a fresh
// copy when the store reports a version conflict.
func (o *Orchestrator) mutate(ctx context.Context, sagaID string, fn func(state *entities.SagaState) error) error {
	unlock, err := o.lock(ctx, sagaID)
	if err != nil {
		return err
	}
	defer unlock()

	var result error
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = time.Second
	err = backoff.Retry(func() error {
		state, err := o.Store.FindByID(ctx, sagaID)
		if err != nil {
			result = err
			return nil
		}
		err = fn(state)
		if errors.Is(err, sagaerrors.ErrVersionConflict) {
			o.metrics.Inc(metrics.VersionConflict)
			o.logger.Info("saga_version_conflict", zap.String("saga_id", sagaID), zap.Int64("version", state.Version))
			return err
		}
		result = err
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(policy, o.ConflictRetries), ctx))
	if err != nil {
		return err
	}
	return result
}

func (o *Orchestrator) lock(ctx context.Context, sagaID string) (func(), error) {
	unlock, err := o.Locker.Lock(ctx, "saga:"+sagaID)
	if err != nil {
		return nil, errors.Wrapf(sagaerrors.ErrLockNotAcquired, "saga %s: %v", sagaID, err)
	}
	return unlock, nil
}

func stepIDOf(ev *entities.EventMessage, step *steps.Step) int {
	if ev.StepID != 0 {
		return ev.StepID
	}
	return step.Number
}
