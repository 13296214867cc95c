package application

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"saga-orchestrator/domain/entities"
	"saga-orchestrator/domain/steps"
	sagaerrors "saga-orchestrator/errors"
)

// State transitions. Every function works on a clone and leaves its input untouched,
// so a caller that loses a version race can reload and apply the transition again.

// MoveToNextStep completes the current forward step and positions the saga on the next
// one. Reaching COMPLETE_SAGA completes the saga.
func MoveToNextStep(def *steps.Definition, state *entities.SagaState, now time.Time) (*entities.SagaState, error) {
	current, ok := def.Step(state.CurrentStep)
	if !ok || current.IsCompensation() {
		return nil, errors.Wrapf(sagaerrors.ErrUnknownStep, "forward step %s", state.CurrentStep)
	}
	next, err := def.NextStep(current.Name)
	if err != nil {
		return nil, err
	}

	s := state.Clone()
	s.MarkCompleted(current.Name)
	s.AppendEvent(entities.LogTypeSagaStepComplete, fmt.Sprintf("%s completed", current.Name), now)
	enter(s, next, now)
	s.Status = entities.SagaStatusInProgress
	if next.Terminal {
		return Complete(s, entities.SagaStatusCompleted, now), nil
	}
	return s, nil
}

// MoveToNextCompensationStep completes the current compensation step and moves on to the
// next applicable one. Reaching COMPLETE_COMPENSATION closes the saga.
func MoveToNextCompensationStep(def *steps.Definition, state *entities.SagaState, now time.Time) (*entities.SagaState, error) {
	current, ok := def.Step(state.CurrentStep)
	if !ok || !current.IsCompensation() {
		return nil, errors.Wrapf(sagaerrors.ErrUnknownStep, "compensation step %s", state.CurrentStep)
	}
	next, err := def.NextCompensationStep(current.Name, state.CompletedSteps)
	if err != nil {
		return nil, err
	}

	s := state.Clone()
	s.MarkCompleted(current.Name)
	s.AppendEvent(entities.LogTypeSagaStepCompensate, fmt.Sprintf("%s compensated %s", current.Name, current.Undoes), now)
	enter(s, next, now)
	if next.Terminal {
		return Complete(s, entities.SagaStatusCompensationCompleted, now), nil
	}
	return s, nil
}

// BeginCompensation records the failure and enters compensation at the last side effect
// that must be undone. A saga without completed side effects fails immediately.
func BeginCompensation(def *steps.Definition, state *entities.SagaState, reason string, now time.Time) *entities.SagaState {
	s := state.Clone()
	if s.FailureReason == "" {
		s.FailureReason = reason
	}
	first, ok := def.FirstCompensationStep(s.CompletedSteps)
	if !ok {
		s.AppendEvent(entities.LogTypeSagaAbort, fmt.Sprintf("%s failed, nothing to compensate: %s", s.CurrentStep, reason), now)
		return Complete(s, entities.SagaStatusFailed, now)
	}
	s.AppendEvent(entities.LogTypeSagaAbort, fmt.Sprintf("%s failed, compensating from %s: %s", s.CurrentStep, first.Name, reason), now)
	enter(s, first, now)
	s.Status = entities.SagaStatusCompensating
	return s
}

// FailCompensation ends a saga whose compensation step could not be completed. The saga
// stays on that step for operators to pick up.
func FailCompensation(state *entities.SagaState, reason string, now time.Time) *entities.SagaState {
	s := state.Clone()
	if s.FailureReason == "" {
		s.FailureReason = reason
	}
	s.AppendEvent(entities.LogTypeSagaAbort, reason, now)
	return Complete(s, entities.SagaStatusFailed, now)
}

// RetryStep restarts the clock of the current step and counts the attempt.
func RetryStep(state *entities.SagaState, now time.Time) *entities.SagaState {
	s := state.Clone()
	s.RetryCount++
	s.CurrentStepStartTime = now
	s.LastUpdatedTime = now
	s.AppendEvent(entities.LogTypeSagaStepRetry, fmt.Sprintf("%s retry %d/%d", s.CurrentStep, s.RetryCount, s.MaxRetries), now)
	return s
}

// Complete moves the saga into a terminal status.
func Complete(state *entities.SagaState, status entities.SagaStatus, now time.Time) *entities.SagaState {
	s := state.Clone()
	s.Status = status
	s.EndTime = &now
	s.LastUpdatedTime = now
	switch status {
	case entities.SagaStatusCompleted:
		s.AppendEvent(entities.LogTypeSagaComplete, "saga completed", now)
	case entities.SagaStatusCompensationCompleted:
		s.AppendEvent(entities.LogTypeSagaCompensationComplete, "compensation completed", now)
	default:
		s.AppendEvent(entities.LogTypeSagaFailed, fmt.Sprintf("saga failed: %s", s.FailureReason), now)
	}
	return s
}

// ApplyEventPayload copies every payload key into stepData as "<eventType>_<key>" and
// lets the step extract its typed result. A malformed payload is returned as an error.
func ApplyEventPayload(step *steps.Step, state *entities.SagaState, ev *entities.EventMessage) (*entities.SagaState, error) {
	s := state.Clone()
	for k, v := range ev.Payload {
		s.StepData[ev.Type+"_"+k] = v
	}
	if step.Extract != nil {
		if err := step.Extract(s, ev.Payload); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func enter(s *entities.SagaState, step *steps.Step, now time.Time) {
	s.CurrentStep = step.Name
	s.CurrentStepNumber = step.Number
	s.CurrentStepStartTime = now
	s.LastUpdatedTime = now
	s.RetryCount = 0
}
