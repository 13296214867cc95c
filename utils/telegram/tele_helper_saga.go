package telegram

import (
	"fmt"
	"strings"

	"saga-orchestrator/domain/entities"
)

// SagaAlertMessage renders a saga that needs manual intervention.
func SagaAlertMessage(state *entities.SagaState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Saga needs manual intervention\n")
	fmt.Fprintf(&b, "Saga: %v (%v)\n", state.SagaID, state.SagaType)
	fmt.Fprintf(&b, "Status: %v\n", state.Status)
	fmt.Fprintf(&b, "Step: %v #%v\n", state.CurrentStep, state.CurrentStepNumber)
	fmt.Fprintf(&b, "Reason: %v\n", state.FailureReason)
	fmt.Fprintf(&b, "Completed: %v\n", strings.Join(state.CompletedSteps, ", "))
	fmt.Fprintf(&b, "Started: %v", state.StartTime.Format("02-01-2006 15:04:05"))
	return b.String()
}
