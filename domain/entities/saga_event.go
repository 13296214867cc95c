package entities

import "time"

//noinspection ALL
const (
	LogTypeStartSaga SagaEventType = iota
	LogTypeSagaStepExec
	LogTypeSagaStepComplete
	LogTypeSagaStepRetry
	LogTypeSagaAbort
	LogTypeSagaStepCompensate
	LogTypeSagaCompensationComplete
	LogTypeSagaComplete
	LogTypeSagaFailed
)

type SagaEventType int

func (st SagaEventType) ToString() string {
	var data = []string{
		"SAGA_STARTED",
		"STEP_EXECUTED",
		"STEP_COMPLETED",
		"STEP_RETRIED",
		"SAGA_ABORTED",
		"STEP_COMPENSATED",
		"COMPENSATION_COMPLETED",
		"SAGA_COMPLETED",
		"SAGA_FAILED",
	}
	if int(st) < 0 || int(st) >= len(data) {
		return "UNKNOWN"
	}
	return data[st]
}

// SagaEvent is one line of the append-only audit log kept on a saga.
type SagaEvent struct {
	Type        SagaEventType `json:"type" bson:"type"`
	Description string        `json:"description" bson:"description"`
	Timestamp   time.Time     `json:"timestamp" bson:"timestamp"`
}
