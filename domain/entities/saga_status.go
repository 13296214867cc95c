package entities

type SagaStatus string

const (
	SagaStatusStarted               SagaStatus = "STARTED"
	SagaStatusInProgress            SagaStatus = "IN_PROGRESS"
	SagaStatusCompleted             SagaStatus = "COMPLETED"
	SagaStatusFailed                SagaStatus = "FAILED"
	SagaStatusCompensating          SagaStatus = "COMPENSATING"
	SagaStatusCompensationCompleted SagaStatus = "COMPENSATION_COMPLETED"
)

// ActiveStatuses are the statuses in which a saga still waits on a domain service.
var ActiveStatuses = []SagaStatus{SagaStatusStarted, SagaStatusInProgress, SagaStatusCompensating}

func (s SagaStatus) String() string {
	return string(s)
}

func (s SagaStatus) IsStarted() bool {
	return s == SagaStatusStarted
}

func (s SagaStatus) IsInProgress() bool {
	return s == SagaStatusInProgress
}

func (s SagaStatus) IsCompleted() bool {
	return s == SagaStatusCompleted
}

func (s SagaStatus) IsFailed() bool {
	return s == SagaStatusFailed
}

func (s SagaStatus) IsCompensating() bool {
	return s == SagaStatusCompensating
}

func (s SagaStatus) IsCompensationCompleted() bool {
	return s == SagaStatusCompensationCompleted
}

// IsTerminal reports whether the saga accepts no further events or commands.
// FAILED is only ever persisted as an end state: either nothing had to be undone,
// or a compensation step itself could not be completed.
func (s SagaStatus) IsTerminal() bool {
	return s.IsCompleted() || s.IsCompensationCompleted() || s.IsFailed()
}

func (s SagaStatus) IsActive() bool {
	return s.IsStarted() || s.IsInProgress() || s.IsCompensating()
}
