package metrics

import (
	"io"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

const (
	SagaStarted          = "saga.started"
	SagaCompleted        = "saga.completed"
	SagaCompensated      = "saga.compensated"
	SagaFailed           = "saga.failed"
	EventProcessed       = "event.processed"
	EventDuplicate       = "event.duplicate"
	EventIgnored         = "event.ignored"
	EventUnknownSaga     = "event.unknown_saga"
	EventDeadLettered    = "event.dead_lettered"
	CommandPublished     = "command.published"
	CommandPublishFailed = "command.publish_failed"
	TimeoutRetried       = "timeout.retried"
	TimeoutCompensated   = "timeout.compensated"
	VersionConflict      = "store.version_conflict"
	ProcessedPurged      = "ledger.purged"
	EventHandleLatency   = "event.handle_latency"
	TimeoutScanLatency   = "timeout.scan_latency"
)

// Registry is a go-metrics registry scoped by a dotted prefix.
type Registry struct {
	registry gometrics.Registry
}

func New() *Registry {
	return &Registry{registry: gometrics.NewRegistry()}
}

// Scope returns a child registry whose metric names are prefixed with "<prefix>.".
func (r *Registry) Scope(prefix string) *Registry {
	return &Registry{registry: gometrics.NewPrefixedChildRegistry(r.registry, prefix+".")}
}

func (r *Registry) Inc(name string) {
	gometrics.GetOrRegisterCounter(name, r.registry).Inc(1)
}

func (r *Registry) Add(name string, n int64) {
	gometrics.GetOrRegisterCounter(name, r.registry).Inc(n)
}

func (r *Registry) Count(name string) int64 {
	return gometrics.GetOrRegisterCounter(name, r.registry).Count()
}

func (r *Registry) Since(name string, start time.Time) {
	gometrics.GetOrRegisterTimer(name, r.registry).UpdateSince(start)
}

// WriteJSON writes a snapshot of every metric.
func (r *Registry) WriteJSON(w io.Writer) {
	gometrics.WriteJSONOnce(r.registry, w)
}
