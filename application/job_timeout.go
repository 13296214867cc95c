package application

import (
	"context"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"saga-orchestrator/utils/metrics"
)

// TimeoutReport summarises one Timeout Scanner pass.
type TimeoutReport struct {
	Scanned     int `json:"scanned"`
	Retried     int `json:"retried"`
	Compensated int `json:"compensated"`
	Errors      int `json:"errors"`
}

func (r *TimeoutReport) add(action string, err error) {
	r.Scanned++
	switch {
	case err != nil:
		r.Errors++
	case action == TimeoutRetried:
		r.Retried++
	case action == TimeoutCompensated:
		r.Compensated++
	}
}

// JobCheckTimeouts scans every saga type for steps that outlived their timeout. Candidates
// are handled concurrently on the scan pool; each one is re-checked under its saga lock.
func (app *SagaApplication) JobCheckTimeouts(ctx context.Context) *TimeoutReport {
	start := time.Now()
	now := app.clock()
	report := &TimeoutReport{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, orchestrator := range app.Orchestrators() {
		candidates, err := orchestrator.TimeoutCandidates(ctx, now)
		if err != nil {
			app.Logger.Error("timeout_candidates_err", zap.String("saga_type", string(orchestrator.Definition().SagaType)), zap.Error(err))
			mu.Lock()
			report.Errors++
			mu.Unlock()
			continue
		}
		for _, candidate := range candidates {
			o, sagaID, since := orchestrator, candidate.SagaID, candidate.CurrentStepStartTime
			wg.Add(1)
			err = app.ScanPool.Submit(func() {
				defer wg.Done()
				action, err := o.HandleTimeout(ctx, sagaID, now)
				if err != nil {
					app.Logger.Error("timeout_handle_err", zap.String("saga_id", sagaID), zap.String("step_started", humanize.Time(since)), zap.Error(err))
				}
				mu.Lock()
				report.add(action, err)
				mu.Unlock()
			})
			if err != nil {
				wg.Done()
				mu.Lock()
				report.add(TimeoutNone, err)
				mu.Unlock()
			}
		}
	}
	wg.Wait()

	app.Metrics.Since(metrics.TimeoutScanLatency, start)
	if report.Scanned > 0 {
		app.Logger.Info("timeout_scan_done",
			zap.Int("scanned", report.Scanned),
			zap.Int("retried", report.Retried),
			zap.Int("compensated", report.Compensated),
			zap.Int("errors", report.Errors),
			zap.Duration("took", time.Since(start)),
		)
	}
	return report
}

// RunTimeoutJob runs JobCheckTimeouts every Jobs.TimeoutScanInterval until ctx is done.
func (app *SagaApplication) RunTimeoutJob(ctx context.Context) error {
	return app.every(ctx, app.Config.Jobs.TimeoutScanInterval, func() {
		app.JobCheckTimeouts(ctx)
	})
}

func (app *SagaApplication) every(ctx context.Context, interval time.Duration, job func()) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			job()
		}
	}
}
