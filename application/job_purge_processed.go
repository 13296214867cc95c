package application

import (
	"context"

	"go.uber.org/zap"
	"saga-orchestrator/utils/metrics"
)

// JobPurgeProcessed sweeps ledger records older than the retention window. The Mongo
// ledger also carries a TTL index; the sweep covers the in-memory ledger and TTL lag.
func (app *SagaApplication) JobPurgeProcessed(ctx context.Context) (int64, error) {
	deleted, err := app.Ledger.Purge(ctx, app.clock())
	if err != nil {
		app.Logger.Error("purge_processed_err", zap.Error(err))
		return 0, err
	}
	app.Metrics.Add(metrics.ProcessedPurged, deleted)
	if deleted > 0 {
		app.Logger.Info("purge_processed_done", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

func (app *SagaApplication) RunPurgeJob(ctx context.Context) error {
	return app.every(ctx, app.Config.Jobs.PurgeInterval, func() {
		_, _ = app.JobPurgeProcessed(ctx)
	})
}
