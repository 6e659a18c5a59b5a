package app

import (
	"context"
	"io"

	"github.com/agentstation/fiscal/internal/cmd/output"
	"github.com/agentstation/fiscal/internal/metrics"
	"github.com/agentstation/fiscal/internal/workflows"
	"github.com/agentstation/fiscal/pkg/constants"
	"github.com/agentstation/fiscal/pkg/logging"
	"github.com/agentstation/fiscal/pkg/reconcile"
)

// RunWorkflow reconciles w into the SharePoint lists. The run summary is written to
// out even when the run fails, then the metrics are pushed.
func (a *App) RunWorkflow(ctx context.Context, w workflows.Workflow, out io.Writer) error {
	format, err := output.ParseFormat(a.config.Format)
	if err != nil {
		return err
	}
	format = output.DetectFormat(string(format))

	ctx, cancel := context.WithTimeout(ctx, constants.RunTimeout)
	defer cancel()
	ctx = logging.WithLogger(ctx, a.logger)

	store, err := a.Store(ctx)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder(w.Name())
	res, runErr := workflows.Run(ctx, w, store,
		reconcile.WithDryRun(a.config.DryRun),
		reconcile.WithBatchSize(a.config.Batch.Size),
		reconcile.WithConcurrency(a.config.Batch.Concurrency),
		reconcile.WithRecorder(recorder),
	)
	status := recorder.Finish(runErr)

	summary := output.NewSummary(w.Name(), res, status, runErr)
	if err := output.NewFormatter(format).Format(out, summary); err != nil {
		a.logger.Error().Err(err).Msg("Failed to write run summary")
	}

	// a failed push must not mask the run outcome
	pushCtx, pushCancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShutdownTimeout)
	defer pushCancel()
	if err := recorder.Push(pushCtx, a.config.Metrics); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to push metrics")
	}

	return runErr
}
