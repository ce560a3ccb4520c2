package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger/internal/amqp"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

// JobRunner executes one decoded export job.
type JobRunner interface {
	Run(ctx context.Context, job services.ExportJob) (string, error)
}

// ExportWorker handles export jobs delivered over AMQP.
type ExportWorker struct {
	runner JobRunner
	loc    *time.Location
	logger *applog.Logger
}

// NewExportWorker reads job dates in loc, or in local time when loc is nil.
func NewExportWorker(runner JobRunner, loc *time.Location, logger *applog.Logger) *ExportWorker {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ExportWorker{
		runner: runner,
		loc:    loc,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// Handle runs one job. A job that can never succeed is logged and
// acknowledged by returning nil; any other failure is returned so the
// delivery is requeued.
func (w *ExportWorker) Handle(ctx context.Context, msg *amqp.ExportJobMessage) error {
	job, err := services.JobFromMessage(msg, w.loc)
	if err != nil {
		w.drop(ctx, msg, err)
		return nil
	}

	loc, err := w.runner.Run(ctx, job)
	switch {
	case errors.Is(err, services.ErrInvalidJob):
		w.drop(ctx, msg, err)
		return nil
	case err != nil:
		return fmt.Errorf("run export job %s: %w", msg.ID, err)
	}

	w.logger.InfoContext(ctx, "Export job handled",
		applog.FieldJobID, msg.ID,
		applog.FieldLocation, loc)
	return nil
}

func (w *ExportWorker) drop(ctx context.Context, msg *amqp.ExportJobMessage, err error) {
	fields := applog.NewFields().WithJob(msg.ID, msg.Target)
	fields[applog.FieldReport] = msg.Report
	applog.NewStructuredLogger(w.logger).LogError(ctx, "Dropping export job", err, applog.ComponentWorker, applog.OpExport, fields)
}
