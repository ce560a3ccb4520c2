package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/sheets"
)

// ErrInvalidJob marks an export job that can never succeed, so it must not
// be retried.
var ErrInvalidJob = errors.New("invalid export job")

const jobDateLayout = time.DateOnly

// JobPublisher queues export jobs for a worker.
type JobPublisher interface {
	PublishExportJob(ctx context.Context, msg *amqp.ExportJobMessage) error
}

// ExportJob is a validated request to render a report into a target.
type ExportJob struct {
	ID      string
	Request ExportRequest
	Target  string
}

// ExportResult says whether a job was queued or ran inline. Location is
// set only for inline runs.
type ExportResult struct {
	ID       string `json:"id"`
	Queued   bool   `json:"queued"`
	Location string `json:"location,omitempty"`
}

// ExportService renders reports into export targets, either directly or
// through a queue when a publisher is configured.
type ExportService struct {
	reports   *ReportService
	publisher JobPublisher
	targets   map[string]sheets.ReportWriter
}

// NewExportService wires the targets by name. A nil publisher runs every
// submitted job inline.
func NewExportService(reports *ReportService, publisher JobPublisher, targets ...sheets.ReportWriter) *ExportService {
	s := &ExportService{
		reports:   reports,
		publisher: publisher,
		targets:   make(map[string]sheets.ReportWriter, len(targets)),
	}
	for _, t := range targets {
		if t != nil {
			s.targets[t.Name()] = t
		}
	}
	return s
}

// HasTarget reports whether name is a configured target.
func (s *ExportService) HasTarget(name string) bool {
	_, ok := s.targets[name]
	return ok
}

// Submit validates the job and either publishes it or runs it now.
func (s *ExportService) Submit(ctx context.Context, job ExportJob) (ExportResult, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if err := s.validate(job); err != nil {
		return ExportResult{}, err
	}

	if s.publisher == nil {
		loc, err := s.Run(ctx, job)
		if err != nil {
			return ExportResult{}, err
		}
		return ExportResult{ID: job.ID, Location: loc}, nil
	}

	if err := s.publisher.PublishExportJob(ctx, JobMessage(job)); err != nil {
		return ExportResult{}, fmt.Errorf("queue export job: %w", err)
	}
	return ExportResult{ID: job.ID, Queued: true}, nil
}

// Run renders the job's report and writes it to the job's target.
func (s *ExportService) Run(ctx context.Context, job ExportJob) (string, error) {
	if err := s.validate(job); err != nil {
		return "", err
	}
	target := s.targets[job.Target]

	tbl, err := s.reports.Table(ctx, job.Request)
	if err != nil {
		if errors.Is(err, core.ErrInvalidRange) || errors.Is(err, core.ErrInvalidPeriod) {
			return "", fmt.Errorf("%w: %w", ErrInvalidJob, err)
		}
		return "", err
	}
	loc, err := target.WriteReport(ctx, tbl)
	if err != nil {
		return "", fmt.Errorf("write %s to %s: %w", tbl.Name, job.Target, err)
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogExportCompleted(ctx, job.ID, string(job.Request.Report), job.Target, loc, len(tbl.Rows))
	return loc, nil
}

func (s *ExportService) validate(job ExportJob) error {
	kind, err := ParseReportKind(string(job.Request.Report))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	if !s.HasTarget(job.Target) {
		return fmt.Errorf("%w: unknown target %q", ErrInvalidJob, job.Target)
	}
	if _, isBAS := kind.Variant(); isBAS {
		r := job.Request
		if _, _, err := s.reports.ResolveRange(r.Period, r.Start, r.End); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJob, err)
		}
	}
	return nil
}

// JobMessage encodes a job for the queue.
func JobMessage(job ExportJob) *amqp.ExportJobMessage {
	msg := amqp.NewExportJobMessage(string(job.Request.Report), job.Target)
	msg.ID = job.ID
	msg.Search = job.Request.Search
	msg.Period = string(job.Request.Period)
	if !job.Request.Start.IsZero() {
		msg.Start = job.Request.Start.Format(jobDateLayout)
	}
	if !job.Request.End.IsZero() {
		msg.End = job.Request.End.Format(jobDateLayout)
	}
	return msg
}

// JobFromMessage decodes a queued job. Dates are read in loc.
func JobFromMessage(msg *amqp.ExportJobMessage, loc *time.Location) (ExportJob, error) {
	kind, err := ParseReportKind(msg.Report)
	if err != nil {
		return ExportJob{}, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	job := ExportJob{
		ID:     msg.ID,
		Target: msg.Target,
		Request: ExportRequest{
			Report: kind,
			Search: msg.Search,
			Period: core.PeriodKind(msg.Period),
		},
	}
	if job.Request.Start, err = parseJobDate(msg.Start, loc); err != nil {
		return ExportJob{}, err
	}
	if job.Request.End, err = parseJobDate(msg.End, loc); err != nil {
		return ExportJob{}, err
	}
	return job, nil
}

func parseJobDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(jobDateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidJob, s)
	}
	return t, nil
}
