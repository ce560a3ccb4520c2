package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/report"
)

type recordingTarget struct {
	name string
	err  error

	mu     sync.Mutex
	tables []report.Table
}

func (r *recordingTarget) Name() string { return r.name }

func (r *recordingTarget) WriteReport(_ context.Context, t report.Table) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = append(r.tables, t)
	return r.name + ":" + t.Name, nil
}

type recordingPublisher struct {
	err  error
	msgs []*amqp.ExportJobMessage
}

func (p *recordingPublisher) PublishExportJob(_ context.Context, msg *amqp.ExportJobMessage) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func TestExportService_SubmitInline(t *testing.T) {
	reports, _ := newTestService(t, ReportOptions{})
	target := &recordingTarget{name: "file"}
	svc := NewExportService(reports, nil, target)

	res, err := svc.Submit(context.Background(), ExportJob{
		Request: ExportRequest{Report: ReportAging},
		Target:  "file",
	})
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "file:"+report.FileAging, res.Location)

	require.Len(t, target.tables, 1)
	assert.Len(t, target.tables[0].Rows, 4)
}

func TestExportService_SubmitQueued(t *testing.T) {
	reports, _ := newTestService(t, ReportOptions{})
	target := &recordingTarget{name: "file"}
	pub := &recordingPublisher{}
	svc := NewExportService(reports, pub, target)

	res, err := svc.Submit(context.Background(), ExportJob{
		ID:      "job-1",
		Request: ExportRequest{Report: ReportGST, Start: date(4, 1), End: date(6, 30)},
		Target:  "file",
	})
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Equal(t, "job-1", res.ID)
	assert.Empty(t, res.Location)
	assert.Empty(t, target.tables, "nothing runs until a worker picks the job up")

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, "job-1", msg.ID)
	assert.Equal(t, "gst", msg.Report)
	assert.Equal(t, "2024-04-01", msg.Start)
	assert.Equal(t, "2024-06-30", msg.End)
	assert.Equal(t, "file", msg.Target)
}

func TestExportService_SubmitPublishFailure(t *testing.T) {
	reports, _ := newTestService(t, ReportOptions{})
	boom := errors.New("broker down")
	svc := NewExportService(reports, &recordingPublisher{err: boom}, &recordingTarget{name: "file"})

	_, err := svc.Submit(context.Background(), ExportJob{Request: ExportRequest{Report: ReportLedger}, Target: "file"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidJob)
}

func TestExportService_InvalidJobs(t *testing.T) {
	reports, _ := newTestService(t, ReportOptions{})
	svc := NewExportService(reports, nil, &recordingTarget{name: "file"})
	ctx := context.Background()

	tests := []struct {
		name string
		job  ExportJob
	}{
		{"unknown report", ExportJob{Request: ExportRequest{Report: "payroll"}, Target: "file"}},
		{"unknown target", ExportJob{Request: ExportRequest{Report: ReportAging}, Target: "ftp"}},
		{"half range", ExportJob{Request: ExportRequest{Report: ReportTPAR, Start: date(1, 1)}, Target: "file"}},
		{"unknown period", ExportJob{Request: ExportRequest{Report: ReportGST, Period: "weekly"}, Target: "file"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tt.job)
			assert.ErrorIs(t, err, ErrInvalidJob)
		})
	}
}

func TestExportService_RunErrors(t *testing.T) {
	reports, store := newTestService(t, ReportOptions{})
	ctx := context.Background()

	t.Run("write failure", func(t *testing.T) {
		boom := errors.New("disk full")
		svc := NewExportService(reports, nil, &recordingTarget{name: "file", err: boom})
		_, err := svc.Run(ctx, ExportJob{Request: ExportRequest{Report: ReportLedger}, Target: "file"})
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), report.FileLedger)
	})

	t.Run("fetch failure is retryable", func(t *testing.T) {
		store.FailWith(errors.New("timeout"))
		defer store.FailWith(nil)
		svc := NewExportService(reports, nil, &recordingTarget{name: "file"})
		_, err := svc.Run(ctx, ExportJob{Request: ExportRequest{Report: ReportAging}, Target: "file"})
		assert.ErrorIs(t, err, ErrFetch)
		assert.NotErrorIs(t, err, ErrInvalidJob)
	})
}

func TestExportService_HasTarget(t *testing.T) {
	svc := NewExportService(nil, nil, &recordingTarget{name: "file"}, nil)
	assert.True(t, svc.HasTarget("file"))
	assert.False(t, svc.HasTarget("sheets"))
}

func TestJobMessageRoundTrip(t *testing.T) {
	job := ExportJob{
		ID:     "abc",
		Target: "sheets",
		Request: ExportRequest{
			Report: ReportTPAR,
			Search: "drip",
			Period: core.HalfYearly,
			Start:  date(1, 1),
			End:    date(6, 30),
		},
	}
	got, err := JobFromMessage(JobMessage(job), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, job, got)

	noDates := JobMessage(ExportJob{ID: "x", Target: "file", Request: ExportRequest{Report: ReportLedger}})
	assert.Empty(t, noDates.Start)
	assert.Empty(t, noDates.End)
}

func TestJobFromMessage_Invalid(t *testing.T) {
	tests := []struct {
		name string
		msg  amqp.ExportJobMessage
	}{
		{"unknown report", amqp.ExportJobMessage{Report: "payroll", Target: "file"}},
		{"bad start", amqp.ExportJobMessage{Report: "gst", Target: "file", Start: "01/04/2024", End: "2024-06-30"}},
		{"bad end", amqp.ExportJobMessage{Report: "gst", Target: "file", Start: "2024-04-01", End: "tomorrow"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := JobFromMessage(&tt.msg, time.UTC)
			assert.ErrorIs(t, err, ErrInvalidJob)
		})
	}
}
