package http

import (
	"net/http"

	applog "ledger/internal/log"
	"ledger/internal/report"
	"ledger/internal/services"
)

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	v, err := s.reports.Ledger(r.Context(), ParseExpand(r.URL.Query()))
	if err != nil {
		s.apiError(w, r, err, string(services.ReportLedger))
		return
	}
	s.logRendered(r, string(services.ReportLedger), "", "", len(v.Rows))
	NewResponse().JSON(v).Write(w)
}

func (s *Server) handleAging(w http.ResponseWriter, r *http.Request) {
	v, err := s.reports.Aging(r.Context(), ParseAgingParams(r.URL.Query()))
	if err != nil {
		s.apiError(w, r, err, string(services.ReportAging))
		return
	}
	s.logRendered(r, string(services.ReportAging), "", "", len(v.Page.Rows))
	NewResponse().JSON(v).Write(w)
}

// agingSummaryView wraps the bucket totals so the body is an object.
type agingSummaryView struct {
	Buckets []report.BucketSummary `json:"buckets"`
}

func (s *Server) handleAgingSummary(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.reports.AgingSummary(r.Context())
	if err != nil {
		s.apiError(w, r, err, string(services.ReportAging))
		return
	}
	NewResponse().JSON(agingSummaryView{Buckets: buckets}).Write(w)
}

func (s *Server) handleBAS(w http.ResponseWriter, r *http.Request) {
	req, err := ParseBASParams(r.URL.Query(), s.loc)
	if err != nil {
		s.apiError(w, r, err, "bas")
		return
	}
	v, err := s.reports.BAS(r.Context(), req)
	if err != nil {
		s.apiError(w, r, err, "bas")
		return
	}
	s.logRendered(r, "bas", string(v.Variant), string(v.Period), len(v.Rows))
	NewResponse().JSON(v).Write(w)
}

// apiError writes a JSON error. Client errors log at warn, the rest at
// error.
func (s *Server) apiError(w http.ResponseWriter, r *http.Request, err error, reportName string) {
	status := StatusForError(err)
	s.logFailure(r, err, status, reportName)
	JSONError(status, errorMessage(err)).Write(w)
}

func (s *Server) logFailure(r *http.Request, err error, status int, reportName string) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)
	if status < http.StatusInternalServerError {
		logger.WarnContext(ctx, "Rejected report request",
			applog.FieldReport, reportName,
			applog.FieldStatusCode, status,
			applog.FieldError, err)
		return
	}
	fields := applog.NewFields()
	fields[applog.FieldReport] = reportName
	fields[applog.FieldStatusCode] = status
	applog.NewStructuredLogger(logger).LogError(ctx, "Report request failed", err,
		applog.ComponentReport, applog.OpRender, fields)
}

func (s *Server) logRendered(r *http.Request, reportName, variant, period string, rows int) {
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogReportRendered(r.Context(), reportName, variant, period, rows)
}
