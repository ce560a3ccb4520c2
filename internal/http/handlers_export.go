package http

import (
	"bytes"
	"net/http"

	applog "ledger/internal/log"
	"ledger/internal/report"
)

// handleExportCSV streams a whole report under its fixed filename.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	kind, err := ParseReportPath(name)
	if err != nil {
		s.apiError(w, r, err, name)
		return
	}
	req, err := ParseExportParams(kind, r.URL.Query(), s.loc)
	if err != nil {
		s.apiError(w, r, err, string(kind))
		return
	}
	tbl, err := s.reports.Table(r.Context(), req)
	if err != nil {
		s.apiError(w, r, err, string(kind))
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, tbl); err != nil {
		s.apiError(w, r, err, string(kind))
		return
	}
	s.logRendered(r, string(kind), "", string(req.Period), len(tbl.Rows))
	NewResponse().Attachment(tbl.Name).Body(buf.Bytes()).Write(w)
}

// handleCreateExport queues an export job, or runs it when no broker is
// configured.
func (s *Server) handleCreateExport(w http.ResponseWriter, r *http.Request) {
	if s.exports == nil {
		JSONError(http.StatusServiceUnavailable, "Exports are not configured").Write(w)
		return
	}

	job, err := ParseExportJob(NewRequestBodyParser(r), s.defaultTarget, s.loc)
	if err != nil {
		s.apiError(w, r, err, "export")
		return
	}
	res, err := s.exports.Submit(r.Context(), job)
	if err != nil {
		s.apiError(w, r, err, string(job.Request.Report))
		return
	}

	status := http.StatusOK
	if res.Queued {
		status = http.StatusAccepted
	}
	applog.FromContext(r.Context()).WithComponent(applog.ComponentExport).
		InfoContext(r.Context(), "Export submitted",
			applog.FieldJobID, res.ID,
			applog.FieldReport, string(job.Request.Report),
			applog.FieldTarget, job.Target,
			"queued", res.Queued)
	NewResponse().Status(status).JSON(res).Write(w)
}
