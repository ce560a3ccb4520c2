package http

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/report"
	"ledger/internal/services"
)

const printDateLayout = "02/01/2006"

var reportTitles = map[services.ReportKind]string{
	services.ReportLedger: "Job Cost Ledger",
	services.ReportAging:  "Accounts Payable Aging",
	services.ReportGST:    "GST Report (ATO)",
	services.ReportTPAR:   "TPAR Report (MYOB)",
}

type summaryLine struct {
	Label string
	Value string
}

// printView is the data of print.html. Error replaces the table when set.
type printView struct {
	Title     string
	Generated string
	Summary   []summaryLine
	Table     report.Table
	Error     string
}

// indexLink is one report on the index page.
type indexLink struct {
	Title  string
	Print  string
	Export string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	links := make([]indexLink, 0, len(reportTitles))
	for _, kind := range services.ReportKinds() {
		links = append(links, indexLink{
			Title:  reportTitles[kind],
			Print:  "/print/" + string(kind),
			Export: "/export/" + string(kind) + ".csv",
		})
	}
	s.render(w, r, http.StatusOK, "index.html", links)
}

// handlePrint renders a whole report as a printable HTML page, with the
// same rows as its CSV export plus a short summary.
func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseReportPath(r.PathValue("report"))
	if err != nil {
		s.printError(w, r, err, r.PathValue("report"))
		return
	}
	req, err := ParseExportParams(kind, r.URL.Query(), s.loc)
	if err != nil {
		s.printError(w, r, err, string(kind))
		return
	}
	view, err := s.buildPrintView(r.Context(), req)
	if err != nil {
		s.printError(w, r, err, string(kind))
		return
	}
	s.logRendered(r, string(kind), "", string(req.Period), len(view.Table.Rows))
	s.render(w, r, http.StatusOK, "print.html", view)
}

func (s *Server) buildPrintView(ctx context.Context, req services.ExportRequest) (printView, error) {
	view := printView{
		Title:     reportTitles[req.Report],
		Generated: time.Now().In(s.loc).Format(printDateLayout + " 15:04"),
	}

	switch req.Report {
	case services.ReportLedger:
		v, err := s.reports.Ledger(ctx, nil)
		if err != nil {
			return printView{}, err
		}
		view.Table = report.LedgerTable(v.Tree)
		view.Summary = []summaryLine{{"Total", core.Display(v.Total)}}
		if v.Orphans > 0 {
			view.Summary = append(view.Summary, summaryLine{"Invoices without a job", strconv.Itoa(v.Orphans)})
		}

	case services.ReportAging:
		rows, _, err := s.reports.AgingRows(ctx, req.Search)
		if err != nil {
			return printView{}, err
		}
		view.Table = report.AgingTable(rows)
		for _, b := range report.SummariseAging(rows) {
			view.Summary = append(view.Summary, summaryLine{
				Label: string(b.Bucket) + " (" + strconv.Itoa(b.Count) + ")",
				Value: core.Display(b.AmountDue),
			})
		}

	default:
		variant, _ := req.Report.Variant()
		v, err := s.reports.BAS(ctx, services.BASRequest{
			Variant: variant,
			Period:  req.Period,
			Start:   req.Start,
			End:     req.End,
		})
		if err != nil {
			return printView{}, err
		}
		if view.Table, err = report.BASTable(v.Rows, v.Variant); err != nil {
			return printView{}, err
		}
		view.Summary = []summaryLine{
			{"Period", v.Range.Start.Format(printDateLayout) + " to " + v.Range.End.Format(printDateLayout)},
			{"Gross", core.Display(v.Totals.Gross)},
			{"GST", core.Display(v.Totals.GST)},
		}
	}
	return view, nil
}

// printError renders the failure inline in the print layout.
func (s *Server) printError(w http.ResponseWriter, r *http.Request, err error, reportName string) {
	status := StatusForError(err)
	s.logFailure(r, err, status, reportName)
	if s.templates == nil {
		ErrorResponse(status, errorMessage(err)).Write(w)
		return
	}
	s.render(w, r, status, "print.html", printView{Title: "Report unavailable", Error: errorMessage(err)})
}

// render executes a template into a buffer so a failure never leaves a
// half written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		fields := applog.NewFields()
		fields["template"] = name
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(),
			"Template execution failed", err, applog.ComponentTemplate, applog.OpRender, fields)
		ErrorResponse(http.StatusInternalServerError, "Error rendering page").Write(w)
		return
	}
	NewResponse().Status(status).BodyHTML(buf.String()).Write(w)
}
