package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/report"
	"ledger/internal/source"
)

// ErrFetch wraps any failure to load backend rows. Reports are never
// computed from a partial snapshot.
var ErrFetch = errors.New("fetch backend data")

// ErrUnknownReport is returned for a report name outside ReportKinds.
var ErrUnknownReport = errors.New("unknown report")

// ReportKind names an exportable report.
type ReportKind string

const (
	ReportLedger ReportKind = "ledger"
	ReportAging  ReportKind = "aging"
	ReportGST    ReportKind = "gst"
	ReportTPAR   ReportKind = "tpar"
)

func ReportKinds() []ReportKind {
	return []ReportKind{ReportLedger, ReportAging, ReportGST, ReportTPAR}
}

// ParseReportKind accepts a report name or its export filename.
func ParseReportKind(s string) (ReportKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case string(ReportLedger), report.FileLedger:
		return ReportLedger, nil
	case string(ReportAging), report.FileAging:
		return ReportAging, nil
	case string(ReportGST), report.FileGST:
		return ReportGST, nil
	case string(ReportTPAR), report.FileTPAR:
		return ReportTPAR, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownReport, s)
	}
}

// Variant is the BAS layout of a gst or tpar report.
func (k ReportKind) Variant() (report.Variant, bool) {
	switch k {
	case ReportGST:
		return report.VariantGST, true
	case ReportTPAR:
		return report.VariantTPAR, true
	default:
		return "", false
	}
}

type (
	// AgingRequest selects one page of the aging report.
	AgingRequest struct {
		Search string
		Page   int
	}

	// BASRequest selects a BAS date range, either explicitly or as the
	// period containing today. Start and End must be given together.
	BASRequest struct {
		Variant report.Variant
		Period  core.PeriodKind
		Start   time.Time
		End     time.Time
	}

	// ExportRequest selects a whole report for export.
	ExportRequest struct {
		Report ReportKind
		Search string
		Period core.PeriodKind
		Start  time.Time
		End    time.Time
	}
)

type (
	LedgerRow struct {
		Depth    int     `json:"depth"`
		Key      string  `json:"key"`
		Label    string  `json:"label"`
		Total    float64 `json:"total"`
		Expanded bool    `json:"expanded"`
		Visible  bool    `json:"visible"`
	}

	LedgerView struct {
		Rows     []LedgerRow `json:"rows"`
		Total    float64     `json:"total"`
		Orphans  int         `json:"orphans"`
		Tree     core.Tree   `json:"-"`
		AsOf     time.Time   `json:"as_of"`
		Expanded []string    `json:"-"`
	}

	AgingView struct {
		Page   report.Page[report.AgingRow] `json:"page"`
		Search string                       `json:"search,omitempty"`
		AsOf   time.Time                    `json:"as_of"`
	}

	BASView struct {
		Variant  report.Variant   `json:"variant"`
		Period   core.PeriodKind  `json:"period,omitempty"`
		Range    core.DateRange   `json:"range"`
		Filename string           `json:"filename"`
		Rows     []report.BASRow  `json:"rows"`
		Totals   report.BASTotals `json:"totals"`
	}
)

// ReportOptions tunes a ReportService. Zero values select defaults.
type ReportOptions struct {
	FetchTimeout time.Duration
	CacheTTL     time.Duration
	CacheSize    int
	PageSize     int
	Now          func() time.Time
}

// ReportService loads backend rows and assembles every report from them.
type ReportService struct {
	src      source.Source
	timeout  time.Duration
	pageSize int
	now      func() time.Time
	// snapshots is nil when caching is disabled.
	snapshots *cache.LRUCache[core.Snapshot]
}

func NewReportService(src source.Source, opts ReportOptions) *ReportService {
	s := &ReportService{
		src:      src,
		timeout:  opts.FetchTimeout,
		pageSize: opts.PageSize,
		now:      opts.Now,
	}
	if s.timeout <= 0 {
		s.timeout = 15 * time.Second
	}
	if s.pageSize < 1 {
		s.pageSize = report.DefaultPageSize
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.CacheTTL > 0 {
		size := opts.CacheSize
		if size < 1 {
			size = 16
		}
		s.snapshots = cache.NewLRUCache[core.Snapshot](size, opts.CacheTTL)
	}
	return s
}

// SnapshotCache exposes the cache for periodic cleanup. It is nil when
// caching is disabled.
func (s *ReportService) SnapshotCache() *cache.LRUCache[core.Snapshot] {
	return s.snapshots
}

// Invalidate drops every cached snapshot.
func (s *ReportService) Invalidate() {
	if s.snapshots != nil {
		s.snapshots.Purge()
	}
}

// LoadSnapshot fetches every table concurrently. The first failure cancels
// the remaining fetches and is returned wrapped in ErrFetch. The returned
// snapshot may be shared with the cache and must not be modified.
func (s *ReportService) LoadSnapshot(ctx context.Context, q source.InvoiceQuery) (core.Snapshot, error) {
	key := snapshotKey(q)
	if s.snapshots != nil {
		if snap, ok := s.snapshots.Get(key); ok {
			return snap, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	var snap core.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Projects, err = s.src.ListProjects(gctx)
		return wrapFetch("projects", err)
	})
	g.Go(func() (err error) {
		snap.Categories, err = s.src.ListCategories(gctx)
		return wrapFetch("categories", err)
	})
	g.Go(func() (err error) {
		snap.Jobs, err = s.src.ListJobs(gctx)
		return wrapFetch("jobs", err)
	})
	g.Go(func() (err error) {
		snap.Invoices, err = s.src.ListInvoices(gctx, q)
		return wrapFetch("invoices", err)
	})
	g.Go(func() (err error) {
		snap.Contractors, err = s.src.ListContractors(gctx)
		return wrapFetch("contractors", err)
	})
	if err := g.Wait(); err != nil {
		slog.WarnContext(ctx, "Snapshot fetch failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return core.Snapshot{}, err
	}

	slog.DebugContext(ctx, "Snapshot loaded",
		"invoices", len(snap.Invoices),
		"contractors", len(snap.Contractors),
		"duration_ms", time.Since(start).Milliseconds())

	if s.snapshots != nil {
		s.snapshots.Set(key, snap)
	}
	return snap, nil
}

func wrapFetch(table string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrFetch, table, err)
}

func snapshotKey(q source.InvoiceQuery) string {
	return fmt.Sprintf("%s|%s|%s", q.Order,
		q.CreatedFrom.Format(time.RFC3339Nano), q.CreatedTo.Format(time.RFC3339Nano))
}

// Ledger builds the pruned rollup tree. expand lists node keys to mark
// expanded; the single key "all" expands every node.
func (s *ReportService) Ledger(ctx context.Context, expand []string) (LedgerView, error) {
	snap, err := s.LoadSnapshot(ctx, source.InvoiceQuery{Order: source.OrderCode})
	if err != nil {
		return LedgerView{}, err
	}

	records, orphans := core.JoinRecords(snap)
	if len(orphans) > 0 {
		slog.WarnContext(ctx, "Invoices excluded from ledger", "orphans", len(orphans))
	}
	tree := core.BuildTree(records).Prune()

	state := core.ExpandState{}
	for _, k := range expand {
		k = strings.TrimSpace(k)
		switch {
		case k == "all":
			state.ExpandAll(tree)
		case k != "":
			state[k] = true
		}
	}

	return LedgerView{
		Rows:     ledgerRows(tree, state),
		Total:    tree.Total,
		Orphans:  len(orphans),
		Tree:     tree,
		AsOf:     s.now(),
		Expanded: expand,
	}, nil
}

// ledgerRows marks a row visible when every ancestor is expanded.
func ledgerRows(tree core.Tree, state core.ExpandState) []LedgerRow {
	flat := tree.Rows()
	rows := make([]LedgerRow, 0, len(flat))
	var open [core.DepthInvoice + 1]bool
	for _, r := range flat {
		visible := r.Depth == core.DepthProject || open[r.Depth-1]
		expanded := r.Depth < core.DepthInvoice && state.Expanded(r.Key)
		open[r.Depth] = visible && expanded
		rows = append(rows, LedgerRow{
			Depth:    r.Depth,
			Key:      r.Key,
			Label:    r.Label,
			Total:    r.Total,
			Expanded: expanded,
			Visible:  visible,
		})
	}
	return rows
}

// AgingRows loads invoices by due date and derives every row against a
// fresh now.
func (s *ReportService) AgingRows(ctx context.Context, search string) ([]report.AgingRow, time.Time, error) {
	snap, err := s.LoadSnapshot(ctx, source.InvoiceQuery{Order: source.OrderDueAt})
	if err != nil {
		return nil, time.Time{}, err
	}
	now := s.now()
	rows := report.BuildAging(snap.Invoices, snap.ContractorIndex(), now)
	return report.FilterByCompany(rows, search), now, nil
}

func (s *ReportService) Aging(ctx context.Context, req AgingRequest) (AgingView, error) {
	rows, now, err := s.AgingRows(ctx, req.Search)
	if err != nil {
		return AgingView{}, err
	}
	return AgingView{
		Page:   report.Paginate(rows, req.Page, s.pageSize),
		Search: strings.TrimSpace(req.Search),
		AsOf:   now,
	}, nil
}

// AgingSummary totals the unfiltered aging report per bucket.
func (s *ReportService) AgingSummary(ctx context.Context) ([]report.BucketSummary, error) {
	rows, _, err := s.AgingRows(ctx, "")
	if err != nil {
		return nil, err
	}
	return report.SummariseAging(rows), nil
}

// ResolveRange returns the explicit range when both ends are set and the
// period containing today otherwise.
func (s *ReportService) ResolveRange(kind core.PeriodKind, start, end time.Time) (core.DateRange, core.PeriodKind, error) {
	switch {
	case !start.IsZero() && !end.IsZero():
		rng, err := core.NewDateRange(start, end)
		return rng, "", err
	case !start.IsZero() || !end.IsZero():
		return core.DateRange{}, "", fmt.Errorf("%w: start and end must be given together", core.ErrInvalidRange)
	}
	p, err := core.PeriodFor(kind, s.now())
	if err != nil {
		return core.DateRange{}, "", err
	}
	return p.DateRange, p.Kind, nil
}

func (s *ReportService) BAS(ctx context.Context, req BASRequest) (BASView, error) {
	variant := req.Variant
	if variant == "" {
		variant = report.VariantGST
	}
	rng, kind, err := s.ResolveRange(req.Period, req.Start, req.End)
	if err != nil {
		return BASView{}, err
	}

	snap, err := s.LoadSnapshot(ctx, source.QueryForRange(rng))
	if err != nil {
		return BASView{}, err
	}
	rows := report.BuildBAS(snap.Invoices, snap.ContractorIndex(), rng)
	return BASView{
		Variant:  variant,
		Period:   kind,
		Range:    rng,
		Filename: variant.Filename(),
		Rows:     rows,
		Totals:   report.Totals(rows),
	}, nil
}

// Table renders a whole report for export.
func (s *ReportService) Table(ctx context.Context, req ExportRequest) (report.Table, error) {
	switch req.Report {
	case ReportLedger:
		v, err := s.Ledger(ctx, nil)
		if err != nil {
			return report.Table{}, err
		}
		return report.LedgerTable(v.Tree), nil
	case ReportAging:
		rows, _, err := s.AgingRows(ctx, req.Search)
		if err != nil {
			return report.Table{}, err
		}
		return report.AgingTable(rows), nil
	case ReportGST, ReportTPAR:
		variant, _ := req.Report.Variant()
		v, err := s.BAS(ctx, BASRequest{Variant: variant, Period: req.Period, Start: req.Start, End: req.End})
		if err != nil {
			return report.Table{}, err
		}
		return report.BASTable(v.Rows, variant)
	default:
		return report.Table{}, fmt.Errorf("%w: %q", ErrUnknownReport, req.Report)
	}
}
