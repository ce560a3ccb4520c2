// Package report assembles report rows from backend records and renders
// them for export.
package report

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
)

// DefaultPageSize is the aging report page length.
const DefaultPageSize = 10

// AgingRow is one invoice in the aging report.
type AgingRow struct {
	Code        int64       `json:"code"`
	Ref         string      `json:"ref"`
	CompanyName string      `json:"company_name"`
	DueAt       time.Time   `json:"due_at"`
	CreateAt    time.Time   `json:"create_at"`
	Cost        float64     `json:"cost"`
	TotalPaid   float64     `json:"total_paid"`
	AmountDue   float64     `json:"amount_due"`
	Bucket      core.Bucket `json:"bucket"`
	Overpaid    bool        `json:"overpaid,omitempty"`
}

// MarshalJSON writes a missing due date as null.
func (r AgingRow) MarshalJSON() ([]byte, error) {
	type row AgingRow
	var due *time.Time
	if !r.DueAt.IsZero() {
		due = &r.DueAt
	}
	return json.Marshal(struct {
		row
		DueAt *time.Time `json:"due_at"`
	}{row(r), due})
}

// BuildAging derives balance and bucket for every invoice against now.
// Rows keep the order of invoices, which the source returns by due date.
func BuildAging(invoices []core.Invoice, contractors map[int64]core.Contractor, now time.Time) []AgingRow {
	rows := make([]AgingRow, 0, len(invoices))
	for _, inv := range invoices {
		b := core.InvoiceBalance(inv)
		rows = append(rows, AgingRow{
			Code:        inv.Code,
			Ref:         inv.Ref,
			CompanyName: contractors[inv.ContractorID].CompanyName,
			DueAt:       inv.DueAt,
			CreateAt:    inv.CreateAt,
			Cost:        inv.Cost,
			TotalPaid:   b.TotalPaid,
			AmountDue:   b.AmountDue,
			Bucket:      core.Classify(inv.DueAt, now),
			Overpaid:    b.Overpaid(),
		})
	}
	return rows
}

// FilterByCompany keeps rows whose company name contains term, ignoring
// case. An empty term keeps every row.
func FilterByCompany(rows []AgingRow, term string) []AgingRow {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return rows
	}
	out := make([]AgingRow, 0, len(rows))
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.CompanyName), term) {
			out = append(out, r)
		}
	}
	return out
}

// BucketSummary totals the amount due in one bucket.
type BucketSummary struct {
	Bucket    core.Bucket `json:"bucket"`
	Count     int         `json:"count"`
	AmountDue float64     `json:"amount_due"`
}

// SummariseAging returns one entry per bucket in report order, including
// empty buckets.
func SummariseAging(rows []AgingRow) []BucketSummary {
	buckets := core.Buckets()
	idx := make(map[core.Bucket]int, len(buckets))
	out := make([]BucketSummary, len(buckets))
	for i, b := range buckets {
		idx[b] = i
		out[i].Bucket = b
	}
	for _, r := range rows {
		i := idx[r.Bucket]
		out[i].Count++
		out[i].AmountDue += r.AmountDue
	}
	return out
}

var agingColumns = []string{"Company", "Invoice", "Reference", "Due Date", "Cost", "Paid", "Amount Due", "Aging"}

// AgingTable renders rows for export.
func AgingTable(rows []AgingRow) Table {
	t := Table{Name: FileAging, Columns: agingColumns, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.CompanyName,
			strconv.FormatInt(r.Code, 10),
			r.Ref,
			formatDate(r.DueAt),
			core.Fixed2(r.Cost),
			core.Fixed2(r.TotalPaid),
			core.Fixed2(r.AmountDue),
			string(r.Bucket),
		})
	}
	return t
}

// Page is one page of a paginated result.
type Page[T any] struct {
	Number     int `json:"page"`
	Size       int `json:"page_size"`
	TotalRows  int `json:"total_rows"`
	TotalPages int `json:"total_pages"`
	Rows       []T `json:"rows"`
}

// Paginate returns the 1-based page of rows. Pages below one select the
// first page and pages past the end select the last one.
func Paginate[T any](rows []T, page, size int) Page[T] {
	if size < 1 {
		size = DefaultPageSize
	}
	pages := (len(rows) + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	out := make([]T, 0, end-start)
	out = append(out, rows[start:end]...)
	return Page[T]{
		Number:     page,
		Size:       size,
		TotalRows:  len(rows),
		TotalPages: pages,
		Rows:       out,
	}
}
