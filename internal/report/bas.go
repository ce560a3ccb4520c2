package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
)

// Variant selects which fields of a BAS row are exported and under which
// filename.
type Variant string

const (
	// VariantGST is the ATO GST layout.
	VariantGST Variant = "gst"
	// VariantTPAR is the MYOB contractor payments layout.
	VariantTPAR Variant = "tpar"
)

// ParseVariant accepts the variant names case-insensitively. An empty
// name selects VariantGST.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantGST:
		return VariantGST, nil
	case VariantTPAR:
		return VariantTPAR, nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnknownVariant, s)
	}
}

// Filename returns the fixed export filename of the variant.
func (v Variant) Filename() string {
	if v == VariantTPAR {
		return FileTPAR
	}
	return FileGST
}

// BASRow is one invoice inside the reporting range. Gross is already
// rounded to cents; GST is kept at full precision until rendered.
type BASRow struct {
	Code        int64     `json:"code"`
	CreateAt    time.Time `json:"create_at"`
	CompanyName string    `json:"company_name"`
	ABN         string    `json:"abn"`
	Gross       float64   `json:"gross"`
	GST         float64   `json:"gst"`
}

// BASTotals sums every row at full precision.
type BASTotals struct {
	Gross float64 `json:"gross"`
	GST   float64 `json:"gst"`
}

// BuildBAS selects the invoices created inside rng and derives their GST.
// Rows keep the order of invoices, which the source returns by create date.
// An invoice whose contractor is unknown is treated as not registered.
func BuildBAS(invoices []core.Invoice, contractors map[int64]core.Contractor, rng core.DateRange) []BASRow {
	var rows []BASRow
	for _, inv := range invoices {
		if !rng.Contains(inv.CreateAt) {
			continue
		}
		c := contractors[inv.ContractorID]
		rows = append(rows, BASRow{
			Code:        inv.Code,
			CreateAt:    inv.CreateAt,
			CompanyName: c.CompanyName,
			ABN:         c.ABN,
			Gross:       core.Round2(inv.Cost),
			GST:         core.GSTComponent(inv.Cost, c.GSTRegistered),
		})
	}
	return rows
}

// Totals sums the gross and GST columns.
func Totals(rows []BASRow) BASTotals {
	var t BASTotals
	for _, r := range rows {
		t.Gross += r.Gross
		t.GST += r.GST
	}
	return t
}

var (
	gstColumns  = []string{"Invoice", "Date", "Supplier", "Gross Amount", "GST"}
	tparColumns = []string{"ABN", "Payee", "Invoice Date", "Gross Amount", "GST"}
)

// BASTable renders rows in the layout of the variant.
func BASTable(rows []BASRow, v Variant) (Table, error) {
	t := Table{Name: v.Filename(), Rows: make([][]string, 0, len(rows))}
	switch v {
	case VariantGST:
		t.Columns = gstColumns
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{
				strconv.FormatInt(r.Code, 10),
				formatDate(r.CreateAt),
				r.CompanyName,
				core.Fixed2(r.Gross),
				core.Fixed2(r.GST),
			})
		}
	case VariantTPAR:
		t.Columns = tparColumns
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{
				r.ABN,
				r.CompanyName,
				formatDate(r.CreateAt),
				core.Fixed2(r.Gross),
				core.Fixed2(r.GST),
			})
		}
	default:
		return Table{}, fmt.Errorf("%w: %q", core.ErrUnknownVariant, v)
	}
	return t, nil
}
