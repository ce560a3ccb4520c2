// Package source defines the read ports over the backend tables the
// reports are computed from.
package source

import (
	"context"
	"sort"
	"time"

	"ledger/internal/core"
)

// Order is the sort order requested from the backend for invoices.
type Order string

const (
	OrderCode     Order = "code"
	OrderDueAt    Order = "due_at"
	OrderCreateAt Order = "create_at"
)

// InvoiceQuery narrows an invoice listing. Zero times leave that end of
// the create_at range open.
type InvoiceQuery struct {
	CreatedFrom time.Time
	CreatedTo   time.Time
	Order       Order
}

// Ports for the backend tables.
type (
	ProjectLister interface {
		ListProjects(ctx context.Context) ([]core.Project, error)
	}

	CategoryLister interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	JobLister interface {
		ListJobs(ctx context.Context) ([]core.Job, error)
	}

	// InvoiceLister returns invoices with their payments embedded.
	InvoiceLister interface {
		ListInvoices(ctx context.Context, q InvoiceQuery) ([]core.Invoice, error)
	}

	ContractorLister interface {
		ListContractors(ctx context.Context) ([]core.Contractor, error)
	}
)

// Source is a complete read view of the backend.
type Source interface {
	ProjectLister
	CategoryLister
	JobLister
	InvoiceLister
	ContractorLister
}

// Matches reports whether inv satisfies the create_at bounds of q.
func (q InvoiceQuery) Matches(inv core.Invoice) bool {
	if !q.CreatedFrom.IsZero() && inv.CreateAt.Before(q.CreatedFrom) {
		return false
	}
	if !q.CreatedTo.IsZero() && inv.CreateAt.After(q.CreatedTo) {
		return false
	}
	return true
}

// QueryForRange builds the query for a BAS range, both ends inclusive.
func QueryForRange(r core.DateRange) InvoiceQuery {
	return InvoiceQuery{CreatedFrom: r.From(), CreatedTo: r.Until(), Order: OrderCreateAt}
}

// SortInvoices orders invoices in place the way the backend would for o.
func SortInvoices(invoices []core.Invoice, o Order) {
	var less func(a, b core.Invoice) bool
	switch o {
	case OrderDueAt:
		less = func(a, b core.Invoice) bool { return a.DueAt.Before(b.DueAt) }
	case OrderCreateAt:
		less = func(a, b core.Invoice) bool { return a.CreateAt.Before(b.CreateAt) }
	default:
		less = func(a, b core.Invoice) bool { return a.Code < b.Code }
	}
	sort.SliceStable(invoices, func(i, j int) bool { return less(invoices[i], invoices[j]) })
}
