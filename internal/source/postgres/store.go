// Package postgres reads the backend tables directly over a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledger/internal/core"
	"ledger/internal/source"
)

var _ source.Source = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

// New opens a pool and pings it before returning.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, COALESCE(name, ''), COALESCE(manager, ''), COALESCE(description, ''), COALESCE(status, '')
		FROM project
		ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Project, error) {
		var p core.Project
		err := row.Scan(&p.Code, &p.Name, &p.Manager, &p.Description, &p.Status)
		return p, err
	})
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT code, COALESCE(name, '') FROM categ ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query categ: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Category, error) {
		var c core.Category
		err := row.Scan(&c.Code, &c.Name)
		return c, err
	})
}

func (s *Store) ListJobs(ctx context.Context) ([]core.Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, COALESCE(category_id, 0), COALESCE(name, ''), COALESCE(description, '')
		FROM job
		ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Job, error) {
		var j core.Job
		err := row.Scan(&j.Code, &j.CategoryID, &j.Name, &j.Description)
		return j, err
	})
}

// ListInvoices runs two queries, invoices then their payments, and joins
// them on invoice_id.
func (s *Store) ListInvoices(ctx context.Context, q source.InvoiceQuery) ([]core.Invoice, error) {
	sql, args := invoiceSQL(q)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobby: %w", err)
	}
	invoices, err := pgx.CollectRows(rows, scanInvoice)
	if err != nil {
		return nil, fmt.Errorf("scan jobby: %w", err)
	}
	if len(invoices) == 0 {
		return invoices, nil
	}

	codes := make([]int64, len(invoices))
	for i, inv := range invoices {
		codes[i] = inv.Code
	}
	payRows, err := s.pool.Query(ctx, `
		SELECT code, invoice_id, COALESCE(amount, 0)::float8, COALESCE(pay_via, ''), create_at
		FROM pay
		WHERE invoice_id = ANY($1)
		ORDER BY code`, codes)
	if err != nil {
		return nil, fmt.Errorf("query pay: %w", err)
	}
	payments, err := pgx.CollectRows(payRows, func(row pgx.CollectableRow) (core.Payment, error) {
		var (
			p       core.Payment
			created pgtype.Timestamptz
		)
		err := row.Scan(&p.Code, &p.InvoiceID, &p.Amount, &p.PayVia, &created)
		p.CreateAt = timeOf(created)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan pay: %w", err)
	}

	byInvoice := make(map[int64][]core.Payment, len(invoices))
	for _, p := range payments {
		byInvoice[p.InvoiceID] = append(byInvoice[p.InvoiceID], p)
	}
	for i := range invoices {
		invoices[i].Payments = byInvoice[invoices[i].Code]
	}
	return invoices, nil
}

func (s *Store) ListContractors(ctx context.Context) ([]core.Contractor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, COALESCE(company_name, ''), COALESCE(abn, ''), COALESCE(gst_registered, false),
		       COALESCE(bank_name, ''), COALESCE(bsb, ''), COALESCE(account_number, ''), COALESCE(account_name, '')
		FROM contractor
		ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query contractor: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Contractor, error) {
		var c core.Contractor
		err := row.Scan(&c.Code, &c.CompanyName, &c.ABN, &c.GSTRegistered,
			&c.BankName, &c.BSB, &c.AccountNumber, &c.AccountName)
		return c, err
	})
}

func invoiceSQL(q source.InvoiceQuery) (string, []any) {
	var (
		sql = `SELECT code, COALESCE(job_id, 0), COALESCE(contractor_id, 0), COALESCE(project_id, 0),
		       COALESCE(cost, 0)::float8, COALESCE(ref, ''), due_at::timestamptz, create_at
		FROM jobby`
		where []string
		args  []any
	)
	if !q.CreatedFrom.IsZero() {
		args = append(args, q.CreatedFrom)
		where = append(where, fmt.Sprintf("create_at >= $%d", len(args)))
	}
	if !q.CreatedTo.IsZero() {
		args = append(args, q.CreatedTo)
		where = append(where, fmt.Sprintf("create_at <= $%d", len(args)))
	}
	for i, w := range where {
		if i == 0 {
			sql += "\n\t\tWHERE " + w
		} else {
			sql += " AND " + w
		}
	}

	switch q.Order {
	case source.OrderDueAt:
		sql += "\n\t\tORDER BY due_at ASC NULLS FIRST, code"
	case source.OrderCreateAt:
		sql += "\n\t\tORDER BY create_at, code"
	default:
		sql += "\n\t\tORDER BY code"
	}
	return sql, args
}

func scanInvoice(row pgx.CollectableRow) (core.Invoice, error) {
	var (
		inv            core.Invoice
		due, createdAt pgtype.Timestamptz
	)
	err := row.Scan(&inv.Code, &inv.JobID, &inv.ContractorID, &inv.ProjectID,
		&inv.Cost, &inv.Ref, &due, &createdAt)
	inv.DueAt = timeOf(due)
	inv.CreateAt = timeOf(createdAt)
	return inv, err
}

// timeOf maps NULL to the zero time.
func timeOf(ts pgtype.Timestamptz) time.Time {
	if !ts.Valid {
		return time.Time{}
	}
	return ts.Time.UTC()
}
