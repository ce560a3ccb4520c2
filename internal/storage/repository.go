package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ledger/internal/core"
	"ledger/internal/source"

	_ "modernc.org/sqlite"
)

var _ source.Source = (*SQLiteRepository)(nil)

// tsLayout is fixed width so that text comparison in SQL orders like time.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepository is a local mirror of the backend tables. It serves the
// same reads as the remote source and is refreshed wholesale by
// ReplaceSnapshot.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, name, manager, description, status FROM project ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	defer rows.Close()

	var out []core.Project
	for rows.Next() {
		var p core.Project
		if err := rows.Scan(&p.Code, &p.Name, &p.Manager, &p.Description, &p.Status); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, name FROM categ ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query categ: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.Code, &c.Name); err != nil {
			return nil, fmt.Errorf("scan categ: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListJobs(ctx context.Context) ([]core.Job, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, category_id, name, description FROM job ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}
	defer rows.Close()

	var out []core.Job
	for rows.Next() {
		var j core.Job
		if err := rows.Scan(&j.Code, &j.CategoryID, &j.Name, &j.Description); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListInvoices(ctx context.Context, q source.InvoiceQuery) ([]core.Invoice, error) {
	query := `SELECT code, job_id, contractor_id, project_id, cost, ref, due_at, create_at FROM jobby WHERE 1 = 1`
	var args []any
	if !q.CreatedFrom.IsZero() {
		query += ` AND create_at >= ?`
		args = append(args, formatTime(q.CreatedFrom))
	}
	if !q.CreatedTo.IsZero() {
		query += ` AND create_at <= ?`
		args = append(args, formatTime(q.CreatedTo))
	}
	switch q.Order {
	case source.OrderDueAt:
		query += ` ORDER BY due_at, code`
	case source.OrderCreateAt:
		query += ` ORDER BY create_at, code`
	default:
		query += ` ORDER BY code`
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobby: %w", err)
	}
	defer rows.Close()

	var (
		invoices []core.Invoice
		index    = map[int64]int{}
	)
	for rows.Next() {
		var (
			inv           core.Invoice
			due, createAt sql.NullString
		)
		if err := rows.Scan(&inv.Code, &inv.JobID, &inv.ContractorID, &inv.ProjectID,
			&inv.Cost, &inv.Ref, &due, &createAt); err != nil {
			return nil, fmt.Errorf("scan jobby: %w", err)
		}
		if inv.DueAt, err = parseTime(due); err != nil {
			return nil, fmt.Errorf("invoice %d due_at: %w", inv.Code, err)
		}
		if inv.CreateAt, err = parseTime(createAt); err != nil {
			return nil, fmt.Errorf("invoice %d create_at: %w", inv.Code, err)
		}
		index[inv.Code] = len(invoices)
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return invoices, nil
	}

	if err := r.attachPayments(ctx, invoices, index); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *SQLiteRepository) attachPayments(ctx context.Context, invoices []core.Invoice, index map[int64]int) error {
	rows, err := r.db.QueryContext(ctx, `SELECT code, invoice_id, amount, pay_via, create_at FROM pay ORDER BY code`)
	if err != nil {
		return fmt.Errorf("query pay: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p        core.Payment
			createAt sql.NullString
		)
		if err := rows.Scan(&p.Code, &p.InvoiceID, &p.Amount, &p.PayVia, &createAt); err != nil {
			return fmt.Errorf("scan pay: %w", err)
		}
		i, ok := index[p.InvoiceID]
		if !ok {
			continue
		}
		if p.CreateAt, err = parseTime(createAt); err != nil {
			return fmt.Errorf("payment %d create_at: %w", p.Code, err)
		}
		invoices[i].Payments = append(invoices[i].Payments, p)
	}
	return rows.Err()
}

func (r *SQLiteRepository) ListContractors(ctx context.Context) ([]core.Contractor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT code, company_name, abn, gst_registered, bank_name, bsb, account_number, account_name
		FROM contractor ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query contractor: %w", err)
	}
	defer rows.Close()

	var out []core.Contractor
	for rows.Next() {
		var c core.Contractor
		if err := rows.Scan(&c.Code, &c.CompanyName, &c.ABN, &c.GSTRegistered,
			&c.BankName, &c.BSB, &c.AccountNumber, &c.AccountName); err != nil {
			return nil, fmt.Errorf("scan contractor: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReplaceSnapshot swaps the mirror contents for snap in one transaction.
func (r *SQLiteRepository) ReplaceSnapshot(ctx context.Context, snap core.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mirror: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"pay", "jobby", "contractor", "job", "categ", "project"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, p := range snap.Projects {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO project (code, name, manager, description, status) VALUES (?, ?, ?, ?, ?)`,
			p.Code, p.Name, p.Manager, p.Description, p.Status); err != nil {
			return fmt.Errorf("insert project %d: %w", p.Code, err)
		}
	}
	for _, c := range snap.Categories {
		if _, err := tx.ExecContext(ctx, `INSERT INTO categ (code, name) VALUES (?, ?)`, c.Code, c.Name); err != nil {
			return fmt.Errorf("insert categ %d: %w", c.Code, err)
		}
	}
	for _, j := range snap.Jobs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO job (code, category_id, name, description) VALUES (?, ?, ?, ?)`,
			j.Code, j.CategoryID, j.Name, j.Description); err != nil {
			return fmt.Errorf("insert job %d: %w", j.Code, err)
		}
	}
	for _, c := range snap.Contractors {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO contractor (code, company_name, abn, gst_registered, bank_name, bsb, account_number, account_name)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.Code, c.CompanyName, c.ABN, c.GSTRegistered, c.BankName, c.BSB, c.AccountNumber, c.AccountName); err != nil {
			return fmt.Errorf("insert contractor %d: %w", c.Code, err)
		}
	}
	for _, inv := range snap.Invoices {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO jobby (code, job_id, contractor_id, project_id, cost, ref, due_at, create_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			inv.Code, inv.JobID, inv.ContractorID, inv.ProjectID, inv.Cost, inv.Ref,
			nullTime(inv.DueAt), nullTime(inv.CreateAt)); err != nil {
			return fmt.Errorf("insert jobby %d: %w", inv.Code, err)
		}
		for _, p := range inv.Payments {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO pay (code, invoice_id, amount, pay_via, create_at) VALUES (?, ?, ?, ?, ?)`,
				p.Code, inv.Code, p.Amount, p.PayVia, nullTime(p.CreateAt)); err != nil {
				return fmt.Errorf("insert pay %d: %w", p.Code, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO mirror_run (mirrored_at, invoices) VALUES (?, ?)`,
		formatTime(time.Now()), len(snap.Invoices)); err != nil {
		return fmt.Errorf("record mirror run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mirror: %w", err)
	}

	slog.InfoContext(ctx, "Mirror replaced",
		"projects", len(snap.Projects),
		"jobs", len(snap.Jobs),
		"invoices", len(snap.Invoices),
		"contractors", len(snap.Contractors))
	return nil
}

// LastMirror returns when ReplaceSnapshot last committed. ok is false when
// the mirror has never been filled.
func (r *SQLiteRepository) LastMirror(ctx context.Context) (at time.Time, ok bool, err error) {
	var s sql.NullString
	err = r.db.QueryRowContext(ctx, `SELECT mirrored_at FROM mirror_run ORDER BY id DESC LIMIT 1`).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query mirror run: %w", err)
	}
	at, err = parseTime(s)
	return at, err == nil, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s.String)
}
