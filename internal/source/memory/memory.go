package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"ledger/internal/core"
	"ledger/internal/source"
)

var _ source.Source = (*Store)(nil)

// Store holds a snapshot in process. It backs local development and tests.
type Store struct {
	mu   sync.RWMutex
	snap core.Snapshot
	// err, when set, is returned by every listing.
	err error
}

func New(snap core.Snapshot) *Store {
	return &Store{snap: snap}
}

// Seed file names, one per backend table.
const (
	fileProjects    = "project.json"
	fileCategories  = "categ.json"
	fileJobs        = "job.json"
	fileInvoices    = "jobby.json"
	filePayments    = "pay.json"
	fileContractors = "contractor.json"
)

// NewFromDir seeds a store from JSON arrays of backend rows in base. Missing
// files leave that table empty. Payments from pay.json are attached to
// their invoice alongside any embedded in jobby.json.
func NewFromDir(base string) (*Store, error) {
	var (
		projects    []source.ProjectRow
		categories  []source.CategoryRow
		jobs        []source.JobRow
		invoices    []source.InvoiceRow
		payments    []source.PaymentRow
		contractors []source.ContractorRow
	)
	files := []struct {
		name string
		dst  any
	}{
		{fileProjects, &projects},
		{fileCategories, &categories},
		{fileJobs, &jobs},
		{fileInvoices, &invoices},
		{filePayments, &payments},
		{fileContractors, &contractors},
	}
	for _, f := range files {
		if err := readJSON(filepath.Join(base, f.name), f.dst); err != nil {
			return nil, err
		}
	}

	var snap core.Snapshot
	for _, r := range projects {
		snap.Projects = append(snap.Projects, r.Core())
	}
	for _, r := range categories {
		snap.Categories = append(snap.Categories, r.Core())
	}
	for _, r := range jobs {
		snap.Jobs = append(snap.Jobs, r.Core())
	}
	byInvoice := map[int64][]core.Payment{}
	for _, p := range payments {
		byInvoice[p.InvoiceID] = append(byInvoice[p.InvoiceID], p.Core())
	}
	for _, r := range invoices {
		inv := r.Core()
		inv.Payments = append(inv.Payments, byInvoice[inv.Code]...)
		snap.Invoices = append(snap.Invoices, inv)
	}
	for _, r := range contractors {
		snap.Contractors = append(snap.Contractors, r.Core())
	}
	return New(snap), nil
}

func readJSON(path string, dst any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read seed %s: %w", path, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode seed %s: %w", path, err)
	}
	return nil
}

// Replace swaps the whole snapshot.
func (s *Store) Replace(snap core.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

// FailWith makes every listing return err until called again with nil.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Store) ListProjects(ctx context.Context) ([]core.Project, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Project(nil), s.snap.Projects...), nil
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Category(nil), s.snap.Categories...), nil
}

func (s *Store) ListJobs(ctx context.Context) ([]core.Job, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Job(nil), s.snap.Jobs...), nil
}

// ListInvoices filters on create_at and sorts the way the backend would.
func (s *Store) ListInvoices(ctx context.Context, q source.InvoiceQuery) ([]core.Invoice, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]core.Invoice, 0, len(s.snap.Invoices))
	for _, inv := range s.snap.Invoices {
		if q.Matches(inv) {
			inv.Payments = append([]core.Payment(nil), inv.Payments...)
			out = append(out, inv)
		}
	}
	s.mu.RUnlock()
	source.SortInvoices(out, q.Order)
	return out, nil
}

func (s *Store) ListContractors(ctx context.Context) ([]core.Contractor, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Contractor(nil), s.snap.Contractors...), nil
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
