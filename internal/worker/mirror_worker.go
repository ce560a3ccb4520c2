package worker

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/source"
)

// SnapshotLoader reads a full snapshot from the configured backend.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, q source.InvoiceQuery) (core.Snapshot, error)
}

// MirrorStore is the local replica a snapshot is copied into.
type MirrorStore interface {
	ReplaceSnapshot(ctx context.Context, snap core.Snapshot) error
	LastMirror(ctx context.Context) (time.Time, bool, error)
}

// MirrorStats counts the rows copied by one refresh.
type MirrorStats struct {
	Projects    int
	Categories  int
	Jobs        int
	Invoices    int
	Payments    int
	Contractors int
}

func statsOf(snap core.Snapshot) MirrorStats {
	s := MirrorStats{
		Projects:    len(snap.Projects),
		Categories:  len(snap.Categories),
		Jobs:        len(snap.Jobs),
		Invoices:    len(snap.Invoices),
		Contractors: len(snap.Contractors),
	}
	for _, inv := range snap.Invoices {
		s.Payments += len(inv.Payments)
	}
	return s
}

// MirrorWorker keeps a SQLite replica of the backend fresh.
type MirrorWorker struct {
	loader SnapshotLoader
	store  MirrorStore
	maxAge time.Duration
	now    func() time.Time
	logger *applog.Logger
}

// NewMirrorWorker refreshes the replica whenever it is older than maxAge.
func NewMirrorWorker(loader SnapshotLoader, store MirrorStore, maxAge time.Duration, logger *applog.Logger) *MirrorWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &MirrorWorker{
		loader: loader,
		store:  store,
		maxAge: maxAge,
		now:    time.Now,
		logger: logger.WithComponent(applog.ComponentMirror),
	}
}

// Refresh copies the whole backend into the replica. The replica is left
// untouched when the fetch fails.
func (w *MirrorWorker) Refresh(ctx context.Context) (MirrorStats, error) {
	snap, err := w.loader.LoadSnapshot(ctx, source.InvoiceQuery{Order: source.OrderCode})
	if err != nil {
		return MirrorStats{}, fmt.Errorf("load snapshot: %w", err)
	}
	if err := w.store.ReplaceSnapshot(ctx, snap); err != nil {
		return MirrorStats{}, fmt.Errorf("replace mirror: %w", err)
	}

	stats := statsOf(snap)
	w.logger.InfoContext(ctx, "Mirror refreshed",
		"projects", stats.Projects,
		"jobs", stats.Jobs,
		"invoices", stats.Invoices,
		"payments", stats.Payments,
		"contractors", stats.Contractors)
	return stats, nil
}

// RefreshIfStale refreshes an empty replica or one older than maxAge and
// reports whether it did.
func (w *MirrorWorker) RefreshIfStale(ctx context.Context) (bool, error) {
	last, ok, err := w.store.LastMirror(ctx)
	if err != nil {
		return false, fmt.Errorf("read last mirror time: %w", err)
	}
	if ok {
		age := w.now().Sub(last)
		if age < w.maxAge {
			w.logger.DebugContext(ctx, "Mirror is fresh",
				"last_mirror", last.Format(time.RFC3339),
				"age", age.Round(time.Second))
			return false, nil
		}
		w.logger.InfoContext(ctx, "Mirror is stale, refreshing",
			"last_mirror", last.Format(time.RFC3339),
			"age", age.Round(time.Second))
	}

	if _, err := w.Refresh(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Run refreshes a stale replica at start and then refreshes it on every
// tick of interval until ctx is done. Failures are logged and retried on
// the next tick.
func (w *MirrorWorker) Run(ctx context.Context, interval time.Duration) {
	if _, err := w.RefreshIfStale(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup mirror refresh failed", applog.FieldError, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Refresh(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic mirror refresh failed", applog.FieldError, err)
			}
		}
	}
}
