package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/muwahhidun/durus/internal/domain"
)

// pageSize is the page size used when draining paginated collections.
const pageSize = 100

// Result summarizes one completed sync run.
type Result struct {
	ItemsSynced   int
	SeriesSkipped int
	Duration      time.Duration
}

// Engine pulls the full catalog from the server into the local store.
// One sync runs at a time; a second SyncAll while one is in flight
// returns domain.ErrSyncInProgress.
type Engine struct {
	catalog  domain.CatalogRepository
	store    domain.Store
	logger   *slog.Logger
	inFlight atomic.Bool
}

func NewEngine(catalog domain.CatalogRepository, store domain.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		catalog: catalog,
		store:   store,
		logger:  logger,
	}
}

// NeedsInitialSync reports whether the cache is empty and the app cannot
// browse anything yet.
func (e *Engine) NeedsInitialSync() bool {
	return !e.store.HasData()
}

// LastSync returns the previous run's bookkeeping, if any.
func (e *Engine) LastSync() (domain.SyncState, bool) {
	return e.store.GetSyncState()
}

// SyncAll refreshes every catalog collection and all per-series lesson
// lists. A failure on any collection listing aborts the run; a failure on a
// single series' lessons is logged and skipped so one broken series cannot
// block the rest of the catalog.
func (e *Engine) SyncAll(ctx context.Context) (Result, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return Result{}, domain.ErrSyncInProgress
	}
	defer e.inFlight.Store(false)

	start := time.Now()
	var res Result

	themes, err := drain(ctx, e.catalog.GetThemes)
	if err != nil {
		return res, fmt.Errorf("failed to sync themes: %w", err)
	}
	if err := e.store.SaveThemes(themes); err != nil {
		return res, err
	}
	res.ItemsSynced += len(themes)

	authors, err := drain(ctx, e.catalog.GetAuthors)
	if err != nil {
		return res, fmt.Errorf("failed to sync authors: %w", err)
	}
	if err := e.store.SaveAuthors(authors); err != nil {
		return res, err
	}
	res.ItemsSynced += len(authors)

	books, err := drain(ctx, e.catalog.GetBooks)
	if err != nil {
		return res, fmt.Errorf("failed to sync books: %w", err)
	}
	if err := e.store.SaveBooks(books); err != nil {
		return res, err
	}
	res.ItemsSynced += len(books)

	teachers, err := drain(ctx, e.catalog.GetTeachers)
	if err != nil {
		return res, fmt.Errorf("failed to sync teachers: %w", err)
	}
	if err := e.store.SaveTeachers(teachers); err != nil {
		return res, err
	}
	res.ItemsSynced += len(teachers)

	series, err := drain(ctx, e.catalog.GetSeries)
	if err != nil {
		return res, fmt.Errorf("failed to sync series: %w", err)
	}
	if err := e.store.SaveSeries(series); err != nil {
		return res, err
	}
	res.ItemsSynced += len(series)

	for _, s := range series {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		lessons, err := e.catalog.GetSeriesLessons(ctx, s.ID)
		if err != nil {
			e.logger.Warn("failed to sync series lessons, skipping",
				"series_id", s.ID, "series", s.Name, "error", err)
			res.SeriesSkipped++
			continue
		}

		// The lessons payload omits the owning series id.
		for i := range lessons {
			lessons[i].SeriesID = s.ID
		}

		if err := e.store.SaveLessons(s.ID, lessons); err != nil {
			return res, err
		}
		res.ItemsSynced += len(lessons)
	}

	res.Duration = time.Since(start)

	state := domain.SyncState{
		LastSyncAt:  time.Now(),
		ItemsSynced: res.ItemsSynced,
	}
	if err := e.store.SaveSyncState(state); err != nil {
		e.logger.Warn("failed to persist sync state", "error", err)
	}

	e.logger.Info("sync completed",
		"items", res.ItemsSynced,
		"series_skipped", res.SeriesSkipped,
		"duration", res.Duration)
	return res, nil
}

// ClearCacheAndResync drops cached metadata and bookmarks, then runs a
// full sync. Download records and the session survive: audio files stay on
// disk and resyncing still needs auth.
func (e *Engine) ClearCacheAndResync(ctx context.Context) (Result, error) {
	e.store.InvalidateAll()
	return e.SyncAll(ctx)
}

// drain pages through a paginated listing until total is reached.
func drain[T any](ctx context.Context, fetch func(ctx context.Context, skip, limit int) ([]T, int, error)) ([]T, error) {
	var all []T
	skip := 0
	for {
		items, total, err := fetch(ctx, skip, pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		skip += len(items)
		if skip >= total || len(items) == 0 {
			return all, nil
		}
	}
}
