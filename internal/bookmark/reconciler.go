package bookmark

import (
	"context"
	"log/slog"
	"sync"

	"github.com/muwahhidun/durus/internal/domain"
)

// Reconciler keeps a per-series view of the user's bookmarks, mirrored into
// the local store for offline reads. The server is authoritative: every
// toggle round-trips, and the local map adopts whatever the server answered.
type Reconciler struct {
	repo   domain.BookmarkRepository
	store  domain.Store
	logger *slog.Logger

	mu     sync.RWMutex
	series map[int]map[int]domain.Bookmark // seriesID -> lessonID -> bookmark
}

func NewReconciler(repo domain.BookmarkRepository, store domain.Store, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		repo:   repo,
		store:  store,
		logger: logger,
		series: make(map[int]map[int]domain.Bookmark),
	}
}

// Load fetches the series' bookmarks from the server, falling back to the
// local mirror when the server is unreachable. The returned map is keyed by
// lesson id and owned by the caller.
func (r *Reconciler) Load(ctx context.Context, seriesID int) (map[int]domain.Bookmark, error) {
	bookmarks, err := r.repo.GetSeriesBookmarks(ctx, seriesID)
	if err != nil {
		if cached, ok := r.store.GetBookmarks(seriesID); ok {
			r.logger.Debug("serving bookmarks from cache", "series_id", seriesID, "error", err)
			r.replace(seriesID, cached)
			return copyMap(cached), nil
		}
		return nil, err
	}

	byLesson := make(map[int]domain.Bookmark, len(bookmarks))
	for _, bm := range bookmarks {
		byLesson[bm.LessonID] = bm
	}
	r.replace(seriesID, byLesson)
	r.persist(seriesID)
	return copyMap(byLesson), nil
}

// IsBookmarked reports whether the lesson is bookmarked in the loaded view.
func (r *Reconciler) IsBookmarked(seriesID, lessonID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.series[seriesID][lessonID]
	return ok
}

// Toggle flips the lesson's bookmark on the server and updates the local
// view from the answer. It returns the server's action, "added" or
// "removed".
func (r *Reconciler) Toggle(ctx context.Context, seriesID, lessonID int, customName string) (string, error) {
	action, bm, err := r.repo.ToggleBookmark(ctx, lessonID, customName)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	byLesson, ok := r.series[seriesID]
	if !ok {
		byLesson = make(map[int]domain.Bookmark)
		r.series[seriesID] = byLesson
	}
	switch {
	case action == "added" && bm != nil:
		byLesson[lessonID] = *bm
	case action == "removed":
		delete(byLesson, lessonID)
	default:
		r.logger.Warn("unexpected toggle answer", "action", action, "lesson_id", lessonID)
	}
	r.mu.Unlock()

	r.persist(seriesID)
	return action, nil
}

func (r *Reconciler) replace(seriesID int, byLesson map[int]domain.Bookmark) {
	r.mu.Lock()
	r.series[seriesID] = copyMap(byLesson)
	r.mu.Unlock()
}

// persist mirrors the series view into the store, best-effort.
func (r *Reconciler) persist(seriesID int) {
	r.mu.RLock()
	byLesson := copyMap(r.series[seriesID])
	r.mu.RUnlock()

	if err := r.store.SaveBookmarks(seriesID, byLesson); err != nil {
		r.logger.Warn("failed to persist bookmarks", "series_id", seriesID, "error", err)
	}
}

func copyMap(in map[int]domain.Bookmark) map[int]domain.Bookmark {
	out := make(map[int]domain.Bookmark, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
