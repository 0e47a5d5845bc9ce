package search

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/muwahhidun/durus/internal/domain"
)

// Kind classifies what an index entry points at.
type Kind int

const (
	KindSeries Kind = iota
	KindLesson
)

// Entry is one searchable item in the local index.
type Entry struct {
	Kind     Kind
	Title    string
	SeriesID int
	LessonID int // zero for series entries
}

// Result is a ranked search hit. Lower score means a better match.
type Result struct {
	Entry
	Score int
}

// Index is a fuzzy search index over the cached catalog. All searches are
// local; the server has no search endpoint and the index must work offline.
type Index struct {
	logger *slog.Logger

	mu          sync.RWMutex
	entries     []Entry
	lowerTitles []string
	seen        map[string]bool
}

func NewIndex(logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		logger: logger,
		seen:   make(map[string]bool),
	}
}

// BuildFromStore rebuilds the index from everything currently cached.
func (idx *Index) BuildFromStore(store domain.Store) {
	idx.Clear()

	series, _ := store.GetSeries()
	for _, s := range series {
		idx.add(Entry{Kind: KindSeries, Title: s.DisplayName(), SeriesID: s.ID}, "series", s.ID)

		lessons, ok := store.GetLessons(s.ID)
		if !ok {
			continue
		}
		for _, l := range lessons {
			idx.add(Entry{
				Kind:     KindLesson,
				Title:    l.DisplayTitle(),
				SeriesID: s.ID,
				LessonID: l.ID,
			}, "lesson", l.ID)
		}
	}

	idx.logger.Debug("search index built", "entries", idx.Count())
}

func (idx *Index) add(entry Entry, kind string, id int) {
	key := kind + ":" + strconv.Itoa(id)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.seen[key] {
		return
	}
	idx.seen[key] = true
	idx.entries = append(idx.entries, entry)
	idx.lowerTitles = append(idx.lowerTitles, strings.ToLower(entry.Title))
}

// Clear drops the whole index.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = nil
	idx.lowerTitles = nil
	idx.seen = make(map[string]bool)
}

// Count returns the number of indexed entries.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Search fuzzy-matches the query against all indexed titles and returns
// hits best-first.
func (idx *Index) Search(query string) []Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matches := fuzzy.RankFindFold(query, idx.lowerTitles)
	if len(matches) == 0 {
		return nil
	}

	results := make([]Result, 0, len(matches))
	for _, match := range matches {
		entry := idx.entries[match.OriginalIndex]
		results = append(results, Result{
			Entry: entry,
			Score: matchScore(strings.ToLower(entry.Title), query, match.Distance),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})
	return results
}

// matchScore ranks a hit. Exact beats prefix beats substring beats plain
// fuzzy distance.
func matchScore(title, query string, distance int) int {
	switch {
	case title == query:
		return 0
	case strings.HasPrefix(title, query):
		return 10
	case strings.Contains(title, query):
		return 50
	default:
		return 100 + distance
	}
}
