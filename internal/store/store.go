package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/muwahhidun/durus/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketMeta        = []byte("meta")
	bucketLessons     = []byte("lessons")
	bucketLessonIndex = []byte("lesson_index")
	bucketDownloads   = []byte("downloads")
	bucketBookmarks   = []byte("bookmarks")
	bucketSession     = []byte("session")
)

// Keys inside bucketMeta
const (
	keyThemes    = "themes"
	keyAuthors   = "authors"
	keyBooks     = "books"
	keyTeachers  = "teachers"
	keySeries    = "series"
	keySyncState = "sync_state"
)

// CacheStore implements domain.Store using bbolt.
type CacheStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// NewCacheStore opens (or creates) the cache database under baseDir.
// With an empty baseDir the store runs memory-only (no persistence).
// serverURL scopes the database file so switching servers never mixes
// catalogs.
func NewCacheStore(baseDir, serverURL string) (*CacheStore, error) {
	if baseDir == "" {
		return &CacheStore{cache: make(map[string][]byte)}, nil
	}

	dir := baseDir
	if serverURL != "" {
		dir = filepath.Join(baseDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "durus.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets() {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &CacheStore{db: db, cache: make(map[string][]byte)}, nil
}

func allBuckets() [][]byte {
	return [][]byte{bucketMeta, bucketLessons, bucketLessonIndex, bucketDownloads, bucketBookmarks, bucketSession}
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *CacheStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *CacheStore) get(bucket []byte, key string, dest interface{}) bool {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *CacheStore) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		return b.Put([]byte(key), data)
	})
}

func (s *CacheStore) delete(bucket []byte, key string) {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b != nil {
			b.Delete([]byte(key))
		}
		return nil
	})
}

func (s *CacheStore) clearBucket(bucket []byte) {
	s.mu.Lock()
	prefix := string(bucket) + ":"
	for k := range s.cache {
		if strings.HasPrefix(k, prefix) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func seriesKey(seriesID int) string { return "series:" + strconv.Itoa(seriesID) }

// === Metadata collections ===

func (s *CacheStore) GetThemes() ([]domain.Theme, bool) {
	var themes []domain.Theme
	ok := s.get(bucketMeta, keyThemes, &themes)
	return themes, ok
}

func (s *CacheStore) SaveThemes(themes []domain.Theme) error {
	return s.set(bucketMeta, keyThemes, themes)
}

func (s *CacheStore) GetAuthors() ([]domain.Author, bool) {
	var authors []domain.Author
	ok := s.get(bucketMeta, keyAuthors, &authors)
	return authors, ok
}

func (s *CacheStore) SaveAuthors(authors []domain.Author) error {
	return s.set(bucketMeta, keyAuthors, authors)
}

func (s *CacheStore) GetBooks() ([]domain.Book, bool) {
	var books []domain.Book
	ok := s.get(bucketMeta, keyBooks, &books)
	return books, ok
}

func (s *CacheStore) SaveBooks(books []domain.Book) error {
	return s.set(bucketMeta, keyBooks, books)
}

func (s *CacheStore) GetTeachers() ([]domain.Teacher, bool) {
	var teachers []domain.Teacher
	ok := s.get(bucketMeta, keyTeachers, &teachers)
	return teachers, ok
}

func (s *CacheStore) SaveTeachers(teachers []domain.Teacher) error {
	return s.set(bucketMeta, keyTeachers, teachers)
}

func (s *CacheStore) GetSeries() ([]domain.Series, bool) {
	var series []domain.Series
	ok := s.get(bucketMeta, keySeries, &series)
	return series, ok
}

func (s *CacheStore) SaveSeries(series []domain.Series) error {
	return s.set(bucketMeta, keySeries, series)
}

// === Lessons ===

func (s *CacheStore) GetLessons(seriesID int) ([]domain.Lesson, bool) {
	var lessons []domain.Lesson
	ok := s.get(bucketLessons, seriesKey(seriesID), &lessons)
	return lessons, ok
}

// SaveLessons stores a series' lesson list and maintains the id index so
// GetLesson can resolve a lesson without knowing its series.
func (s *CacheStore) SaveLessons(seriesID int, lessons []domain.Lesson) error {
	if err := s.set(bucketLessons, seriesKey(seriesID), lessons); err != nil {
		return err
	}
	for _, lesson := range lessons {
		if err := s.set(bucketLessonIndex, strconv.Itoa(lesson.ID), seriesID); err != nil {
			return err
		}
	}
	return nil
}

func (s *CacheStore) GetLesson(lessonID int) (domain.Lesson, bool) {
	var seriesID int
	if !s.get(bucketLessonIndex, strconv.Itoa(lessonID), &seriesID) {
		return domain.Lesson{}, false
	}
	lessons, ok := s.GetLessons(seriesID)
	if !ok {
		return domain.Lesson{}, false
	}
	for _, lesson := range lessons {
		if lesson.ID == lessonID {
			return lesson, true
		}
	}
	return domain.Lesson{}, false
}

// === Download records ===

func (s *CacheStore) GetDownload(lessonID int) (domain.DownloadRecord, bool) {
	var rec domain.DownloadRecord
	ok := s.get(bucketDownloads, strconv.Itoa(lessonID), &rec)
	return rec, ok
}

func (s *CacheStore) SaveDownload(rec domain.DownloadRecord) error {
	return s.set(bucketDownloads, strconv.Itoa(rec.LessonID), rec)
}

func (s *CacheStore) DeleteDownload(lessonID int) {
	s.delete(bucketDownloads, strconv.Itoa(lessonID))
}

func (s *CacheStore) ListDownloads() ([]domain.DownloadRecord, error) {
	var recs []domain.DownloadRecord
	if s.db == nil {
		// Memory-only mode: scan the cache map
		s.mu.RLock()
		defer s.mu.RUnlock()
		prefix := string(bucketDownloads) + ":"
		for k, data := range s.cache {
			if !strings.HasPrefix(k, prefix) {
				continue
			}
			var rec domain.DownloadRecord
			if err := json.Unmarshal(data, &rec); err == nil {
				recs = append(recs, rec)
			}
		}
		return recs, nil
	}

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDownloads)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var rec domain.DownloadRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			recs = append(recs, rec)
			return nil
		})
	})
	return recs, err
}

// === Bookmarks ===

func (s *CacheStore) GetBookmarks(seriesID int) (map[int]domain.Bookmark, bool) {
	var bookmarks map[int]domain.Bookmark
	ok := s.get(bucketBookmarks, seriesKey(seriesID), &bookmarks)
	return bookmarks, ok
}

func (s *CacheStore) SaveBookmarks(seriesID int, bookmarks map[int]domain.Bookmark) error {
	return s.set(bucketBookmarks, seriesKey(seriesID), bookmarks)
}

// === Session ===

func (s *CacheStore) GetTokens() (domain.TokenPair, bool) {
	var pair domain.TokenPair
	ok := s.get(bucketSession, "tokens", &pair)
	if pair.AccessToken == "" {
		return domain.TokenPair{}, false
	}
	return pair, ok
}

func (s *CacheStore) SaveTokens(pair domain.TokenPair) error {
	return s.set(bucketSession, "tokens", pair)
}

func (s *CacheStore) ClearTokens() {
	s.delete(bucketSession, "tokens")
}

// === Sync bookkeeping ===

func (s *CacheStore) GetSyncState() (domain.SyncState, bool) {
	var state domain.SyncState
	ok := s.get(bucketMeta, keySyncState, &state)
	return state, ok
}

func (s *CacheStore) SaveSyncState(state domain.SyncState) error {
	return s.set(bucketMeta, keySyncState, state)
}

// HasData reports whether any metadata collection has been synced.
func (s *CacheStore) HasData() bool {
	if themes, ok := s.GetThemes(); ok && len(themes) > 0 {
		return true
	}
	if series, ok := s.GetSeries(); ok && len(series) > 0 {
		return true
	}
	return false
}

// === Invalidation ===

func (s *CacheStore) InvalidateLessons(seriesID int) {
	s.delete(bucketLessons, seriesKey(seriesID))
}

// InvalidateMetadata wipes synced metadata (collections + lessons) while
// leaving download records and the session untouched.
func (s *CacheStore) InvalidateMetadata() {
	for _, key := range []string{keyThemes, keyAuthors, keyBooks, keyTeachers, keySeries, keySyncState} {
		s.delete(bucketMeta, key)
	}
	s.clearBucket(bucketLessons)
	s.clearBucket(bucketLessonIndex)
}

// InvalidateAll wipes metadata and bookmark mirrors. Download records stay:
// they describe files on disk that a cache clear must not orphan, and the
// session stays so a resync can authenticate.
func (s *CacheStore) InvalidateAll() {
	s.InvalidateMetadata()
	s.clearBucket(bucketBookmarks)
}
