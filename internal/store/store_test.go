package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/muwahhidun/durus/internal/domain"
	"github.com/muwahhidun/durus/internal/store"
)

type CacheStoreSuite struct {
	suite.Suite
	store *store.CacheStore
}

func TestCacheStore(t *testing.T) {
	suite.Run(t, new(CacheStoreSuite))
}

func (s *CacheStoreSuite) SetupTest() {
	cs, err := store.NewCacheStore(s.T().TempDir(), "https://lessons.example.com")
	require.NoError(s.T(), err)
	s.store = cs
}

func (s *CacheStoreSuite) TearDownTest() {
	s.store.Close()
}

func (s *CacheStoreSuite) TestThemesRoundTrip() {
	r := require.New(s.T())

	_, ok := s.store.GetThemes()
	r.False(ok)

	themes := []domain.Theme{
		{ID: 1, Name: "Aqidah", SortOrder: 1, IsActive: true},
		{ID: 2, Name: "Fiqh", SortOrder: 2, IsActive: true},
	}
	r.NoError(s.store.SaveThemes(themes))

	got, ok := s.store.GetThemes()
	r.True(ok)
	r.Equal(themes, got)
}

func (s *CacheStoreSuite) TestLessonsKeyedBySeries() {
	r := require.New(s.T())

	lessonsA := []domain.Lesson{
		{ID: 10, SeriesID: 1, LessonNumber: 1, Title: "Intro"},
		{ID: 11, SeriesID: 1, LessonNumber: 2, Title: "Continued"},
	}
	lessonsB := []domain.Lesson{
		{ID: 20, SeriesID: 2, LessonNumber: 1, Title: "Other"},
	}
	r.NoError(s.store.SaveLessons(1, lessonsA))
	r.NoError(s.store.SaveLessons(2, lessonsB))

	got, ok := s.store.GetLessons(1)
	r.True(ok)
	r.Equal(lessonsA, got)

	got, ok = s.store.GetLessons(2)
	r.True(ok)
	r.Equal(lessonsB, got)

	_, ok = s.store.GetLessons(3)
	r.False(ok)
}

func (s *CacheStoreSuite) TestGetLessonResolvesAcrossSeries() {
	r := require.New(s.T())

	r.NoError(s.store.SaveLessons(1, []domain.Lesson{{ID: 10, SeriesID: 1, Title: "A"}}))
	r.NoError(s.store.SaveLessons(2, []domain.Lesson{{ID: 20, SeriesID: 2, Title: "B"}}))

	lesson, ok := s.store.GetLesson(20)
	r.True(ok)
	r.Equal("B", lesson.Title)
	r.Equal(2, lesson.SeriesID)

	_, ok = s.store.GetLesson(99)
	r.False(ok)
}

func (s *CacheStoreSuite) TestDownloadRecords() {
	r := require.New(s.T())

	rec := domain.DownloadRecord{
		LessonID:     10,
		Path:         "/tmp/lesson_10.mp3",
		SizeBytes:    1024,
		Status:       domain.DownloadCompleted,
		DownloadedAt: time.Now().Truncate(time.Second),
	}
	r.NoError(s.store.SaveDownload(rec))

	got, ok := s.store.GetDownload(10)
	r.True(ok)
	r.Equal(rec.Path, got.Path)
	r.Equal(domain.DownloadCompleted, got.Status)

	r.NoError(s.store.SaveDownload(domain.DownloadRecord{LessonID: 11, Status: domain.DownloadInProgress}))

	recs, err := s.store.ListDownloads()
	r.NoError(err)
	r.Len(recs, 2)

	s.store.DeleteDownload(10)
	_, ok = s.store.GetDownload(10)
	r.False(ok)
}

func (s *CacheStoreSuite) TestTokens() {
	r := require.New(s.T())

	_, ok := s.store.GetTokens()
	r.False(ok)

	pair := domain.TokenPair{AccessToken: "access", RefreshToken: "refresh"}
	r.NoError(s.store.SaveTokens(pair))

	got, ok := s.store.GetTokens()
	r.True(ok)
	r.Equal(pair, got)

	s.store.ClearTokens()
	_, ok = s.store.GetTokens()
	r.False(ok)
}

func (s *CacheStoreSuite) TestHasData() {
	r := require.New(s.T())

	r.False(s.store.HasData())
	r.NoError(s.store.SaveThemes([]domain.Theme{{ID: 1, Name: "Aqidah"}}))
	r.True(s.store.HasData())
}

func (s *CacheStoreSuite) TestInvalidateMetadataKeepsDownloadsAndSession() {
	r := require.New(s.T())

	r.NoError(s.store.SaveThemes([]domain.Theme{{ID: 1, Name: "Aqidah"}}))
	r.NoError(s.store.SaveLessons(1, []domain.Lesson{{ID: 10, SeriesID: 1}}))
	r.NoError(s.store.SaveDownload(domain.DownloadRecord{LessonID: 10, Status: domain.DownloadCompleted}))
	r.NoError(s.store.SaveTokens(domain.TokenPair{AccessToken: "a", RefreshToken: "r"}))

	s.store.InvalidateMetadata()

	r.False(s.store.HasData())
	_, ok := s.store.GetLessons(1)
	r.False(ok)
	_, ok = s.store.GetLesson(10)
	r.False(ok)

	_, ok = s.store.GetDownload(10)
	r.True(ok)
	_, ok = s.store.GetTokens()
	r.True(ok)
}

func (s *CacheStoreSuite) TestInvalidateAllWipesBookmarks() {
	r := require.New(s.T())

	r.NoError(s.store.SaveBookmarks(1, map[int]domain.Bookmark{
		10: {ID: 1, LessonID: 10},
	}))
	r.NoError(s.store.SaveDownload(domain.DownloadRecord{LessonID: 10, Status: domain.DownloadCompleted}))

	s.store.InvalidateAll()

	_, ok := s.store.GetBookmarks(1)
	r.False(ok)
	_, ok = s.store.GetDownload(10)
	r.True(ok)
}

func (s *CacheStoreSuite) TestPersistsAcrossReopen() {
	r := require.New(s.T())

	dir := s.T().TempDir()
	first, err := store.NewCacheStore(dir, "https://lessons.example.com")
	r.NoError(err)
	r.NoError(first.SaveThemes([]domain.Theme{{ID: 1, Name: "Aqidah"}}))
	r.NoError(first.Close())

	second, err := store.NewCacheStore(dir, "https://lessons.example.com")
	r.NoError(err)
	defer second.Close()

	themes, ok := second.GetThemes()
	r.True(ok)
	r.Len(themes, 1)
}

func TestMemoryOnlyMode(t *testing.T) {
	r := require.New(t)

	cs, err := store.NewCacheStore("", "")
	r.NoError(err)
	defer cs.Close()

	r.NoError(cs.SaveThemes([]domain.Theme{{ID: 1, Name: "Aqidah"}}))
	themes, ok := cs.GetThemes()
	r.True(ok)
	r.Len(themes, 1)

	r.NoError(cs.SaveDownload(domain.DownloadRecord{LessonID: 7, Status: domain.DownloadCompleted}))
	recs, err := cs.ListDownloads()
	r.NoError(err)
	r.Len(recs, 1)
}
