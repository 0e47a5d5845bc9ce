package search_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/muwahhidun/durus/internal/domain"
	"github.com/muwahhidun/durus/internal/search"
	"github.com/muwahhidun/durus/internal/store"
)

func seededStore(t *testing.T) *store.CacheStore {
	t.Helper()
	r := require.New(t)

	cache, err := store.NewCacheStore("", "")
	r.NoError(err)

	r.NoError(cache.SaveSeries([]domain.Series{
		{ID: 1, Name: "Explanation of Kitab at-Tawhid", Year: 2020, TeacherName: "Teacher One"},
		{ID: 2, Name: "Usul al-Fiqh Primer", Year: 2021, TeacherName: "Teacher Two"},
	}))
	r.NoError(cache.SaveLessons(1, []domain.Lesson{
		{ID: 10, SeriesID: 1, LessonNumber: 1},
		{ID: 11, SeriesID: 1, LessonNumber: 2},
	}))
	r.NoError(cache.SaveLessons(2, []domain.Lesson{
		{ID: 20, SeriesID: 2, Title: "Introduction to Usul"},
	}))
	return cache
}

func TestBuildFromStore(t *testing.T) {
	r := require.New(t)

	idx := search.NewIndex(nil)
	idx.BuildFromStore(seededStore(t))

	// 2 series + 3 lessons
	r.Equal(5, idx.Count())
}

func TestSearchFindsSeries(t *testing.T) {
	r := require.New(t)

	idx := search.NewIndex(nil)
	idx.BuildFromStore(seededStore(t))

	results := idx.Search("tawhid")
	r.NotEmpty(results)
	r.Equal(search.KindSeries, results[0].Kind)
	r.Equal(1, results[0].SeriesID)
}

func TestSearchRanksExactPrefixFirst(t *testing.T) {
	r := require.New(t)

	idx := search.NewIndex(nil)
	idx.BuildFromStore(seededStore(t))

	results := idx.Search("introduction")
	r.NotEmpty(results)
	r.Equal(search.KindLesson, results[0].Kind)
	r.Equal(20, results[0].LessonID)
	r.Equal(2, results[0].SeriesID)
}

func TestSearchEmptyQuery(t *testing.T) {
	r := require.New(t)

	idx := search.NewIndex(nil)
	idx.BuildFromStore(seededStore(t))

	r.Nil(idx.Search(""))
	r.Nil(idx.Search("   "))
}

func TestSearchNoMatch(t *testing.T) {
	r := require.New(t)

	idx := search.NewIndex(nil)
	idx.BuildFromStore(seededStore(t))

	r.Empty(idx.Search("zzzzqqqq"))
}

func TestClearAndRebuild(t *testing.T) {
	r := require.New(t)

	cache := seededStore(t)
	idx := search.NewIndex(nil)
	idx.BuildFromStore(cache)
	r.NotZero(idx.Count())

	idx.Clear()
	r.Zero(idx.Count())

	idx.BuildFromStore(cache)
	r.Equal(5, idx.Count())
}
