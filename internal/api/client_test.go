package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/muwahhidun/durus/internal/api"
	"github.com/muwahhidun/durus/internal/domain"
)

// staticTokens is a TokenSource with a fixed token and a counted refresh.
type staticTokens struct {
	access    string
	refreshed atomic.Int32
	refreshOK bool
}

func (s *staticTokens) AccessToken() string { return s.access }

func (s *staticTokens) RefreshAccess(context.Context) (string, error) {
	s.refreshed.Add(1)
	if !s.refreshOK {
		return "", domain.ErrAuthFailed
	}
	s.access = "fresh-token"
	return s.access, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestGetThemesPagination(t *testing.T) {
	r := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.Equal("/api/themes", req.URL.Path)
		skip, _ := strconv.Atoi(req.URL.Query().Get("skip"))
		writeJSON(w, map[string]interface{}{
			"items": []map[string]interface{}{
				{"id": skip + 1, "name": fmt.Sprintf("Theme %d", skip+1), "is_active": true},
			},
			"total": 5,
			"skip":  skip,
			"limit": 1,
		})
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, "/api", nil)

	themes, total, err := client.GetThemes(context.Background(), 2, 1)
	r.NoError(err)
	r.Equal(5, total)
	r.Len(themes, 1)
	r.Equal(3, themes[0].ID)
	r.Equal("Theme 3", themes[0].Name)
}

func TestSeriesLessonsBareList(t *testing.T) {
	r := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.Equal("/api/series/7/lessons", req.URL.Path)
		writeJSON(w, []map[string]interface{}{
			{"id": 70, "lesson_number": 1, "display_title": "First", "audio_url": "/api/lessons/70/audio"},
			{"id": 71, "lesson_number": 2, "display_title": "Second"},
		})
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, "/api", nil)

	lessons, err := client.GetSeriesLessons(context.Background(), 7)
	r.NoError(err)
	r.Len(lessons, 2)
	// The payload has no series id; the client leaves it zero for injection.
	r.Equal(0, lessons[0].SeriesID)
	r.Equal(70, lessons[0].ID)
}

func TestStatusMapping(t *testing.T) {
	r := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/api/themes":
			w.WriteHeader(http.StatusNotFound)
		case "/api/books":
			w.WriteHeader(http.StatusUnprocessableEntity)
			writeJSON(w, map[string]string{"detail": "bad input"})
		}
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, "/api", nil)

	_, _, err := client.GetThemes(context.Background(), 0, 10)
	r.ErrorIs(err, domain.ErrNotFound)

	_, _, err = client.GetBooks(context.Background(), 0, 10)
	r.ErrorIs(err, domain.ErrValidation)
	r.Contains(err.Error(), "bad input")
}

func TestOfflineServer(t *testing.T) {
	r := require.New(t)

	client := api.NewClient("http://127.0.0.1:1", "/api", nil)
	_, _, err := client.GetThemes(context.Background(), 0, 10)
	r.ErrorIs(err, domain.ErrServerOffline)
}

func TestSingleRefreshRetry(t *testing.T) {
	r := require.New(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		if req.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]interface{}{"items": []interface{}{}, "total": 0, "skip": 0, "limit": 10})
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, "/api", nil)
	tokens := &staticTokens{access: "stale-token", refreshOK: true}
	client.SetTokenSource(tokens)

	_, total, err := client.GetThemes(context.Background(), 0, 10)
	r.NoError(err)
	r.Equal(0, total)
	r.Equal(int32(1), tokens.refreshed.Load())
	r.Equal(int32(2), calls.Load())
}

func TestRefreshFailureSurfacesAuthError(t *testing.T) {
	r := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, "/api", nil)
	tokens := &staticTokens{access: "stale-token", refreshOK: false}
	client.SetTokenSource(tokens)

	_, _, err := client.GetThemes(context.Background(), 0, 10)
	r.ErrorIs(err, domain.ErrAuthFailed)
	r.Equal(int32(1), tokens.refreshed.Load())
}

func TestToggleBookmark(t *testing.T) {
	r := require.New(t)

	toggled := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.Equal("/api/bookmarks/toggle", req.URL.Path)
		r.Equal(http.MethodPost, req.Method)

		var body map[string]interface{}
		json.NewDecoder(req.Body).Decode(&body)
		r.EqualValues(42, body["lesson_id"])

		if !toggled {
			toggled = true
			writeJSON(w, map[string]interface{}{
				"action":   "added",
				"bookmark": map[string]interface{}{"id": 1, "lesson_id": 42},
			})
			return
		}
		writeJSON(w, map[string]interface{}{"action": "removed"})
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, "/api", nil)

	action, bm, err := client.ToggleBookmark(context.Background(), 42, "")
	r.NoError(err)
	r.Equal("added", action)
	r.NotNil(bm)
	r.Equal(42, bm.LessonID)

	action, bm, err = client.ToggleBookmark(context.Background(), 42, "")
	r.NoError(err)
	r.Equal("removed", action)
	r.Nil(bm)
}

func TestSubmitAttemptWireFormat(t *testing.T) {
	r := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.Equal("/api/tests/attempts/9/submit", req.URL.Path)

		var body struct {
			Answers          map[string]int `json:"answers"`
			TimeSpentSeconds int            `json:"time_spent_seconds"`
		}
		r.NoError(json.NewDecoder(req.Body).Decode(&body))
		r.Equal(map[string]int{"1": 2, "2": -1}, body.Answers)
		r.Equal(55, body.TimeSpentSeconds)

		writeJSON(w, map[string]interface{}{
			"id": 9, "test_id": 3, "score": 5, "max_score": 10,
			"passed": false, "time_spent_seconds": 55,
		})
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, "/api", nil)

	attempt, err := client.SubmitAttempt(context.Background(), 9, map[int]int{1: 2, 2: -1}, 55)
	r.NoError(err)
	r.Equal(5, attempt.Score)
	r.False(attempt.Passed)
}

func TestFetchAudioResume(t *testing.T) {
	r := require.New(t)

	payload := []byte("0123456789")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if rng := req.Header.Get("Range"); rng == "bytes=4-" {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes 4-9/%d", len(payload)))
			w.WriteHeader(http.StatusPartialContent)
			w.Write(payload[4:])
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, "", nil)

	body, total, resumed, err := client.FetchAudio(context.Background(), "/audio", 4)
	r.NoError(err)
	defer body.Close()
	r.True(resumed)
	r.Equal(int64(10), total)

	rest, err := io.ReadAll(body)
	r.NoError(err)
	r.Equal("456789", string(rest))
}

func TestFetchAudioMissing(t *testing.T) {
	r := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, "", nil)
	_, _, _, err := client.FetchAudio(context.Background(), "/audio", 0)
	r.ErrorIs(err, domain.ErrNotFound)
}

func TestAbsoluteURL(t *testing.T) {
	r := require.New(t)
	client := api.NewClient("https://lessons.example.com/", "/api", nil)

	r.Equal("https://lessons.example.com/api/lessons/7/audio",
		client.AbsoluteURL("/api/lessons/7/audio"))
	r.Equal("https://cdn.example.com/x.mp3",
		client.AbsoluteURL("https://cdn.example.com/x.mp3"))
}
