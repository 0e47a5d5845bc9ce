package tui

import (
	"time"

	"github.com/muwahhidun/durus/internal/domain"
	"github.com/muwahhidun/durus/internal/download"
	"github.com/muwahhidun/durus/internal/sync"
)

// ErrMsg carries an error into the update loop.
type ErrMsg struct {
	Err     error
	Context string
}

func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// SyncStartedMsg signals that a catalog sync kicked off.
type SyncStartedMsg struct{}

// SyncDoneMsg signals that a catalog sync finished.
type SyncDoneMsg struct {
	Result sync.Result
	Err    error
}

// ThemesLoadedMsg delivers the cached theme list.
type ThemesLoadedMsg struct {
	Themes []domain.Theme
}

// SeriesLoadedMsg delivers the series for the selected theme.
type SeriesLoadedMsg struct {
	ThemeID int
	Series  []domain.Series
}

// LessonsLoadedMsg delivers the lessons for the selected series.
type LessonsLoadedMsg struct {
	SeriesID int
	Lessons  []domain.Lesson
}

// BookmarksLoadedMsg delivers the bookmark view for a series.
type BookmarksLoadedMsg struct {
	SeriesID  int
	Bookmarks map[int]domain.Bookmark
}

// BookmarkToggledMsg reports the server's answer to a toggle.
type BookmarkToggledMsg struct {
	SeriesID int
	LessonID int
	Action   string
}

// DownloadProgressMsg carries one progress event; the listener re-arms
// itself until the channel closes.
type DownloadProgressMsg struct {
	Progress download.Progress
	ch       <-chan download.Progress
}

// DownloadGoneMsg signals that a local download was deleted.
type DownloadGoneMsg struct {
	LessonID int
}

// TestLoadedMsg delivers a test definition ready to be started.
type TestLoadedMsg struct {
	Test *domain.Test
}

// AttemptStartedMsg signals that the quiz attempt is live.
type AttemptStartedMsg struct{}

// AttemptDoneMsg delivers the scored attempt.
type AttemptDoneMsg struct {
	Attempt *domain.Attempt
}

// QuizTickMsg drives the per-question countdown.
type QuizTickMsg struct {
	At time.Time
}

// PlaybackStartedMsg signals that the external player launched.
type PlaybackStartedMsg struct {
	LessonID int
}

// StatusMsg sets a transient status bar message.
type StatusMsg struct {
	Message string
	IsError bool
}

// ClearStatusMsg clears the status bar.
type ClearStatusMsg struct{}
