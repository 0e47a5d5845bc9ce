package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muwahhidun/durus/internal/api"
	"github.com/muwahhidun/durus/internal/bookmark"
	"github.com/muwahhidun/durus/internal/domain"
	"github.com/muwahhidun/durus/internal/download"
	"github.com/muwahhidun/durus/internal/player"
	"github.com/muwahhidun/durus/internal/quiz"
	"github.com/muwahhidun/durus/internal/search"
	"github.com/muwahhidun/durus/internal/session"
	"github.com/muwahhidun/durus/internal/sync"
)

// Services bundles everything the TUI drives. The composition root wires it.
type Services struct {
	Store     domain.Store
	Client    *api.Client
	Session   *session.Manager
	Sync      *sync.Engine
	Downloads *download.Manager
	Bookmarks *bookmark.Reconciler
	Quiz      *quiz.Engine
	Search    *search.Index
	Player    *player.Launcher
}

func syncCmd(svc Services) tea.Cmd {
	return func() tea.Msg {
		res, err := svc.Sync.SyncAll(context.Background())
		return SyncDoneMsg{Result: res, Err: err}
	}
}

func loadThemesCmd(svc Services) tea.Cmd {
	return func() tea.Msg {
		themes, _ := svc.Store.GetThemes()
		return ThemesLoadedMsg{Themes: themes}
	}
}

func loadSeriesCmd(svc Services, themeID int) tea.Cmd {
	return func() tea.Msg {
		all, _ := svc.Store.GetSeries()
		var filtered []domain.Series
		for _, s := range all {
			if themeID == 0 || s.ThemeID == themeID {
				filtered = append(filtered, s)
			}
		}
		return SeriesLoadedMsg{ThemeID: themeID, Series: filtered}
	}
}

func loadLessonsCmd(svc Services, seriesID int) tea.Cmd {
	return func() tea.Msg {
		lessons, _ := svc.Store.GetLessons(seriesID)
		return LessonsLoadedMsg{SeriesID: seriesID, Lessons: lessons}
	}
}

func loadBookmarksCmd(svc Services, seriesID int) tea.Cmd {
	return func() tea.Msg {
		bookmarks, err := svc.Bookmarks.Load(context.Background(), seriesID)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading bookmarks"}
		}
		return BookmarksLoadedMsg{SeriesID: seriesID, Bookmarks: bookmarks}
	}
}

func toggleBookmarkCmd(svc Services, seriesID, lessonID int) tea.Cmd {
	return func() tea.Msg {
		action, err := svc.Bookmarks.Toggle(context.Background(), seriesID, lessonID, "")
		if err != nil {
			return ErrMsg{Err: err, Context: "toggling bookmark"}
		}
		return BookmarkToggledMsg{SeriesID: seriesID, LessonID: lessonID, Action: action}
	}
}

func startDownloadCmd(svc Services, lesson domain.Lesson) tea.Cmd {
	return func() tea.Msg {
		ch, err := svc.Downloads.Download(context.Background(), lesson)
		if err != nil {
			return ErrMsg{Err: err, Context: "starting download"}
		}
		return listenDownload(ch)()
	}
}

// listenDownload waits for the next progress event and re-arms via the
// message so the channel drains until it closes.
func listenDownload(ch <-chan download.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return DownloadProgressMsg{Progress: p, ch: ch}
	}
}

func deleteDownloadCmd(svc Services, lessonID int) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Downloads.Delete(lessonID); err != nil {
			return ErrMsg{Err: err, Context: "deleting download"}
		}
		return DownloadGoneMsg{LessonID: lessonID}
	}
}

func loadTestCmd(svc Services, seriesID int) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Quiz.LoadBySeries(context.Background(), seriesID); err != nil {
			return ErrMsg{Err: err, Context: "loading test"}
		}
		return TestLoadedMsg{Test: svc.Quiz.Test()}
	}
}

func startAttemptCmd(svc Services) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Quiz.Start(context.Background(), 0); err != nil {
			return ErrMsg{Err: err, Context: "starting attempt"}
		}
		return AttemptStartedMsg{}
	}
}

func advanceCmd(svc Services) tea.Cmd {
	return func() tea.Msg {
		attempt, err := svc.Quiz.Advance(context.Background())
		if err != nil {
			return ErrMsg{Err: err, Context: "submitting answer"}
		}
		if attempt != nil {
			return AttemptDoneMsg{Attempt: attempt}
		}
		return nil
	}
}

func expireCmd(svc Services) tea.Cmd {
	return func() tea.Msg {
		attempt, err := svc.Quiz.Expire(context.Background())
		if err != nil {
			return ErrMsg{Err: err, Context: "question timeout"}
		}
		if attempt != nil {
			return AttemptDoneMsg{Attempt: attempt}
		}
		return nil
	}
}

func quizTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return QuizTickMsg{At: t}
	})
}

func playCmd(svc Services, lesson domain.Lesson) tea.Cmd {
	return func() tea.Msg {
		target := svc.Client.AbsoluteURL(lesson.AudioURL)
		if svc.Downloads.IsDownloaded(lesson.ID) {
			target = svc.Downloads.Path(lesson.ID)
		}
		if err := svc.Player.Launch(target, 0); err != nil {
			return ErrMsg{Err: err, Context: "launching player"}
		}
		return PlaybackStartedMsg{LessonID: lesson.ID}
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
