package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muwahhidun/durus/internal/domain"
	"github.com/muwahhidun/durus/internal/download"
	"github.com/muwahhidun/durus/internal/quiz"
)

type viewState int

const (
	viewBrowse viewState = iota
	viewQuiz
	viewHelp
)

type browseLevel int

const (
	levelThemes browseLevel = iota
	levelSeries
	levelLessons
)

type quizPhase int

const (
	quizIntro quizPhase = iota
	quizQuestion
	quizResult
)

// Model is the root bubbletea model.
type Model struct {
	svc  Services
	keys KeyMap

	width  int
	height int

	view  viewState
	level browseLevel

	themes  []domain.Theme
	series  []domain.Series
	lessons []domain.Lesson
	cursor  [3]int

	selectedTheme  domain.Theme
	selectedSeries domain.Series

	bookmarks   map[int]domain.Bookmark
	downloading map[int]download.Progress

	filter    textinput.Model
	filtering bool

	spinner spinner.Model
	syncing bool

	phase     quizPhase
	remaining time.Duration

	status    string
	statusErr bool
}

func NewModel(svc Services) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	ti := textinput.New()
	ti.Placeholder = "filter lessons and series"
	ti.CharLimit = 64

	return Model{
		svc:         svc,
		keys:        Keys,
		filter:      ti,
		spinner:     sp,
		bookmarks:   make(map[int]domain.Bookmark),
		downloading: make(map[int]download.Progress),
	}
}

func (m Model) Init() tea.Cmd {
	if m.svc.Sync.NeedsInitialSync() {
		m.syncing = true
		return tea.Batch(m.spinner.Tick, func() tea.Msg { return SyncStartedMsg{} }, syncCmd(m.svc))
	}
	return loadThemesCmd(m.svc)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.syncing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SyncStartedMsg:
		m.syncing = true
		return m, m.spinner.Tick

	case SyncDoneMsg:
		m.syncing = false
		if msg.Err != nil {
			m.setStatus("sync failed: "+msg.Err.Error(), true)
			if !m.svc.Store.HasData() {
				return m, clearStatusAfter(5 * time.Second)
			}
			return m, tea.Batch(loadThemesCmd(m.svc), clearStatusAfter(5*time.Second))
		}
		m.svc.Search.BuildFromStore(m.svc.Store)
		m.setStatus(fmt.Sprintf("synced %d items", msg.Result.ItemsSynced), false)
		return m, tea.Batch(loadThemesCmd(m.svc), clearStatusAfter(3*time.Second))

	case ThemesLoadedMsg:
		m.themes = msg.Themes
		if m.svc.Search.Count() == 0 {
			m.svc.Search.BuildFromStore(m.svc.Store)
		}
		return m, nil

	case SeriesLoadedMsg:
		m.series = msg.Series
		return m, nil

	case LessonsLoadedMsg:
		m.lessons = msg.Lessons
		return m, nil

	case BookmarksLoadedMsg:
		if msg.SeriesID == m.selectedSeries.ID {
			m.bookmarks = msg.Bookmarks
		}
		return m, nil

	case BookmarkToggledMsg:
		m.setStatus("bookmark "+msg.Action, false)
		return m, tea.Batch(loadBookmarksCmd(m.svc, msg.SeriesID), clearStatusAfter(2*time.Second))

	case DownloadProgressMsg:
		p := msg.Progress
		switch p.Status {
		case domain.DownloadCompleted:
			delete(m.downloading, p.LessonID)
			m.setStatus("download complete", false)
			return m, tea.Batch(listenDownload(msg.ch), clearStatusAfter(2*time.Second))
		case domain.DownloadFailed:
			delete(m.downloading, p.LessonID)
			if errors.Is(p.Err, domain.ErrDownloadCancelled) {
				m.setStatus("download cancelled", false)
				return m, tea.Batch(listenDownload(msg.ch), clearStatusAfter(2*time.Second))
			}
			m.setStatus("download failed: "+p.Err.Error(), true)
			return m, tea.Batch(listenDownload(msg.ch), clearStatusAfter(4*time.Second))
		default:
			m.downloading[p.LessonID] = p
			return m, listenDownload(msg.ch)
		}

	case DownloadGoneMsg:
		delete(m.downloading, msg.LessonID)
		m.setStatus("download deleted", false)
		return m, clearStatusAfter(2 * time.Second)

	case TestLoadedMsg:
		m.view = viewQuiz
		m.phase = quizIntro
		return m, nil

	case AttemptStartedMsg:
		m.phase = quizQuestion
		m.remaining = m.svc.Quiz.Test().TimePerQuestion()
		return m, quizTickCmd()

	case QuizTickMsg:
		if m.view != viewQuiz || m.phase != quizQuestion {
			return m, nil
		}
		m.remaining = m.svc.Quiz.Remaining(msg.At)
		if m.remaining <= 0 {
			return m, tea.Batch(expireCmd(m.svc), quizTickCmd())
		}
		return m, quizTickCmd()

	case AttemptDoneMsg:
		m.phase = quizResult
		return m, nil

	case PlaybackStartedMsg:
		m.setStatus("player launched", false)
		return m, clearStatusAfter(2 * time.Second)

	case StatusMsg:
		m.setStatus(msg.Message, msg.IsError)
		return m, clearStatusAfter(3 * time.Second)

	case ClearStatusMsg:
		m.status = ""
		m.statusErr = false
		return m, nil

	case ErrMsg:
		m.setStatus(msg.Error(), true)
		return m, clearStatusAfter(5 * time.Second)
	}

	return m, nil
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		return m.handleFilterKey(msg)
	}
	if m.view == viewQuiz {
		return m.handleQuizKey(msg)
	}
	if m.view == viewHelp {
		m.view = viewBrowse
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.view = viewHelp
		return m, nil

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.filter.SetValue("")
		m.filter.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Sync):
		if m.syncing {
			return m, nil
		}
		m.syncing = true
		return m, tea.Batch(m.spinner.Tick, syncCmd(m.svc))

	case key.Matches(msg, m.keys.Up):
		if m.cursor[m.level] > 0 {
			m.cursor[m.level]--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor[m.level] < m.listLen()-1 {
			m.cursor[m.level]++
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		return m.descend()

	case key.Matches(msg, m.keys.Back):
		return m.ascend()
	}

	if m.level == levelLessons {
		return m.handleLessonKey(msg)
	}
	if m.level == levelSeries && key.Matches(msg, m.keys.Test) {
		if s, ok := m.selectedSeriesAtCursor(); ok {
			return m, loadTestCmd(m.svc, s.ID)
		}
	}
	return m, nil
}

func (m Model) handleLessonKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	lesson, ok := m.currentLesson()
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Play):
		if !lesson.HasAudio() {
			m.setStatus("lesson has no audio", true)
			return m, clearStatusAfter(2 * time.Second)
		}
		return m, playCmd(m.svc, lesson)

	case key.Matches(msg, m.keys.Download):
		if !lesson.HasAudio() {
			m.setStatus("lesson has no audio", true)
			return m, clearStatusAfter(2 * time.Second)
		}
		return m, startDownloadCmd(m.svc, lesson)

	case key.Matches(msg, m.keys.Cancel):
		if m.svc.Downloads.Cancel(lesson.ID) {
			m.setStatus("cancelling download", false)
			return m, clearStatusAfter(2 * time.Second)
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		return m, deleteDownloadCmd(m.svc, lesson.ID)

	case key.Matches(msg, m.keys.Bookmark):
		return m, toggleBookmarkCmd(m.svc, m.selectedSeries.ID, lesson.ID)

	case key.Matches(msg, m.keys.Test):
		return m, loadTestCmd(m.svc, m.selectedSeries.ID)
	}
	return m, nil
}

func (m Model) handleQuizKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.phase {
	case quizIntro:
		switch {
		case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Quit):
			m.view = viewBrowse
			return m, nil
		case key.Matches(msg, m.keys.Enter):
			return m, startAttemptCmd(m.svc)
		}

	case quizQuestion:
		switch {
		case key.Matches(msg, m.keys.Option1):
			return m, m.selectOption(0)
		case key.Matches(msg, m.keys.Option2):
			return m, m.selectOption(1)
		case key.Matches(msg, m.keys.Option3):
			return m, m.selectOption(2)
		case key.Matches(msg, m.keys.Option4):
			return m, m.selectOption(3)
		case key.Matches(msg, m.keys.Enter):
			if _, ok := m.svc.Quiz.Selected(); !ok {
				m.setStatus("select an answer first", true)
				return m, clearStatusAfter(2 * time.Second)
			}
			return m, advanceCmd(m.svc)
		}

	case quizResult:
		m.view = viewBrowse
		return m, nil
	}
	return m, nil
}

func (m *Model) selectOption(option int) tea.Cmd {
	if err := m.svc.Quiz.Select(option); err != nil {
		if errors.Is(err, quiz.ErrBadSelection) {
			return nil
		}
		m.setStatus(err.Error(), true)
		return clearStatusAfter(2 * time.Second)
	}
	return nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	case tea.KeyEnter:
		// Jump to the top fuzzy hit's series.
		results := m.svc.Search.Search(m.filter.Value())
		m.filtering = false
		m.filter.Blur()
		if len(results) == 0 {
			m.setStatus("no matches", false)
			return m, clearStatusAfter(2 * time.Second)
		}
		return m.jumpTo(results[0].SeriesID)
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m Model) jumpTo(seriesID int) (tea.Model, tea.Cmd) {
	all, _ := m.svc.Store.GetSeries()
	for _, s := range all {
		if s.ID == seriesID {
			m.selectedSeries = s
			m.level = levelLessons
			m.cursor[levelLessons] = 0
			return m, tea.Batch(
				loadLessonsCmd(m.svc, s.ID),
				loadBookmarksCmd(m.svc, s.ID),
			)
		}
	}
	m.setStatus("match not in cache", true)
	return m, clearStatusAfter(2 * time.Second)
}

func (m Model) descend() (tea.Model, tea.Cmd) {
	switch m.level {
	case levelThemes:
		if len(m.themes) == 0 {
			return m, nil
		}
		m.selectedTheme = m.themes[m.cursor[levelThemes]]
		m.level = levelSeries
		m.cursor[levelSeries] = 0
		return m, loadSeriesCmd(m.svc, m.selectedTheme.ID)

	case levelSeries:
		s, ok := m.selectedSeriesAtCursor()
		if !ok {
			return m, nil
		}
		m.selectedSeries = s
		m.level = levelLessons
		m.cursor[levelLessons] = 0
		return m, tea.Batch(
			loadLessonsCmd(m.svc, s.ID),
			loadBookmarksCmd(m.svc, s.ID),
		)
	}
	return m, nil
}

func (m Model) ascend() (tea.Model, tea.Cmd) {
	switch m.level {
	case levelLessons:
		m.level = levelSeries
		m.lessons = nil
		m.bookmarks = make(map[int]domain.Bookmark)
	case levelSeries:
		m.level = levelThemes
		m.series = nil
	}
	return m, nil
}

func (m Model) selectedSeriesAtCursor() (domain.Series, bool) {
	if m.level != levelSeries && m.level != levelLessons {
		return domain.Series{}, false
	}
	i := m.cursor[levelSeries]
	if i < 0 || i >= len(m.series) {
		return domain.Series{}, false
	}
	return m.series[i], true
}

func (m Model) currentLesson() (domain.Lesson, bool) {
	i := m.cursor[levelLessons]
	if i < 0 || i >= len(m.lessons) {
		return domain.Lesson{}, false
	}
	return m.lessons[i], true
}

func (m Model) listLen() int {
	switch m.level {
	case levelThemes:
		return len(m.themes)
	case levelSeries:
		return len(m.series)
	default:
		return len(m.lessons)
	}
}
