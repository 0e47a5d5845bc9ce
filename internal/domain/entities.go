package domain

import (
	"fmt"
	"time"
)

// Theme is a top-level subject area (e.g. Aqidah, Fiqh, Sirah).
type Theme struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SortOrder   int    `json:"sort_order"`
	IsActive    bool   `json:"is_active"`
}

// Author is a classical book author.
type Author struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Biography string `json:"biography,omitempty"`
	BirthYear int    `json:"birth_year,omitempty"`
	DeathYear int    `json:"death_year,omitempty"`
	IsActive  bool   `json:"is_active"`
}

// Lifespan returns the author's years as "(b-d)", or "" when unknown.
func (a Author) Lifespan() string {
	if a.BirthYear == 0 && a.DeathYear == 0 {
		return ""
	}
	return fmt.Sprintf("(%d-%d)", a.BirthYear, a.DeathYear)
}

// Book is a studied text, optionally tied to a theme and author.
type Book struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ThemeID     int    `json:"theme_id,omitempty"`
	AuthorID    int    `json:"author_id,omitempty"`
	SortOrder   int    `json:"sort_order"`
	IsActive    bool   `json:"is_active"`
}

// Teacher is a modern lecturer delivering lesson series.
type Teacher struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Biography string `json:"biography,omitempty"`
	IsActive  bool   `json:"is_active"`
}

// Series is a run of lessons over one book by one teacher.
type Series struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Year        int    `json:"year"`
	Description string `json:"description,omitempty"`
	TeacherID   int    `json:"teacher_id"`
	BookID      int    `json:"book_id,omitempty"`
	ThemeID     int    `json:"theme_id,omitempty"`
	TeacherName string `json:"teacher_name,omitempty"`
	BookName    string `json:"book_name,omitempty"`
	ThemeName   string `json:"theme_name,omitempty"`
	IsCompleted bool   `json:"is_completed"`
	IsActive    bool   `json:"is_active"`
	Order       int    `json:"order"`
	LessonCount int    `json:"lesson_count,omitempty"`
}

// DisplayName renders the series the way lists show it: "Teacher - Year - Name".
func (s Series) DisplayName() string {
	name := fmt.Sprintf("%d - %s", s.Year, s.Name)
	if s.TeacherName != "" {
		name = s.TeacherName + " - " + name
	}
	return name
}

// Lesson is a single audio lesson within a series.
//
// SeriesID is not part of the per-series listing payload; the sync engine
// injects it before the lesson is cached. A zero SeriesID therefore marks a
// record that bypassed sync and must not be trusted for series lookups.
type Lesson struct {
	ID              int    `json:"id"`
	SeriesID        int    `json:"series_id"`
	LessonNumber    int    `json:"lesson_number"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	AudioURL        string `json:"audio_url,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Tags            string `json:"tags,omitempty"`
	TeacherID       int    `json:"teacher_id,omitempty"`
	BookID          int    `json:"book_id,omitempty"`
	ThemeID         int    `json:"theme_id,omitempty"`
	TeacherName     string `json:"teacher_name,omitempty"`
	BookName        string `json:"book_name,omitempty"`
	IsActive        bool   `json:"is_active"`
}

// DisplayTitle returns "Lesson N" when a number is set, the raw title otherwise.
func (l Lesson) DisplayTitle() string {
	if l.LessonNumber > 0 {
		return fmt.Sprintf("Lesson %d", l.LessonNumber)
	}
	return l.Title
}

// FormattedDuration returns the duration in a human-readable format.
func (l Lesson) FormattedDuration() string {
	if l.DurationSeconds <= 0 {
		return ""
	}
	h := l.DurationSeconds / 3600
	m := (l.DurationSeconds % 3600) / 60
	s := l.DurationSeconds % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// HasAudio reports whether the lesson has a playable audio resource.
func (l Lesson) HasAudio() bool { return l.AudioURL != "" }

// Bookmark marks a lesson for quick return, unique per lesson for the
// signed-in user.
type Bookmark struct {
	ID         int       `json:"id"`
	LessonID   int       `json:"lesson_id"`
	CustomName string    `json:"custom_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// DownloadStatus tracks the lifecycle of a local audio copy.
type DownloadStatus string

const (
	DownloadPending    DownloadStatus = "pending"
	DownloadInProgress DownloadStatus = "downloading"
	DownloadCompleted  DownloadStatus = "completed"
	DownloadFailed     DownloadStatus = "failed"
)

// DownloadRecord is the persisted state of a lesson's local audio file.
// It is authoritative for "is downloaded" only when Status is completed
// and the file at Path still exists; callers re-check the filesystem.
type DownloadRecord struct {
	LessonID     int            `json:"lesson_id"`
	Path         string         `json:"path"`
	SizeBytes    int64          `json:"size_bytes"`
	Status       DownloadStatus `json:"status"`
	DownloadedAt time.Time      `json:"downloaded_at"`
}

// Test is a timed multiple-choice quiz attached to exactly one series,
// optionally scoped to a single lesson within it.
type Test struct {
	ID           int            `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	SeriesID     int            `json:"series_id"`
	TeacherID    int            `json:"teacher_id"`
	PassingScore int            `json:"passing_score"` // percentage 0-100
	SecondsPerQ  int            `json:"time_per_question_seconds"`
	Questions    []TestQuestion `json:"questions"`
	IsActive     bool           `json:"is_active"`
}

// TimePerQuestion returns the configured per-question limit, defaulting to 30s.
func (t Test) TimePerQuestion() time.Duration {
	if t.SecondsPerQ <= 0 {
		return 30 * time.Second
	}
	return time.Duration(t.SecondsPerQ) * time.Second
}

// MaxScore is the sum of all question point values.
func (t Test) MaxScore() int {
	total := 0
	for _, q := range t.Questions {
		total += q.Points
	}
	return total
}

// TestQuestion is one multiple-choice question. CorrectIndex is only
// populated in admin payloads; user-facing payloads omit it.
type TestQuestion struct {
	ID           int      `json:"id"`
	LessonID     int      `json:"lesson_id,omitempty"`
	Text         string   `json:"question_text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_answer_index,omitempty"`
	Order        int      `json:"order"`
	Points       int      `json:"points"`
}

// Attempt is a server-scored test attempt.
type Attempt struct {
	ID               int            `json:"id"`
	TestID           int            `json:"test_id"`
	LessonID         int            `json:"lesson_id,omitempty"`
	StartedAt        time.Time      `json:"started_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	Score            int            `json:"score"`
	MaxScore         int            `json:"max_score"`
	Passed           bool           `json:"passed"`
	Answers          map[string]int `json:"answers,omitempty"`
	TimeSpentSeconds int            `json:"time_spent_seconds"`
}

// ScorePercent returns the attempt score as a 0-100 percentage.
func (a Attempt) ScorePercent() float64 {
	if a.MaxScore == 0 {
		return 0
	}
	return float64(a.Score) / float64(a.MaxScore) * 100
}

// SyncState is the sync engine's persisted bookkeeping.
type SyncState struct {
	LastSyncAt  time.Time `json:"last_sync_at"`
	ItemsSynced int       `json:"items_synced"`
}

// TokenPair is the persisted access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
