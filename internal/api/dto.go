package api

import "time"

// Wire types for the lessons REST API. Decoded at the boundary and mapped
// to domain entities; nothing outside this package touches them.

// pageEnvelope is the server's pagination wrapper for collection listings.
type pageEnvelope[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// namedRef is the nested {id, name} shape used for relations.
type namedRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type themeDTO struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
	IsActive    bool   `json:"is_active"`
}

type authorDTO struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Biography string `json:"biography"`
	BirthYear *int   `json:"birth_year"`
	DeathYear *int   `json:"death_year"`
	IsActive  bool   `json:"is_active"`
}

type bookDTO struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ThemeID     *int      `json:"theme_id"`
	AuthorID    *int      `json:"author_id"`
	Theme       *namedRef `json:"theme"`
	Author      *namedRef `json:"author"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
}

type teacherDTO struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Biography string `json:"biography"`
	IsActive  bool   `json:"is_active"`
}

type seriesDTO struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Year        int       `json:"year"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	TeacherID   int       `json:"teacher_id"`
	BookID      *int      `json:"book_id"`
	ThemeID     *int      `json:"theme_id"`
	Teacher     *namedRef `json:"teacher"`
	Book        *namedRef `json:"book"`
	Theme       *namedRef `json:"theme"`
	IsCompleted bool      `json:"is_completed"`
	IsActive    bool      `json:"is_active"`
	Order       int       `json:"order"`
	LessonCount int       `json:"lessons_count"`
}

// lessonListDTO is the per-series lesson listing item. Note the absent
// series id: the sync engine injects it after mapping.
type lessonListDTO struct {
	ID                int       `json:"id"`
	LessonNumber      *int      `json:"lesson_number"`
	DisplayTitle      string    `json:"display_title"`
	Description       string    `json:"description"`
	DurationSeconds   *int      `json:"duration_seconds"`
	FormattedDuration string    `json:"formatted_duration"`
	AudioURL          string    `json:"audio_url"`
	Tags              string    `json:"tags"`
	Teacher           *namedRef `json:"teacher"`
	Book              *namedRef `json:"book"`
	IsActive          bool      `json:"is_active"`
}

type bookmarkDTO struct {
	ID         int       `json:"id"`
	LessonID   int       `json:"lesson_id"`
	CustomName string    `json:"custom_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type bookmarkToggleResponse struct {
	Action   string       `json:"action"`
	Bookmark *bookmarkDTO `json:"bookmark"`
}

type bookmarkToggleRequest struct {
	LessonID   int    `json:"lesson_id"`
	CustomName string `json:"custom_name,omitempty"`
}

type testQuestionDTO struct {
	ID           int      `json:"id"`
	LessonID     int      `json:"lesson_id"`
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correct_answer_index"`
	Order        int      `json:"order"`
	Points       int      `json:"points"`
}

type testDTO struct {
	ID           int               `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	SeriesID     int               `json:"series_id"`
	TeacherID    int               `json:"teacher_id"`
	PassingScore int               `json:"passing_score"`
	SecondsPerQ  int               `json:"time_per_question_seconds"`
	Questions    []testQuestionDTO `json:"questions"`
	IsActive     bool              `json:"is_active"`
}

type attemptDTO struct {
	ID               int            `json:"id"`
	TestID           int            `json:"test_id"`
	LessonID         *int           `json:"lesson_id"`
	StartedAt        time.Time      `json:"started_at"`
	CompletedAt      *time.Time     `json:"completed_at"`
	Score            int            `json:"score"`
	MaxScore         int            `json:"max_score"`
	Passed           bool           `json:"passed"`
	Answers          map[string]int `json:"answers"`
	TimeSpentSeconds *int           `json:"time_spent_seconds"`
}

type attemptStartRequest struct {
	TestID   int  `json:"test_id"`
	LessonID *int `json:"lesson_id,omitempty"`
}

type attemptSubmitRequest struct {
	Answers          map[string]int `json:"answers"`
	TimeSpentSeconds int            `json:"time_spent_seconds"`
}

type loginRequest struct {
	LoginOrEmail string `json:"login_or_email"`
	Password     string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// apiError is the server's error body: {"detail": "..."}.
type apiError struct {
	Detail string `json:"detail"`
}
