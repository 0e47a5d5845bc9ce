package domain

import "context"

// CatalogRepository provides access to the server's content collections.
// Collection listings are paginated; per-series lessons are not.
type CatalogRepository interface {
	// GetThemes returns one page of themes.
	// Returns (items, totalSize, error) for pagination support.
	GetThemes(ctx context.Context, skip, limit int) ([]Theme, int, error)

	// GetAuthors returns one page of book authors.
	GetAuthors(ctx context.Context, skip, limit int) ([]Author, int, error)

	// GetBooks returns one page of books.
	GetBooks(ctx context.Context, skip, limit int) ([]Book, int, error)

	// GetTeachers returns one page of teachers.
	GetTeachers(ctx context.Context, skip, limit int) ([]Teacher, int, error)

	// GetSeries returns one page of lesson series.
	GetSeries(ctx context.Context, skip, limit int) ([]Series, int, error)

	// GetSeriesLessons returns all lessons in a series as a bare list.
	// The payload omits the owning series id; callers must inject it.
	GetSeriesLessons(ctx context.Context, seriesID int) ([]Lesson, error)
}

// BookmarkRepository provides the server-side bookmark operations.
type BookmarkRepository interface {
	// GetSeriesBookmarks returns all of the user's bookmarks in a series.
	GetSeriesBookmarks(ctx context.Context, seriesID int) ([]Bookmark, error)

	// ToggleBookmark flips bookmark existence for a lesson in one call.
	// action is "added" or "removed"; bookmark is nil on removal.
	ToggleBookmark(ctx context.Context, lessonID int, customName string) (action string, bookmark *Bookmark, err error)
}

// TestRepository provides test definitions and attempt lifecycle.
type TestRepository interface {
	// GetTestBySeries returns the series-scoped test definition.
	GetTestBySeries(ctx context.Context, seriesID int) (*Test, error)

	// GetTestByLesson returns the lesson-scoped test definition.
	GetTestByLesson(ctx context.Context, lessonID int) (*Test, error)

	// StartAttempt registers an attempt keyed by (test, optional lesson, user).
	StartAttempt(ctx context.Context, testID, lessonID int) (*Attempt, error)

	// SubmitAttempt uploads the answer set; the server computes score and
	// pass/fail against the test's threshold.
	SubmitAttempt(ctx context.Context, attemptID int, answers map[int]int, timeSpentSeconds int) (*Attempt, error)
}

// AuthRepository provides the authentication endpoints.
type AuthRepository interface {
	// Login exchanges credentials for a token pair. The login field accepts
	// a username or an email address.
	Login(ctx context.Context, loginOrEmail, password string) (TokenPair, error)

	// Register creates an account and returns an initial token pair.
	Register(ctx context.Context, email, password string) (TokenPair, error)

	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// AudioFetcher streams a lesson's audio. The fetch begins at offset bytes
// when the server honors Range requests; resumed reports whether it did.
// Callers own closing the returned body.
type AudioFetcher interface {
	FetchAudio(ctx context.Context, audioURL string, offset int64) (body AudioBody, total int64, resumed bool, err error)
}

// AudioBody is the readable, closable audio byte stream.
type AudioBody interface {
	Read(p []byte) (int, error)
	Close() error
}
