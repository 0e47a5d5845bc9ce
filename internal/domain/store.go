package domain

// Store handles the local cache (bbolt + memory). The TUI reads directly
// from Store for offline browsing; only the sync engine writes metadata.
type Store interface {
	// === Metadata collections ===
	GetThemes() ([]Theme, bool)
	SaveThemes(themes []Theme) error

	GetAuthors() ([]Author, bool)
	SaveAuthors(authors []Author) error

	GetBooks() ([]Book, bool)
	SaveBooks(books []Book) error

	GetTeachers() ([]Teacher, bool)
	SaveTeachers(teachers []Teacher) error

	GetSeries() ([]Series, bool)
	SaveSeries(series []Series) error

	// === Lessons (keyed per series) ===
	GetLessons(seriesID int) ([]Lesson, bool)
	SaveLessons(seriesID int, lessons []Lesson) error
	GetLesson(lessonID int) (Lesson, bool)

	// === Download records ===
	GetDownload(lessonID int) (DownloadRecord, bool)
	SaveDownload(rec DownloadRecord) error
	DeleteDownload(lessonID int)
	ListDownloads() ([]DownloadRecord, error)

	// === Bookmarks (offline mirror of the server's view) ===
	GetBookmarks(seriesID int) (map[int]Bookmark, bool)
	SaveBookmarks(seriesID int, bookmarks map[int]Bookmark) error

	// === Session ===
	GetTokens() (TokenPair, bool)
	SaveTokens(pair TokenPair) error
	ClearTokens()

	// === Sync bookkeeping ===
	GetSyncState() (SyncState, bool)
	SaveSyncState(state SyncState) error
	HasData() bool

	// === Invalidation ===
	InvalidateLessons(seriesID int)
	InvalidateMetadata()
	InvalidateAll()

	Close() error
}
