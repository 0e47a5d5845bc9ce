package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/muwahhidun/durus/internal/domain"
)

// progressEvery is the byte interval between progress events.
const progressEvery = 256 * 1024

// Progress is one download progress event. Fraction is 0..1, or -1 when the
// total size is unknown. The final event carries either a terminal Status
// or Err.
type Progress struct {
	LessonID int
	Received int64
	Total    int64
	Fraction float64
	Status   domain.DownloadStatus
	Err      error
}

// Manager downloads lesson audio to the local download directory, resuming
// partial transfers via Range requests. At most one download runs per
// lesson at a time; different lessons download concurrently.
type Manager struct {
	fetcher domain.AudioFetcher
	store   domain.Store
	dir     string
	logger  *slog.Logger

	mu     sync.Mutex
	active map[int]*transfer
}

// transfer tracks one in-flight download: its cancel handle and a channel
// closed when the goroutine has fully wound down.
type transfer struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(fetcher domain.AudioFetcher, store domain.Store, dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		fetcher: fetcher,
		store:   store,
		dir:     dir,
		logger:  logger,
		active:  make(map[int]*transfer),
	}
}

// Path returns the final on-disk location for a lesson's audio.
func (m *Manager) Path(lessonID int) string {
	return filepath.Join(m.dir, fmt.Sprintf("lesson_%d.mp3", lessonID))
}

func (m *Manager) partPath(lessonID int) string {
	return m.Path(lessonID) + ".part"
}

// IsDownloaded reports whether the lesson's audio is complete on disk. The
// record alone is not trusted: the file may have been removed out of band.
func (m *Manager) IsDownloaded(lessonID int) bool {
	rec, ok := m.store.GetDownload(lessonID)
	if !ok || rec.Status != domain.DownloadCompleted {
		return false
	}
	if _, err := os.Stat(rec.Path); err != nil {
		return false
	}
	return true
}

// ListDownloads returns all persisted download records.
func (m *Manager) ListDownloads() ([]domain.DownloadRecord, error) {
	return m.store.ListDownloads()
}

// Download fetches a lesson's audio in the background and streams progress
// on the returned channel, which closes after the terminal event. An
// already-complete download yields a single completed event. A second call
// for a lesson already in flight is an error.
func (m *Manager) Download(ctx context.Context, lesson domain.Lesson) (<-chan Progress, error) {
	if !lesson.HasAudio() {
		return nil, fmt.Errorf("lesson %d has no audio", lesson.ID)
	}

	if m.IsDownloaded(lesson.ID) {
		ch := make(chan Progress, 1)
		rec, _ := m.store.GetDownload(lesson.ID)
		ch <- Progress{
			LessonID: lesson.ID,
			Received: rec.SizeBytes,
			Total:    rec.SizeBytes,
			Fraction: 1.0,
			Status:   domain.DownloadCompleted,
		}
		close(ch)
		return ch, nil
	}

	m.mu.Lock()
	if _, busy := m.active[lesson.ID]; busy {
		m.mu.Unlock()
		return nil, fmt.Errorf("lesson %d is already downloading", lesson.ID)
	}
	dlCtx, cancel := context.WithCancel(ctx)
	tr := &transfer{cancel: cancel, done: make(chan struct{})}
	m.active[lesson.ID] = tr
	m.mu.Unlock()

	ch := make(chan Progress, 16)
	go func() {
		defer close(ch)
		defer func() {
			m.mu.Lock()
			delete(m.active, lesson.ID)
			m.mu.Unlock()
			cancel()
			close(tr.done)
		}()
		m.run(dlCtx, lesson, ch)
	}()
	return ch, nil
}

func (m *Manager) run(ctx context.Context, lesson domain.Lesson, ch chan<- Progress) {
	part := m.partPath(lesson.ID)

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		m.fail(lesson.ID, ch, fmt.Errorf("failed to create download dir: %w", err))
		return
	}

	var offset int64
	if info, err := os.Stat(part); err == nil {
		offset = info.Size()
	}

	body, total, resumed, err := m.fetcher.FetchAudio(ctx, lesson.AudioURL, offset)
	if err != nil {
		m.fail(lesson.ID, ch, err)
		return
	}
	defer body.Close()

	// A 200 answer to a ranged request means the server ignored Range and
	// the transfer restarts from byte zero.
	if offset > 0 && !resumed {
		m.logger.Debug("server ignored range request, restarting", "lesson_id", lesson.ID)
		offset = 0
	}

	flags := os.O_CREATE | os.O_WRONLY
	if offset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(part, flags, 0o644)
	if err != nil {
		m.fail(lesson.ID, ch, fmt.Errorf("failed to open partial file: %w", err))
		return
	}

	m.saveRecord(domain.DownloadRecord{
		LessonID: lesson.ID,
		Path:     m.Path(lesson.ID),
		Status:   domain.DownloadInProgress,
	})

	received := offset
	lastEvent := received
	buf := make([]byte, 32*1024)

	emit := func(status domain.DownloadStatus) {
		ch <- Progress{
			LessonID: lesson.ID,
			Received: received,
			Total:    total,
			Fraction: fraction(received, total),
			Status:   status,
		}
	}
	emit(domain.DownloadInProgress)

	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				file.Close()
				m.fail(lesson.ID, ch, fmt.Errorf("failed to write audio: %w", werr))
				return
			}
			received += int64(n)
			if received-lastEvent >= progressEvery {
				lastEvent = received
				emit(domain.DownloadInProgress)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			file.Close()
			if ctx.Err() != nil {
				m.cancelled(lesson.ID, received, ch)
				return
			}
			m.fail(lesson.ID, ch, fmt.Errorf("failed to read audio: %w", rerr))
			return
		}
	}

	if err := file.Close(); err != nil {
		m.fail(lesson.ID, ch, fmt.Errorf("failed to close audio file: %w", err))
		return
	}

	final := m.Path(lesson.ID)
	if err := os.Rename(part, final); err != nil {
		m.fail(lesson.ID, ch, fmt.Errorf("failed to finalize download: %w", err))
		return
	}

	// Trust the filesystem, not the byte counter, for the recorded size.
	size := received
	if info, err := os.Stat(final); err == nil {
		size = info.Size()
	}

	m.saveRecord(domain.DownloadRecord{
		LessonID:     lesson.ID,
		Path:         final,
		SizeBytes:    size,
		Status:       domain.DownloadCompleted,
		DownloadedAt: time.Now(),
	})

	received = size
	total = size
	emit(domain.DownloadCompleted)
	m.logger.Info("download completed", "lesson_id", lesson.ID, "bytes", size)
}

func (m *Manager) fail(lessonID int, ch chan<- Progress, err error) {
	m.logger.Error("download failed", "lesson_id", lessonID, "error", err)
	m.saveRecord(domain.DownloadRecord{
		LessonID: lessonID,
		Path:     m.Path(lessonID),
		Status:   domain.DownloadFailed,
	})
	ch <- Progress{LessonID: lessonID, Status: domain.DownloadFailed, Err: err}
}

// cancelled removes the partial file and marks the record failed. Resume
// only applies to transfers that died on their own; an explicit cancel
// leaves nothing behind.
func (m *Manager) cancelled(lessonID int, received int64, ch chan<- Progress) {
	m.logger.Info("download cancelled", "lesson_id", lessonID, "bytes", received)
	os.Remove(m.partPath(lessonID))
	m.saveRecord(domain.DownloadRecord{
		LessonID: lessonID,
		Path:     m.Path(lessonID),
		Status:   domain.DownloadFailed,
	})
	ch <- Progress{
		LessonID: lessonID,
		Status:   domain.DownloadFailed,
		Err:      domain.ErrDownloadCancelled,
	}
}

// saveRecord persists best-effort: a failed write never aborts a transfer.
func (m *Manager) saveRecord(rec domain.DownloadRecord) {
	if err := m.store.SaveDownload(rec); err != nil {
		m.logger.Warn("failed to persist download record", "lesson_id", rec.LessonID, "error", err)
	}
}

// Cancel stops an in-flight download. Returns false when nothing was in
// flight for the lesson.
func (m *Manager) Cancel(lessonID int) bool {
	m.mu.Lock()
	tr, ok := m.active[lessonID]
	m.mu.Unlock()
	if ok {
		tr.cancel()
	}
	return ok
}

// Delete removes the lesson's audio file, any partial file, and the record.
// An in-flight transfer is cancelled and waited out first, so its own
// bookkeeping cannot land after the record is gone.
func (m *Manager) Delete(lessonID int) error {
	m.mu.Lock()
	tr, ok := m.active[lessonID]
	m.mu.Unlock()
	if ok {
		tr.cancel()
		<-tr.done
	}

	var errs []error
	for _, p := range []string{m.Path(lessonID), m.partPath(lessonID)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	m.store.DeleteDownload(lessonID)
	return errors.Join(errs...)
}

func fraction(received, total int64) float64 {
	if total <= 0 {
		return -1
	}
	f := float64(received) / float64(total)
	if f > 1 {
		f = 1
	}
	return f
}
