package download_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/muwahhidun/durus/internal/domain"
	"github.com/muwahhidun/durus/internal/download"
	"github.com/muwahhidun/durus/internal/store"
)

// fakeFetcher serves a fixed payload, optionally honoring Range offsets.
type fakeFetcher struct {
	payload     []byte
	honorsRange bool
	lastOffset  int64
	fetchErr    error
}

func (f *fakeFetcher) FetchAudio(_ context.Context, _ string, offset int64) (domain.AudioBody, int64, bool, error) {
	if f.fetchErr != nil {
		return nil, 0, false, f.fetchErr
	}
	f.lastOffset = offset
	if offset > 0 && f.honorsRange {
		return io.NopCloser(bytes.NewReader(f.payload[offset:])), int64(len(f.payload)), true, nil
	}
	return io.NopCloser(bytes.NewReader(f.payload)), int64(len(f.payload)), false, nil
}

func newManager(t *testing.T, fetcher domain.AudioFetcher) (*download.Manager, *store.CacheStore, string) {
	t.Helper()
	cache, err := store.NewCacheStore("", "")
	require.NoError(t, err)
	dir := t.TempDir()
	return download.NewManager(fetcher, cache, dir, nil), cache, dir
}

func collect(t *testing.T, ch <-chan download.Progress) []download.Progress {
	t.Helper()
	var events []download.Progress
	for p := range ch {
		events = append(events, p)
	}
	return events
}

func TestDownloadLifecycle(t *testing.T) {
	r := require.New(t)

	payload := bytes.Repeat([]byte("audio"), 1000)
	fetcher := &fakeFetcher{payload: payload}
	mgr, cache, _ := newManager(t, fetcher)

	lesson := domain.Lesson{ID: 7, SeriesID: 1, AudioURL: "/api/lessons/7/audio"}
	r.False(mgr.IsDownloaded(7))

	ch, err := mgr.Download(context.Background(), lesson)
	r.NoError(err)

	events := collect(t, ch)
	r.NotEmpty(events)
	r.Equal(domain.DownloadInProgress, events[0].Status)

	last := events[len(events)-1]
	r.Equal(domain.DownloadCompleted, last.Status)
	r.Equal(int64(len(payload)), last.Received)
	r.InDelta(1.0, last.Fraction, 0.001)

	r.True(mgr.IsDownloaded(7))
	data, err := os.ReadFile(mgr.Path(7))
	r.NoError(err)
	r.Equal(payload, data)

	rec, ok := cache.GetDownload(7)
	r.True(ok)
	r.Equal(domain.DownloadCompleted, rec.Status)
	r.Equal(int64(len(payload)), rec.SizeBytes)
	r.False(rec.DownloadedAt.IsZero())
}

func TestDownloadCompletedShortCircuit(t *testing.T) {
	r := require.New(t)

	payload := []byte("audio-bytes")
	mgr, _, _ := newManager(t, &fakeFetcher{payload: payload})
	lesson := domain.Lesson{ID: 7, SeriesID: 1, AudioURL: "/a"}

	ch, err := mgr.Download(context.Background(), lesson)
	r.NoError(err)
	collect(t, ch)

	// Second request answers from disk with one completed event.
	ch, err = mgr.Download(context.Background(), lesson)
	r.NoError(err)
	events := collect(t, ch)
	r.Len(events, 1)
	r.Equal(domain.DownloadCompleted, events[0].Status)
	r.InDelta(1.0, events[0].Fraction, 0.001)
}

func TestDownloadNoAudio(t *testing.T) {
	r := require.New(t)
	mgr, _, _ := newManager(t, &fakeFetcher{})

	_, err := mgr.Download(context.Background(), domain.Lesson{ID: 7})
	r.Error(err)
}

func TestDownloadResumesFromPartial(t *testing.T) {
	r := require.New(t)

	payload := []byte("0123456789")
	fetcher := &fakeFetcher{payload: payload, honorsRange: true}
	mgr, _, dir := newManager(t, fetcher)

	// A previous run left the first 4 bytes behind.
	part := filepath.Join(dir, "lesson_7.mp3.part")
	r.NoError(os.WriteFile(part, payload[:4], 0o644))

	lesson := domain.Lesson{ID: 7, AudioURL: "/a"}
	ch, err := mgr.Download(context.Background(), lesson)
	r.NoError(err)
	collect(t, ch)

	r.Equal(int64(4), fetcher.lastOffset)
	data, err := os.ReadFile(mgr.Path(7))
	r.NoError(err)
	r.Equal(payload, data)
}

func TestDownloadRestartsWhenRangeIgnored(t *testing.T) {
	r := require.New(t)

	payload := []byte("0123456789")
	fetcher := &fakeFetcher{payload: payload, honorsRange: false}
	mgr, _, dir := newManager(t, fetcher)

	part := filepath.Join(dir, "lesson_7.mp3.part")
	r.NoError(os.WriteFile(part, payload[:4], 0o644))

	ch, err := mgr.Download(context.Background(), domain.Lesson{ID: 7, AudioURL: "/a"})
	r.NoError(err)
	collect(t, ch)

	// The partial was thrown away and the file holds exactly one payload.
	data, err := os.ReadFile(mgr.Path(7))
	r.NoError(err)
	r.Equal(payload, data)
}

func TestDownloadFailure(t *testing.T) {
	r := require.New(t)

	fetcher := &fakeFetcher{fetchErr: domain.ErrServerOffline}
	mgr, cache, _ := newManager(t, fetcher)

	ch, err := mgr.Download(context.Background(), domain.Lesson{ID: 7, AudioURL: "/a"})
	r.NoError(err)
	events := collect(t, ch)
	r.Len(events, 1)
	r.Equal(domain.DownloadFailed, events[0].Status)
	r.ErrorIs(events[0].Err, domain.ErrServerOffline)

	rec, ok := cache.GetDownload(7)
	r.True(ok)
	r.Equal(domain.DownloadFailed, rec.Status)
	r.False(mgr.IsDownloaded(7))
}

func TestDeleteRemovesFileAndRecord(t *testing.T) {
	r := require.New(t)

	payload := []byte("audio-bytes")
	mgr, cache, _ := newManager(t, &fakeFetcher{payload: payload})
	lesson := domain.Lesson{ID: 7, AudioURL: "/a"}

	ch, err := mgr.Download(context.Background(), lesson)
	r.NoError(err)
	collect(t, ch)
	r.True(mgr.IsDownloaded(7))

	r.NoError(mgr.Delete(7))
	r.False(mgr.IsDownloaded(7))
	_, err = os.Stat(mgr.Path(7))
	r.True(os.IsNotExist(err))
	_, ok := cache.GetDownload(7)
	r.False(ok)
}

func TestIsDownloadedChecksDisk(t *testing.T) {
	r := require.New(t)

	payload := []byte("audio-bytes")
	mgr, _, _ := newManager(t, &fakeFetcher{payload: payload})
	lesson := domain.Lesson{ID: 7, AudioURL: "/a"}

	ch, err := mgr.Download(context.Background(), lesson)
	r.NoError(err)
	collect(t, ch)
	r.True(mgr.IsDownloaded(7))

	// Removing the file out of band invalidates the record.
	r.NoError(os.Remove(mgr.Path(7)))
	r.False(mgr.IsDownloaded(7))
}

func TestCancelNothingInFlight(t *testing.T) {
	mgr, _, _ := newManager(t, &fakeFetcher{payload: []byte("x")})
	require.False(t, mgr.Cancel(7))
}

// blockingBody yields a few bytes and then stalls until the request
// context is cancelled.
type blockingBody struct {
	ctx  context.Context
	sent bool
}

func (b *blockingBody) Read(p []byte) (int, error) {
	if !b.sent {
		b.sent = true
		return copy(p, "part"), nil
	}
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

func (b *blockingBody) Close() error { return nil }

type blockingFetcher struct{}

func (blockingFetcher) FetchAudio(ctx context.Context, _ string, _ int64) (domain.AudioBody, int64, bool, error) {
	return &blockingBody{ctx: ctx}, 100, false, nil
}

func TestDeleteWhileDownloadingLeavesNoRecord(t *testing.T) {
	r := require.New(t)

	mgr, cache, dir := newManager(t, blockingFetcher{})

	ch, err := mgr.Download(context.Background(), domain.Lesson{ID: 7, AudioURL: "/a"})
	r.NoError(err)
	first := <-ch
	r.Equal(domain.DownloadInProgress, first.Status)

	// Delete waits out the cancelled transfer; its failed-record write must
	// not survive the deletion.
	r.NoError(mgr.Delete(7))
	collect(t, ch)

	_, ok := cache.GetDownload(7)
	r.False(ok)
	_, err = os.Stat(filepath.Join(dir, "lesson_7.mp3.part"))
	r.True(os.IsNotExist(err))
	_, err = os.Stat(mgr.Path(7))
	r.True(os.IsNotExist(err))
}

func TestCancelRemovesPartialFile(t *testing.T) {
	r := require.New(t)

	mgr, cache, dir := newManager(t, blockingFetcher{})

	ch, err := mgr.Download(context.Background(), domain.Lesson{ID: 7, AudioURL: "/a"})
	r.NoError(err)

	first := <-ch
	r.Equal(domain.DownloadInProgress, first.Status)
	r.True(mgr.Cancel(7))

	events := collect(t, ch)
	last := events[len(events)-1]
	r.Equal(domain.DownloadFailed, last.Status)
	r.ErrorIs(last.Err, domain.ErrDownloadCancelled)

	_, err = os.Stat(filepath.Join(dir, "lesson_7.mp3.part"))
	r.True(os.IsNotExist(err))

	rec, ok := cache.GetDownload(7)
	r.True(ok)
	r.Equal(domain.DownloadFailed, rec.Status)
	r.False(mgr.Cancel(7))
}
