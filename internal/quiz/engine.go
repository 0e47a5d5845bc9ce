package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/muwahhidun/durus/internal/domain"
)

// UnansweredSentinel is recorded when the per-question timer expires before
// a choice was made. The server scores it as wrong.
const UnansweredSentinel = -1

// State is the engine's lifecycle phase.
type State int

const (
	StateNotLoaded State = iota
	StateLoaded
	StateInProgress
	StateSubmitted
)

var (
	ErrNoTest       = errors.New("no test loaded")
	ErrNotStarted   = errors.New("attempt not started")
	ErrNoSelection  = errors.New("no answer selected")
	ErrAlreadyDone  = errors.New("attempt already submitted")
	ErrBadSelection = errors.New("selection out of range")
)

// Engine drives one timed multiple-choice attempt. The server scores; the
// engine only sequences questions, enforces the per-question timer policy
// and collects answers. The UI loop and its timer commands may call it from
// different goroutines, so all state sits behind the mutex; an attempt is
// submitted exactly once no matter how many expiry timers fire.
type Engine struct {
	repo   domain.TestRepository
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	test       *domain.Test
	attempt    *domain.Attempt
	index      int
	answers    map[int]int
	submitting bool
	startedAt  time.Time
	qStarted   time.Time
}

func NewEngine(repo domain.TestRepository, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{repo: repo, logger: logger}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Test() *domain.Test {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.test
}

func (e *Engine) Index() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// Result returns the scored attempt after submission, nil before.
func (e *Engine) Result() *domain.Attempt {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateSubmitted {
		return nil
	}
	return e.attempt
}

// LoadBySeries fetches the series' test definition and resets the engine.
func (e *Engine) LoadBySeries(ctx context.Context, seriesID int) error {
	test, err := e.repo.GetTestBySeries(ctx, seriesID)
	if err != nil {
		return err
	}
	e.load(test)
	return nil
}

// LoadByLesson fetches the lesson-scoped test definition and resets the engine.
func (e *Engine) LoadByLesson(ctx context.Context, lessonID int) error {
	test, err := e.repo.GetTestByLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	e.load(test)
	return nil
}

func (e *Engine) load(test *domain.Test) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.test = test
	e.attempt = nil
	e.index = 0
	e.answers = make(map[int]int, len(test.Questions))
	e.submitting = false
	e.state = StateLoaded
}

// Start registers the attempt on the server and begins the first question's
// timer. lessonID scopes the attempt to one lesson; pass 0 for a series-wide
// attempt.
func (e *Engine) Start(ctx context.Context, lessonID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateLoaded {
		return ErrNoTest
	}
	if len(e.test.Questions) == 0 {
		return fmt.Errorf("test %d has no questions", e.test.ID)
	}

	attempt, err := e.repo.StartAttempt(ctx, e.test.ID, lessonID)
	if err != nil {
		return err
	}

	e.attempt = attempt
	e.index = 0
	e.state = StateInProgress
	now := time.Now()
	e.startedAt = now
	e.qStarted = now
	e.logger.Debug("attempt started", "attempt_id", attempt.ID, "test_id", e.test.ID)
	return nil
}

// Current returns the question at the cursor.
func (e *Engine) Current() (domain.TestQuestion, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInProgress {
		return domain.TestQuestion{}, ErrNotStarted
	}
	return e.test.Questions[e.index], nil
}

// Selected returns the recorded answer for the current question and whether
// one exists.
func (e *Engine) Selected() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInProgress {
		return 0, false
	}
	option, ok := e.answers[e.test.Questions[e.index].ID]
	return option, ok
}

// Select records an answer for the current question. Reselecting overwrites
// until the question is advanced past.
func (e *Engine) Select(option int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInProgress {
		return ErrNotStarted
	}
	q := e.test.Questions[e.index]
	if option < 0 || option >= len(q.Options) {
		return fmt.Errorf("%w: option %d of %d", ErrBadSelection, option, len(q.Options))
	}
	e.answers[q.ID] = option
	return nil
}

// Remaining returns how much of the current question's time is left.
func (e *Engine) Remaining(now time.Time) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInProgress {
		return 0
	}
	left := e.test.TimePerQuestion() - now.Sub(e.qStarted)
	if left < 0 {
		return 0
	}
	return left
}

// Advance moves past the current question; the final Advance submits. It
// refuses to move when no answer is recorded, so a skipped question can only
// come from timer expiry.
func (e *Engine) Advance(ctx context.Context) (*domain.Attempt, error) {
	e.mu.Lock()
	if e.state == StateSubmitted || e.submitting {
		e.mu.Unlock()
		return nil, ErrAlreadyDone
	}
	if e.state != StateInProgress {
		e.mu.Unlock()
		return nil, ErrNotStarted
	}
	if _, ok := e.answers[e.test.Questions[e.index].ID]; !ok {
		e.mu.Unlock()
		return nil, ErrNoSelection
	}
	if e.stepLocked() {
		e.mu.Unlock()
		return nil, nil
	}
	e.mu.Unlock()
	return e.submit(ctx)
}

// Expire handles a per-question timeout: an unanswered question is recorded
// with the sentinel and the attempt moves on, submitting when the timer ran
// out on the last question. A timer that fires after the attempt is over, or
// while a submission is already in flight, is a no-op: ticks keep arriving
// for a moment after the final question and must not resubmit.
func (e *Engine) Expire(ctx context.Context) (*domain.Attempt, error) {
	e.mu.Lock()
	if e.state != StateInProgress || e.submitting {
		e.mu.Unlock()
		return nil, nil
	}
	q := e.test.Questions[e.index]
	if _, ok := e.answers[q.ID]; !ok {
		e.answers[q.ID] = UnansweredSentinel
		e.logger.Debug("question timed out", "question_id", q.ID)
	}
	if e.stepLocked() {
		e.mu.Unlock()
		return nil, nil
	}
	e.mu.Unlock()
	return e.submit(ctx)
}

// stepLocked moves the cursor to the next question, reporting true, or
// flags the attempt for submission and reports false. Callers hold e.mu.
func (e *Engine) stepLocked() bool {
	if e.index+1 < len(e.test.Questions) {
		e.index++
		e.qStarted = time.Now()
		return true
	}
	e.submitting = true
	return false
}

// submit sends the answer map once. The submitting flag set by stepLocked
// keeps a concurrent Advance or Expire out while the round-trip runs; a
// failed submission clears it so the next timer or keypress can retry.
func (e *Engine) submit(ctx context.Context) (*domain.Attempt, error) {
	e.mu.Lock()
	attemptID := e.attempt.ID
	answers := make(map[int]int, len(e.answers))
	for id, option := range e.answers {
		answers[id] = option
	}
	timeSpent := int(time.Since(e.startedAt).Seconds())
	e.mu.Unlock()

	scored, err := e.repo.SubmitAttempt(ctx, attemptID, answers, timeSpent)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.submitting = false
	if err != nil {
		return nil, err
	}
	e.attempt = scored
	e.state = StateSubmitted
	e.logger.Info("attempt submitted",
		"attempt_id", scored.ID,
		"score", scored.Score,
		"max_score", scored.MaxScore,
		"passed", scored.Passed)
	return scored, nil
}
