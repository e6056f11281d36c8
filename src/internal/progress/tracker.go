package progress

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/platform/apierr"
	"github.com/learnhub/learnhub/src/internal/platform/logger"
)

type EventKind string

const (
	// EventReported follows every accepted write for the current lesson.
	EventReported EventKind = "reported"
	// EventCompleted follows an accepted write that completes the lesson.
	EventCompleted EventKind = "completed"
	// EventFailed follows a rejected or undelivered write.
	EventFailed EventKind = "failed"
)

type Event struct {
	Kind       EventKind
	CourseID   int64
	LessonID   int64
	LessonName string
	Update     domain.ProgressUpdate
	Err        error
}

const eventBuffer = 64

// Tracker turns player activity on one course into progress reports.
//
// Each lesson switch starts a new generation. Writes are never cancelled,
// but a write issued under an older generation is treated as stale when it
// resolves and produces no event.
type Tracker struct {
	client *Client
	course *domain.Course
	log    *logger.Logger

	mu        sync.Mutex
	current   int64
	gen       uint64
	lastWatch int64
	closed    bool
	events    chan Event
}

func NewTracker(client *Client, course *domain.Course, log *logger.Logger) *Tracker {
	return &Tracker{
		client: client,
		course: course,
		log:    log.With("component", "tracker", "course_id", course.ID),
		events: make(chan Event, eventBuffer),
	}
}

// Events delivers report outcomes. Events are dropped when nobody reads.
func (t *Tracker) Events() <-chan Event {
	return t.events
}

// Current returns the selected lesson, or 0.
func (t *Tracker) Current() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Start selects the course's first lesson if nothing is selected yet.
func (t *Tracker) Start(ctx context.Context) error {
	if t.Current() != 0 {
		return nil
	}
	first, ok := t.course.FirstLesson()
	if !ok {
		return nil
	}
	return t.SelectLesson(ctx, first.ID)
}

// SelectLesson switches to lessonID. Opening a lesson the learner has not
// started marks it as started.
func (t *Tracker) SelectLesson(ctx context.Context, lessonID int64) error {
	if _, ok := t.course.FindLesson(lessonID); !ok {
		return fmt.Errorf("select lesson %d: %w: not part of course %d", lessonID, apierr.ErrValidation, t.course.ID)
	}

	t.mu.Lock()
	if t.current == lessonID {
		t.mu.Unlock()
		return nil
	}
	t.current = lessonID
	t.gen++
	t.lastWatch = 0
	gen := t.gen
	t.mu.Unlock()

	data, err := t.client.GetLessonProgress(ctx, t.course.ID)
	if err != nil {
		return err
	}
	if rec, ok := data.Lesson(lessonID); ok && rec.Status != domain.LessonNotStarted {
		t.mu.Lock()
		if t.gen == gen {
			t.lastWatch = int64(rec.WatchTime)
		}
		t.mu.Unlock()
		return nil
	}
	t.send(gen, domain.ProgressUpdate{LessonID: lessonID}, false)
	return nil
}

// TimeUpdate reports the player position of the current lesson.
func (t *Tracker) TimeUpdate(currentSeconds, durationSeconds float64) {
	if durationSeconds <= 0 || math.IsNaN(currentSeconds) || currentSeconds < 0 {
		return
	}
	t.mu.Lock()
	lessonID, gen := t.current, t.gen
	if lessonID == 0 {
		t.mu.Unlock()
		return
	}
	watch := int64(math.Floor(currentSeconds))
	t.lastWatch = watch
	t.mu.Unlock()

	pct := clampPercent(currentSeconds / durationSeconds * 100)
	t.send(gen, domain.ProgressUpdate{LessonID: lessonID, WatchTime: watch, CompletionPercentage: pct}, false)
}

// Complete reports that playback reached the end of the current lesson.
func (t *Tracker) Complete() {
	t.mu.Lock()
	lessonID, gen, watch := t.current, t.gen, t.lastWatch
	t.mu.Unlock()
	if lessonID == 0 {
		return
	}
	t.send(gen, domain.ProgressUpdate{LessonID: lessonID, WatchTime: watch, CompletionPercentage: 100}, true)
}

// ManualProgress records a learner-entered completion percentage.
func (t *Tracker) ManualProgress(pct float64) error {
	if pct < 0 || pct > 100 || math.IsNaN(pct) {
		return fmt.Errorf("manual progress %v: %w: must be between 0 and 100", pct, apierr.ErrValidation)
	}
	t.mu.Lock()
	lessonID, gen, watch := t.current, t.gen, t.lastWatch
	t.mu.Unlock()
	if lessonID == 0 {
		return fmt.Errorf("manual progress: %w: no lesson selected", apierr.ErrValidation)
	}
	completes := domain.StatusFor(pct, false) == domain.LessonCompleted
	t.send(gen, domain.ProgressUpdate{LessonID: lessonID, WatchTime: watch, CompletionPercentage: pct}, completes)
	return nil
}

// Close stops event delivery. Reports already issued still complete.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.events)
	}
}

func (t *Tracker) send(gen uint64, update domain.ProgressUpdate, completes bool) {
	t.client.report(t.course.ID, update, func(err error) {
		t.mu.Lock()
		defer t.mu.Unlock()

		if t.gen != gen {
			t.client.metrics.ProgressWrite("stale")
			t.log.Debug("Ignoring result of superseded report", "lesson_id", update.LessonID)
			return
		}

		ev := Event{CourseID: t.course.ID, LessonID: update.LessonID, Update: update, Err: err}
		if lesson, ok := t.course.FindLesson(update.LessonID); ok {
			ev.LessonName = lesson.Name
		}
		switch {
		case err != nil:
			ev.Kind = EventFailed
		case completes:
			ev.Kind = EventCompleted
		default:
			ev.Kind = EventReported
		}
		t.emitLocked(ev)
	})
}

func (t *Tracker) emitLocked(ev Event) {
	if t.closed {
		return
	}
	select {
	case t.events <- ev:
	default:
		t.log.Debug("Event buffer full, dropping", "kind", ev.Kind)
	}
}

func clampPercent(p float64) float64 {
	return math.Max(0, math.Min(100, p))
}
