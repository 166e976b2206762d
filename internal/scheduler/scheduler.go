// File: internal/scheduler/scheduler.go
//
// The capture coalescing scheduler decides, for each raw input event seen
// while a verified recording is in progress, whether and when to invoke the
// capture pipeline. Bursts collapse into a single representative capture:
// every decision is a cancellable ticket in a pending table, and a ticket
// that fires re-checks its own validity atomically with its removal.
package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot-cli/internal/config"
	"github.com/xkilldash9x/deskpilot-cli/internal/session"
)

// Category partitions pending tickets so rapid typing can cancel keyboard
// tickets without disturbing mouse ones.
type Category int

const (
	CategoryClick Category = iota
	CategoryKey
)

// Capture labels handed to the pipeline.
const (
	LabelInit         = "Init"
	LabelMousePress   = "MousePress"
	LabelMouseRelease = "MouseRelease"
	LabelMouseScroll  = "MouseScroll"
	LabelKeyPress     = "KeyPress"
	LabelKeyboardIdle = "KeyboardIdle"
)

// Sink receives a fired capture. It runs outside the scheduler lock and must
// tolerate failures itself; the scheduler never retries.
type Sink func(label string, pointer *session.Point)

// Scheduler owns the pending-ticket table and the typing-burst classifier.
type Scheduler struct {
	cfg    config.SchedulerConfig
	sess   *session.Context
	sink   Sink
	logger *zap.Logger

	mu          sync.Mutex
	nextID      uint64
	pending     map[uint64]Category
	burst       *burstWindow
	rapidTyping bool
	lastKey     time.Time
	buttonDown  bool

	// now and after are injectable for deterministic tests.
	now   func() time.Time
	after func(d time.Duration, f func())
}

// New creates a scheduler bound to a session context and a capture sink.
func New(cfg config.SchedulerConfig, sess *session.Context, sink Sink, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		sess:    sess,
		sink:    sink,
		logger:  logger.Named("scheduler"),
		pending: make(map[uint64]Category),
		burst:   newBurstWindow(cfg.BurstWindow),
		now:     time.Now,
		after:   func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// OnButtonPress schedules a Click-category capture after the debounce delay
// and starts tracking the held button.
func (s *Scheduler) OnButtonPress() {
	s.mu.Lock()
	s.buttonDown = true
	s.mu.Unlock()
	s.schedule(s.cfg.CaptureDelay, LabelMousePress, CategoryClick)
}

// OnButtonRelease schedules a release capture, but only when a press was
// being tracked; a stray release (e.g. one whose press predates the session)
// is ignored.
func (s *Scheduler) OnButtonRelease() {
	s.mu.Lock()
	wasDown := s.buttonDown
	s.buttonDown = false
	s.mu.Unlock()
	if !wasDown {
		return
	}
	s.schedule(s.cfg.CaptureDelay, LabelMouseRelease, CategoryClick)
}

// OnScroll schedules a scroll capture. Scrolls are not debounced against each
// other.
func (s *Scheduler) OnScroll() {
	s.schedule(s.cfg.CaptureDelay, LabelMouseScroll, CategoryClick)
}

// OnKeyPress classifies the typing burst and either schedules a sparse-typing
// capture or, on the first crossing into rapid typing, cancels all pending
// keyboard tickets and arms a single idle-detect checker.
func (s *Scheduler) OnKeyPress() {
	now := s.now()

	s.mu.Lock()
	s.burst.Add(now)
	rapid := s.burst.Len(now) > s.cfg.BurstThreshold
	wasRapid := s.rapidTyping
	s.rapidTyping = rapid
	s.lastKey = now
	if rapid && !wasRapid {
		s.cancelCategoryLocked(CategoryKey)
	}
	s.mu.Unlock()

	if !rapid {
		s.schedule(s.cfg.KeyCaptureDelay, LabelKeyPress, CategoryKey)
		return
	}
	s.armIdleChecker(now)
}

// armIdleChecker waits one key delay and captures only if no further key
// press happened in the meantime. A successful idle capture resets the burst
// window, so the next burst is classified from scratch.
func (s *Scheduler) armIdleChecker(pressedAt time.Time) {
	s.after(s.cfg.KeyCaptureDelay, func() {
		if !s.sess.RecordingActiveAndVerified() {
			return
		}

		s.mu.Lock()
		idle := s.rapidTyping && !s.lastKey.After(pressedAt)
		if idle {
			s.rapidTyping = false
			s.burst.Reset()
		}
		s.mu.Unlock()

		if !idle {
			return
		}
		s.sink(LabelKeyboardIdle, s.sess.Pointer())
	})
}

// schedule registers a pending ticket and arms its timer. The ticket id is
// returned for tests; a zero id means the event was dropped at the gate.
func (s *Scheduler) schedule(delay time.Duration, label string, cat Category) uint64 {
	if !s.sess.RecordingActiveAndVerified() {
		return 0
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.pending[id] = cat
	s.mu.Unlock()

	s.after(delay, func() { s.fire(id, label) })
	return id
}

// fire performs the atomic remove-if-present check. Removal and the
// should-still-fire decision happen in one critical section, so a concurrent
// cancellation can never race this ticket into a double fire.
func (s *Scheduler) fire(id uint64, label string) {
	s.mu.Lock()
	_, ok := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()

	if !ok {
		return
	}
	if !s.sess.RecordingActiveAndVerified() {
		s.logger.Debug("capture ticket expired with session gone",
			zap.Uint64("id", id), zap.String("label", label))
		return
	}
	s.sink(label, s.sess.Pointer())
}

// Cancel removes a single ticket without firing it.
func (s *Scheduler) Cancel(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// CancelAll drops every pending ticket and resets the typing classifier.
// Called when the recording session stops.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[uint64]Category)
	s.burst.Reset()
	s.rapidTyping = false
	s.buttonDown = false
}

func (s *Scheduler) cancelCategoryLocked(cat Category) {
	for id, c := range s.pending {
		if c == cat {
			delete(s.pending, id)
		}
	}
}

// PendingCounts reports the number of outstanding click and key tickets.
func (s *Scheduler) PendingCounts() (clicks, keys int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.pending {
		if c == CategoryClick {
			clicks++
		} else {
			keys++
		}
	}
	return clicks, keys
}

// RapidTyping reports whether the classifier currently considers typing
// rapid.
func (s *Scheduler) RapidTyping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rapidTyping
}
