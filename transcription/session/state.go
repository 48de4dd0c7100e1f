package session

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/transcription/intake"
)

// State is a step of a submission.
type State string

const (
	StateIdle         State = "idle"
	StateValidating   State = "validating"
	StateCapturing    State = "capturing"
	StateFileSelected State = "file_selected"
	StateSubmitting   State = "submitting"
	StateRetrying     State = "retrying"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
)

// Terminal reports whether s ends a submission.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

var transitions = map[State][]State{
	StateIdle:         {StateValidating},
	StateValidating:   {StateCapturing, StateFileSelected, StateFailed},
	StateCapturing:    {StateSubmitting, StateFailed},
	StateFileSelected: {StateSubmitting, StateFailed},
	StateSubmitting:   {StateRetrying, StateSucceeded, StateFailed},
	StateRetrying:     {StateSubmitting, StateFailed},
}

// CanTransition reports whether from -> to is a legal step.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// Event is delivered to the Observer on every transition.
type Event struct {
	SubmissionID string
	From         State
	State        State
	// Path is set once the upload path is known.
	Path string
	// Attempt is the current attempt for Submitting, the failed one for Retrying.
	Attempt int
	// Delay is the wait before the next attempt, set on Retrying.
	Delay time.Duration
	// Err is set on Retrying and Failed.
	Err      *errors.AppError
	Advisory *intake.Advisory
	At       time.Time
}

// Observer receives transitions. It is called synchronously and must not block.
type Observer func(Event)

// submission tracks the state of one submission.
type submission struct {
	id       string
	mu       sync.Mutex
	state    State
	path     string
	observer Observer
	now      func() time.Time
}

func newSubmission(id string, observer Observer, now func() time.Time) *submission {
	return &submission{id: id, state: StateIdle, observer: observer, now: now}
}

func (s *submission) current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// to moves to next and notifies the observer. Illegal steps and steps out of
// a terminal state are programming errors.
func (s *submission) to(next State, ev Event) error {
	s.mu.Lock()
	from := s.state
	if !CanTransition(from, next) {
		s.mu.Unlock()
		return fmt.Errorf("session: illegal transition %s -> %s", from, next)
	}
	s.state = next
	if ev.Path != "" {
		s.path = ev.Path
	}
	ev.Path = s.path
	s.mu.Unlock()

	if s.observer != nil {
		ev.SubmissionID = s.id
		ev.From = from
		ev.State = next
		ev.At = s.now()
		s.observer(ev)
	}
	return nil
}

// fail moves to Failed from any non-terminal state and returns err.
func (s *submission) fail(err *errors.AppError) *errors.AppError {
	if s.current().Terminal() {
		return err
	}
	_ = s.to(StateFailed, Event{Err: err})
	return err
}
