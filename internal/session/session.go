// Package session brackets bounded operations. A session ties together
// the events one scan produced, carries its budget, and closes with an
// accounting summary. Sessions are bookkeeping around the ledger, never
// a second source of truth.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/roach88/atlas/internal/budget"
	"github.com/roach88/atlas/internal/event"
	"github.com/roach88/atlas/internal/eye"
	"github.com/roach88/atlas/internal/ledger"
)

// State is the session lifecycle phase.
type State string

const (
	Created   State = "created"
	Active    State = "active"
	Completed State = "completed"
	Aborted   State = "aborted"
)

// Session is one bounded operation.
type Session struct {
	ID      string
	Target  string
	Command string
	Guard   *budget.Guard

	mu             sync.Mutex
	state          State
	startedAt      time.Time
	endedAt        time.Time
	filesSeen      int64
	bytesAccounted int64
	eventsEmitted  int64
	errors         int64
	stoppedReason  string
}

// New creates a session in the Created state.
func New(target, command string, guard *budget.Guard) *Session {
	return &Session{
		ID:      event.NewID("ses"),
		Target:  target,
		Command: command,
		Guard:   guard,
		state:   Created,
	}
}

// Start activates the session, starts its budget clock, and records
// SESSION_STARTED.
func (s *Session) Start(app ledger.Appender, module string) error {
	s.mu.Lock()
	if s.state != Created {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("session: cannot start from state %q", state)
	}
	s.state = Active
	s.startedAt = time.Now()
	s.mu.Unlock()

	if s.Guard != nil {
		s.Guard.Start()
	}
	if app != nil {
		env := event.NewSessionStarted(module, s.ID, s.Target, s.Command)
		if _, err := app.Append(env); err != nil {
			return fmt.Errorf("session: recording start: %w", err)
		}
	}
	return nil
}

// RecordReport folds an observation report into the session counters.
func (s *Session) RecordReport(r eye.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesSeen += r.FilesSeen
	s.bytesAccounted += r.BytesAccounted
	s.eventsEmitted += r.EventsEmitted
	if r.StoppedReason != "" {
		s.stoppedReason = r.StoppedReason
	}
}

// RecordCounts adds raw counters for callers not working from a report.
func (s *Session) RecordCounts(files, bytes, events int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesSeen += files
	s.bytesAccounted += bytes
	s.eventsEmitted += events
}

// RecordError counts one error observed during the session.
func (s *Session) RecordError() {
	s.mu.Lock()
	s.errors++
	s.mu.Unlock()
}

// StopReason marks why the session stopped early.
func (s *Session) StopReason(reason string) {
	s.mu.Lock()
	s.stoppedReason = reason
	s.mu.Unlock()
}

// Complete closes the session, freezes the budget clock, and records
// SESSION_ENDED with the accounting summary.
func (s *Session) Complete(app ledger.Appender, module string) error {
	return s.end(app, module, Completed)
}

// Abort closes the session as aborted with a reason.
func (s *Session) Abort(app ledger.Appender, module, reason string) error {
	s.StopReason(reason)
	return s.end(app, module, Aborted)
}

func (s *Session) end(app ledger.Appender, module string, final State) error {
	s.mu.Lock()
	if s.state != Active {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("session: cannot end from state %q", state)
	}
	s.state = final
	s.endedAt = time.Now()
	durationMS := s.endedAt.Sub(s.startedAt).Milliseconds()
	files, bytes, reason := s.filesSeen, s.bytesAccounted, s.stoppedReason
	s.mu.Unlock()

	if s.Guard != nil {
		s.Guard.Stop()
	}
	if app != nil {
		env := event.NewSessionEnded(module, s.ID, durationMS, files, bytes, reason)
		if _, err := app.Append(env); err != nil {
			return fmt.Errorf("session: recording end: %w", err)
		}
	}
	return nil
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Summary is the closed-form view of a session.
type Summary struct {
	SessionID      string `json:"session_id"`
	State          State  `json:"state"`
	Target         string `json:"target,omitempty"`
	Command        string `json:"command,omitempty"`
	DurationMS     int64  `json:"duration_ms"`
	FilesSeen      int64  `json:"files_seen"`
	BytesAccounted int64  `json:"bytes_accounted"`
	EventsEmitted  int64  `json:"events_emitted"`
	Errors         int64  `json:"errors"`
	StoppedReason  string `json:"stopped_reason,omitempty"`
}

// Summary snapshots the session.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	var durationMS int64
	if !s.startedAt.IsZero() {
		end := s.endedAt
		if end.IsZero() {
			end = time.Now()
		}
		durationMS = end.Sub(s.startedAt).Milliseconds()
	}
	return Summary{
		SessionID:      s.ID,
		State:          s.state,
		Target:         s.Target,
		Command:        s.Command,
		DurationMS:     durationMS,
		FilesSeen:      s.filesSeen,
		BytesAccounted: s.bytesAccounted,
		EventsEmitted:  s.eventsEmitted,
		Errors:         s.errors,
		StoppedReason:  s.stoppedReason,
	}
}
