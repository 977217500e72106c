package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roach88/atlas/internal/event"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("ledger: store is closed")

// Appender is the write half of the ledger contract. Eyes and the
// confidence engine emit events through it; they never touch ledger files
// directly.
type Appender interface {
	Append(e event.Envelope) (int64, error)
}

// Record pairs an event with the sequence number the store assigned at
// append time.
type Record struct {
	Seq   int64
	Event event.Envelope
}

// Store is the durable append-only event log. A single Store owns the
// write path for a ledger directory; concurrent readers are safe.
type Store struct {
	dir string
	now func() time.Time

	mu      sync.Mutex
	closed  bool
	seq     int64 // last assigned sequence number
	current *os.File
	curName string
}

// Open opens (or creates) the ledger directory and scans existing segments
// to recover the sequence counter. Malformed lines found during the scan
// are ignored, exactly as they would be on any read.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create dir: %w", err)
	}

	s := &Store{dir: dir, now: time.Now}

	// Recover the sequence counter: one sequence number per parseable
	// line, matching what a full read pass would assign.
	if _, err := s.forEachLine(func(seg string, line []byte) error {
		var e event.Envelope
		if err := json.Unmarshal(line, &e); err != nil {
			return nil
		}
		s.seq++
		return nil
	}); err != nil {
		return nil, err
	}

	return s, nil
}

// Dir returns the ledger directory.
func (s *Store) Dir() string {
	return s.dir
}

// Close releases the current segment handle. Already-appended events are
// durable regardless; Close exists to free the descriptor.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.current == nil {
		return nil
	}
	err := s.current.Close()
	s.current = nil
	s.curName = ""
	return err
}

// WithClock overrides the wall clock used to pick day segments. Tests use
// this with a testutil.DeterministicClock.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// segmentName returns the day-partition file name for an append instant.
// Segments are keyed by when the event was written, never by the event's
// own timestamp, so segment order always equals append order and an older
// segment is never reopened once a later one exists.
func segmentName(t time.Time) string {
	return t.UTC().Format("2006-01-02") + ".jsonl"
}

// Append writes one event to its day segment and returns the assigned
// sequence number. The append path holds the writer lock through
// assign → serialize → write → sync so sequence numbers are gapless and
// monotonic even under concurrent callers.
//
// Storage failures (open, write, fsync) are fatal to the call and
// propagate unmodified: the ledger cannot silently lose an event.
func (s *Store) Append(e event.Envelope) (int64, error) {
	line, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("ledger: marshal event %s: %w", e.EventID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	name := segmentName(s.now())
	if s.current == nil || s.curName != name {
		if s.current != nil {
			if err := s.current.Close(); err != nil {
				return 0, fmt.Errorf("ledger: close segment %s: %w", s.curName, err)
			}
		}
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, fmt.Errorf("ledger: open segment %s: %w", name, err)
		}
		s.current = f
		s.curName = name
	}

	if _, err := s.current.Write(append(line, '\n')); err != nil {
		return 0, fmt.Errorf("ledger: write event %s: %w", e.EventID, err)
	}
	if err := s.current.Sync(); err != nil {
		return 0, fmt.Errorf("ledger: sync segment %s: %w", s.curName, err)
	}

	s.seq++
	return s.seq, nil
}

// segments lists segment files in replay order (lexicographic file names
// equal chronological order for YYYY-MM-DD naming).
func (s *Store) segments() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("ledger: list segments: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
