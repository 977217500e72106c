package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/atlas/internal/event"
)

// Filter narrows an iteration pass. Zero values mean "no constraint".
// Filtering never changes ordering: matching events are always yielded in
// sequence-number order.
type Filter struct {
	// Since/Until bound the event ts (inclusive), in unix seconds.
	Since float64
	Until float64
	// Types restricts to an event-type set.
	Types []event.Type
	// ArtifactID matches events whose canonical artifact id or artifact
	// refs include the id.
	ArtifactID string
	// SessionID matches the envelope session_id.
	SessionID string
}

func (f Filter) matches(e event.Envelope) bool {
	if f.Since != 0 && e.TS < f.Since {
		return false
	}
	if f.Until != 0 && e.TS > f.Until {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if e.EventType == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.ArtifactID != "" {
		if e.Artifact() != f.ArtifactID && !containsRef(e.ArtifactRefs, f.ArtifactID) {
			return false
		}
	}
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	return true
}

func containsRef(refs []string, id string) bool {
	for _, ref := range refs {
		if ref == id {
			return true
		}
	}
	return false
}

// ReadStats reports what a read pass saw. Skipped counts malformed lines
// (torn writes from crashes, foreign garbage); they are recovered locally,
// never fatal.
type ReadStats struct {
	Lines   int
	Skipped int
}

// forEachLine streams raw lines of every segment in replay order.
func (s *Store) forEachLine(fn func(segment string, line []byte) error) (ReadStats, error) {
	var stats ReadStats

	names, err := s.segments()
	if err != nil {
		return stats, err
	}

	for _, name := range names {
		f, err := os.Open(filepath.Join(s.dir, name))
		if err != nil {
			return stats, fmt.Errorf("ledger: open segment %s: %w", name, err)
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			stats.Lines++
			if err := fn(name, line); err != nil {
				f.Close()
				return stats, err
			}
		}
		scanErr := scanner.Err()
		f.Close()
		if scanErr != nil {
			return stats, fmt.Errorf("ledger: read segment %s: %w", name, scanErr)
		}
	}

	return stats, nil
}

// errStop is a sentinel used to break out of iteration early.
var errStop = fmt.Errorf("ledger: stop iteration")

// ForEach streams events matching the filter, in sequence order, invoking
// fn for each. Returning an error from fn aborts the pass. Malformed lines
// are skipped and counted in the returned stats.
func (s *Store) ForEach(filter Filter, fn func(Record) error) (ReadStats, error) {
	var seq int64
	var skipped int
	stats, err := s.forEachLine(func(segment string, line []byte) error {
		var e event.Envelope
		if err := json.Unmarshal(line, &e); err != nil {
			skipped++
			return nil
		}
		seq++
		if !filter.matches(e) {
			return nil
		}
		return fn(Record{Seq: seq, Event: e})
	})
	stats.Skipped = skipped
	return stats, err
}

// Read materializes all events matching the filter, in sequence order.
func (s *Store) Read(filter Filter) ([]Record, ReadStats, error) {
	var records []Record
	stats, err := s.ForEach(filter, func(r Record) error {
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	return records, stats, nil
}

// GetEvent looks up a single event by id. Absence is a normal "not found",
// reported through ok, not an error.
func (s *Store) GetEvent(eventID string) (event.Envelope, bool, error) {
	var found event.Envelope
	var ok bool
	_, err := s.ForEach(Filter{}, func(r Record) error {
		if r.Event.EventID == eventID {
			found = r.Event
			ok = true
			return errStop
		}
		return nil
	})
	if err != nil && err != errStop {
		return event.Envelope{}, false, err
	}
	return found, ok, nil
}

// Count returns the number of events, optionally restricted to one type.
func (s *Store) Count(types ...event.Type) (int64, error) {
	var n int64
	_, err := s.ForEach(Filter{Types: types}, func(Record) error {
		n++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// LatestSequence returns the highest assigned sequence number, 0 when the
// ledger is empty.
func (s *Store) LatestSequence() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}
