package ledger

import (
	"sync"

	"github.com/roach88/atlas/internal/event"
)

// Memory is an in-memory ledger with the same read/write surface as Store.
// Used by tests and by components that buffer events before a durable
// append (nothing read from a Memory is ever authoritative).
type Memory struct {
	mu     sync.Mutex
	events []event.Envelope
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{}
}

// Append stores the event and returns its sequence number.
func (m *Memory) Append(e event.Envelope) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return int64(len(m.events)), nil
}

// ForEach iterates events matching the filter in append order.
func (m *Memory) ForEach(filter Filter, fn func(Record) error) (ReadStats, error) {
	m.mu.Lock()
	snapshot := append([]event.Envelope(nil), m.events...)
	m.mu.Unlock()

	stats := ReadStats{Lines: len(snapshot)}
	for i, e := range snapshot {
		if !filter.matches(e) {
			continue
		}
		if err := fn(Record{Seq: int64(i + 1), Event: e}); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// Read materializes all events matching the filter.
func (m *Memory) Read(filter Filter) ([]Record, ReadStats, error) {
	var records []Record
	stats, _ := m.ForEach(filter, func(r Record) error {
		records = append(records, r)
		return nil
	})
	return records, stats, nil
}

// GetEvent looks up an event by id.
func (m *Memory) GetEvent(eventID string) (event.Envelope, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.EventID == eventID {
			return e, true, nil
		}
	}
	return event.Envelope{}, false, nil
}

// Count returns the number of events, optionally restricted to one type.
func (m *Memory) Count(types ...event.Type) (int64, error) {
	var n int64
	_, err := m.ForEach(Filter{Types: types}, func(Record) error {
		n++
		return nil
	})
	return n, err
}

// LatestSequence returns the number of appended events.
func (m *Memory) LatestSequence() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.events))
}

// Log is the read surface shared by Store and Memory. The projection
// engine rebuilds from any Log.
type Log interface {
	ForEach(filter Filter, fn func(Record) error) (ReadStats, error)
	LatestSequence() int64
}
