// Package eye holds the observers. An eye looks at some source, emits
// events describing what it saw, and respects its budget absolutely.
// Eyes never write state directly; the ledger is their only output.
package eye

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/atlas/internal/budget"
)

// Report summarizes one observation run.
type Report struct {
	FilesSeen      int64  `json:"files_seen"`
	BytesAccounted int64  `json:"bytes_accounted"`
	EventsEmitted  int64  `json:"events_emitted"`
	StoppedReason  string `json:"stopped_reason,omitempty"`
}

// Eye observes a target under a budget. Implementations stop cleanly
// on budget exhaustion and report why; exhaustion is never an error.
type Eye interface {
	Name() string
	Observe(ctx context.Context, target string, guard *budget.Guard, sessionID string) (Report, error)
}

// Registry maps eye names to implementations. Registration is explicit
// at startup; there is no init-time magic.
type Registry struct {
	mu   sync.RWMutex
	eyes map[string]Eye
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{eyes: map[string]Eye{}}
}

// Register adds an eye; a duplicate name is a programming error.
func (r *Registry) Register(e Eye) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.eyes[e.Name()]; exists {
		return fmt.Errorf("eye: %q already registered", e.Name())
	}
	r.eyes[e.Name()] = e
	return nil
}

// Get returns the eye registered under name.
func (r *Registry) Get(name string) (Eye, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.eyes[name]
	return e, ok
}

// Names lists registered eyes in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.eyes))
	for name := range r.eyes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
