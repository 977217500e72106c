// Package budget constrains resource consumption during observation.
// Every observer runs under a Guard; when any budget is exhausted the
// observer stops cleanly and records what it could not finish, rather
// than erroring out. Exhaustion is a signal, never a failure.
package budget

import (
	"sort"
	"sync"
	"time"
)

// Kind names a constrained resource.
type Kind string

const (
	Time         Kind = "time"
	BytesRead    Kind = "bytes_read"
	FilesScanned Kind = "files_scanned"
	Depth        Kind = "depth"
	Items        Kind = "items"
	APICalls     Kind = "api_calls"
)

// Limits declares the caps for one operation. A zero field means that
// resource is unconstrained.
type Limits struct {
	TimeSeconds float64
	Bytes       int64
	Files       int64
	Depth       int
	Items       int64
	APICalls    int64
}

// limit tracks consumption against a single cap.
type limit struct {
	cap      float64
	consumed float64
}

func (l *limit) remaining() float64 {
	r := l.cap - l.consumed
	if r < 0 {
		return 0
	}
	return r
}

func (l *limit) exhausted() bool { return l.consumed >= l.cap }

func (l *limit) utilization() float64 {
	if l.cap == 0 {
		return 1.0
	}
	return l.consumed / l.cap
}

// Guard tracks consumption for one observation run. It is safe for
// concurrent use. The zero-value Guard is not usable; construct with
// New or a preset.
type Guard struct {
	mu        sync.Mutex
	limits    map[Kind]*limit
	now       func() time.Time
	startedAt time.Time
	endedAt   time.Time
}

// New builds a guard from the given limits. Zero-valued limits are
// omitted entirely, leaving that resource unconstrained.
func New(l Limits) *Guard {
	g := &Guard{limits: map[Kind]*limit{}, now: time.Now}
	if l.TimeSeconds > 0 {
		g.limits[Time] = &limit{cap: l.TimeSeconds}
	}
	if l.Bytes > 0 {
		g.limits[BytesRead] = &limit{cap: float64(l.Bytes)}
	}
	if l.Files > 0 {
		g.limits[FilesScanned] = &limit{cap: float64(l.Files)}
	}
	if l.Depth > 0 {
		g.limits[Depth] = &limit{cap: float64(l.Depth)}
	}
	if l.Items > 0 {
		g.limits[Items] = &limit{cap: float64(l.Items)}
	}
	if l.APICalls > 0 {
		g.limits[APICalls] = &limit{cap: float64(l.APICalls)}
	}
	return g
}

// WithClock overrides the wall clock. Tests use this with a
// deterministic clock; production callers never do.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
	return g
}

// Start begins wall-clock tracking.
func (g *Guard) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.startedAt = g.now()
	g.endedAt = time.Time{}
}

// Stop freezes wall-clock tracking. Elapsed time no longer grows, so
// post-run summaries are stable.
func (g *Guard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.endedAt = g.now()
}

// elapsedSeconds requires g.mu held.
func (g *Guard) elapsedSeconds() float64 {
	if g.startedAt.IsZero() {
		return 0
	}
	end := g.endedAt
	if end.IsZero() {
		end = g.now()
	}
	return end.Sub(g.startedAt).Seconds()
}

// Consume records amount against kind and reports whether consumption
// stayed within the limit. The amount is recorded even when the answer
// is false, so totals always reflect actual usage.
func (g *Guard) Consume(kind Kind, amount float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.limits[kind]
	if !ok {
		return true
	}
	l.consumed += amount
	return l.consumed <= l.cap
}

// CanConsume reports whether amount would fit without recording it.
func (g *Guard) CanConsume(kind Kind, amount float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.limits[kind]
	if !ok {
		return true
	}
	return l.consumed+amount <= l.cap
}

// ConsumeFile records one scanned file and its bytes in a single step.
func (g *Guard) ConsumeFile(sizeBytes int64) bool {
	withinFiles := g.Consume(FilesScanned, 1)
	withinBytes := g.Consume(BytesRead, float64(sizeBytes))
	return withinFiles && withinBytes
}

// AtDepth reports whether depth is within the configured limit. Depth
// is compared, never consumed: visiting a directory at depth 3 twice
// costs nothing.
func (g *Guard) AtDepth(depth int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.limits[Depth]
	if !ok {
		return true
	}
	return float64(depth) <= l.cap
}

// AnyExhausted reports whether any budget, including elapsed time, has
// run out.
func (g *Guard) AnyExhausted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.limits[Time]; ok && g.elapsedSeconds() >= l.cap {
		return true
	}
	for kind, l := range g.limits {
		if kind != Time && l.exhausted() {
			return true
		}
	}
	return false
}

// CanContinue is the single check observers make between steps.
func (g *Guard) CanContinue() bool { return !g.AnyExhausted() }

// ExhaustedKinds lists every exhausted budget, sorted by name.
func (g *Guard) ExhaustedKinds() []Kind {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Kind
	if l, ok := g.limits[Time]; ok && g.elapsedSeconds() >= l.cap {
		out = append(out, Time)
	}
	for kind, l := range g.limits {
		if kind != Time && l.exhausted() {
			out = append(out, kind)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Remaining returns the unconsumed budget for kind, and false when the
// kind is unconstrained. Never negative.
func (g *Guard) Remaining(kind Kind) (float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.limits[kind]
	if !ok {
		return 0, false
	}
	if kind == Time {
		r := l.cap - g.elapsedSeconds()
		if r < 0 {
			r = 0
		}
		return r, true
	}
	return l.remaining(), true
}

// KindSummary is the reported state of a single budget.
type KindSummary struct {
	Limit       float64 `json:"limit"`
	Consumed    float64 `json:"consumed"`
	Remaining   float64 `json:"remaining"`
	Utilization float64 `json:"utilization"`
}

// Summary reports every configured budget. Time consumption is the
// elapsed wall clock, frozen once Stop has been called.
type Summary struct {
	Exhausted      bool                 `json:"exhausted"`
	ExhaustedKinds []Kind               `json:"exhausted_kinds,omitempty"`
	Budgets        map[Kind]KindSummary `json:"budgets"`
}

// Summary snapshots the guard's current state.
func (g *Guard) Summary() Summary {
	exhaustedKinds := g.ExhaustedKinds()

	g.mu.Lock()
	defer g.mu.Unlock()
	out := Summary{
		Exhausted:      len(exhaustedKinds) > 0,
		ExhaustedKinds: exhaustedKinds,
		Budgets:        map[Kind]KindSummary{},
	}
	for kind, l := range g.limits {
		consumed := l.consumed
		if kind == Time {
			consumed = g.elapsedSeconds()
		}
		remaining := l.cap - consumed
		if remaining < 0 {
			remaining = 0
		}
		utilization := 1.0
		if l.cap > 0 {
			utilization = consumed / l.cap
		}
		out.Budgets[kind] = KindSummary{
			Limit:       l.cap,
			Consumed:    consumed,
			Remaining:   remaining,
			Utilization: utilization,
		}
	}
	return out
}
