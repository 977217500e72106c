package projection

import (
	"github.com/roach88/atlas/internal/ledger"
)

// Projector is the reducer contract the engine composes. Apply must be a
// pure state transition on the projector's own state, with no I/O or side
// effects, so a rebuild is always bit-identical to incremental
// application of the same sequence.
type Projector interface {
	Apply(r ledger.Record)
	Reset()
}

// Engine runs every projector over the event stream in ledger order.
// Projector states are disjoint, so they could consume in parallel; the
// engine keeps the single-threaded linear scan because replay cost is
// dominated by reading the log, and partial checkpoints are only valid
// when they record the exact last sequence consumed.
type Engine struct {
	Artifacts *ArtifactProjector
	Relations *RelationProjector
	Tags      *TagProjector
	Conflicts *ConflictProjector

	projectors []Projector
	lastSeq    int64
}

// NewEngine returns an engine with the standard projector set.
func NewEngine() *Engine {
	e := &Engine{
		Artifacts: NewArtifactProjector(),
		Relations: NewRelationProjector(),
		Tags:      NewTagProjector(),
		Conflicts: NewConflictProjector(),
	}
	e.projectors = []Projector{e.Artifacts, e.Relations, e.Tags, e.Conflicts}
	return e
}

// Apply incrementally reduces one record into every projector.
func (e *Engine) Apply(r ledger.Record) {
	for _, p := range e.projectors {
		p.Apply(r)
	}
	if r.Seq > e.lastSeq {
		e.lastSeq = r.Seq
	}
}

// RebuildFrom resets all projectors and replays the full log from empty
// state. Cancelling a rebuild is safe: just run it again.
func (e *Engine) RebuildFrom(log ledger.Log) (ledger.ReadStats, error) {
	e.Reset()
	return log.ForEach(ledger.Filter{}, func(r ledger.Record) error {
		e.Apply(r)
		return nil
	})
}

// Reset clears every projector for a fresh rebuild.
func (e *Engine) Reset() {
	for _, p := range e.projectors {
		p.Reset()
	}
	e.lastSeq = 0
}

// LastSeq returns the highest sequence number consumed, 0 before any
// event. A checkpoint is only resumable from exactly this value.
func (e *Engine) LastSeq() int64 {
	return e.lastSeq
}
