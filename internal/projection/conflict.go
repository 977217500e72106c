package projection

import (
	"github.com/roach88/atlas/internal/event"
	"github.com/roach88/atlas/internal/ledger"
)

// ConflictRecord is one detected conflict. Conflicts are append-only and
// immutable: the core never merges, overwrites, or auto-resolves them.
// Resolution would be a future proposal event, not a mutation here.
type ConflictRecord struct {
	ConflictType string   `json:"conflict_type"`
	Description  string   `json:"description,omitempty"`
	ArtifactIDs  []string `json:"artifact_ids"`
	DetectedAt   float64  `json:"detected_at,omitempty"`
	EventID      string   `json:"event_id"`
}

// ConflictProjector accumulates CONFLICT_DETECTED events.
type ConflictProjector struct {
	conflicts []ConflictRecord
}

// NewConflictProjector returns an empty conflict projector.
func NewConflictProjector() *ConflictProjector {
	return &ConflictProjector{}
}

// Apply reduces one event. Non-conflict events are no-ops.
func (p *ConflictProjector) Apply(r ledger.Record) {
	e := r.Event
	if e.EventType != event.ConflictDetected {
		return
	}

	conflictType, _ := e.PayloadString("conflict_type")
	if conflictType == "" {
		conflictType = "unknown"
	}
	description, _ := e.PayloadString("description")

	ids := stringList(e.Payload["artifact_ids"])
	if len(ids) == 0 {
		ids = append([]string(nil), e.ArtifactRefs...)
	}

	p.conflicts = append(p.conflicts, ConflictRecord{
		ConflictType: conflictType,
		Description:  description,
		ArtifactIDs:  ids,
		DetectedAt:   e.TS,
		EventID:      e.EventID,
	})
}

// GetState returns a copy of all conflicts in detection order.
func (p *ConflictProjector) GetState() []ConflictRecord {
	out := make([]ConflictRecord, len(p.conflicts))
	for i, c := range p.conflicts {
		c.ArtifactIDs = append([]string(nil), c.ArtifactIDs...)
		out[i] = c
	}
	return out
}

// For returns conflicts implicating an artifact.
func (p *ConflictProjector) For(artifactID string) []ConflictRecord {
	var out []ConflictRecord
	for _, c := range p.conflicts {
		for _, id := range c.ArtifactIDs {
			if id == artifactID {
				c.ArtifactIDs = append([]string(nil), c.ArtifactIDs...)
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Reset clears the conflict list for a fresh rebuild.
func (p *ConflictProjector) Reset() {
	p.conflicts = nil
}
