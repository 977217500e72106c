package projection

import (
	"github.com/roach88/atlas/internal/event"
	"github.com/roach88/atlas/internal/ledger"
)

// RelationEdge is a directed, typed, confidence-weighted edge between two
// artifacts. The uniqueness key is (source, target, type); a re-proposal
// updates confidence and status of the existing edge rather than adding a
// duplicate.
type RelationEdge struct {
	SourceID     string  `json:"source_id"`
	TargetID     string  `json:"target_id"`
	RelationType string  `json:"relation_type"`
	Confidence   float64 `json:"confidence,omitempty"`
	Status       string  `json:"status"`
	LastProposed float64 `json:"last_proposed,omitempty"`
	EventID      string  `json:"event_id,omitempty"`
}

type relationKey struct {
	source, target, relationType string
}

// RelationProjector reduces RELATION_PROPOSED events into the relation
// graph, upserting by (source, target, type).
type RelationProjector struct {
	edges []RelationEdge
	index map[relationKey]int
}

// NewRelationProjector returns an empty relation projector.
func NewRelationProjector() *RelationProjector {
	return &RelationProjector{index: map[relationKey]int{}}
}

// Apply reduces one event. Non-relation events are no-ops.
func (p *RelationProjector) Apply(r ledger.Record) {
	e := r.Event
	if e.EventType != event.RelationProposed {
		return
	}

	source, _ := e.PayloadString("source_id")
	target, _ := e.PayloadString("target_id")
	// Direction also lives in artifact_refs order: index 0 is the source.
	if source == "" && len(e.ArtifactRefs) >= 1 {
		source = e.ArtifactRefs[0]
	}
	if target == "" && len(e.ArtifactRefs) >= 2 {
		target = e.ArtifactRefs[1]
	}
	relationType, _ := e.PayloadString("relation_type")
	if source == "" || target == "" || relationType == "" {
		return
	}

	status, ok := e.PayloadString("status")
	if !ok || status == "" {
		status = "proposed"
	}
	confidence := 0.0
	if e.Confidence != nil {
		confidence = *e.Confidence
	} else if c, ok := e.PayloadNumber("confidence_score"); ok {
		confidence = c
	}

	edge := RelationEdge{
		SourceID:     source,
		TargetID:     target,
		RelationType: relationType,
		Confidence:   confidence,
		Status:       status,
		LastProposed: e.TS,
		EventID:      e.EventID,
	}

	key := relationKey{source, target, relationType}
	if idx, exists := p.index[key]; exists {
		p.edges[idx] = edge
		return
	}
	p.index[key] = len(p.edges)
	p.edges = append(p.edges, edge)
}

// GetState returns a copy of all edges in first-proposal order.
func (p *RelationProjector) GetState() []RelationEdge {
	return append([]RelationEdge(nil), p.edges...)
}

// For returns edges touching an artifact, as source and/or target.
func (p *RelationProjector) For(artifactID string, asSource, asTarget bool) []RelationEdge {
	var out []RelationEdge
	for _, edge := range p.edges {
		if asSource && edge.SourceID == artifactID {
			out = append(out, edge)
			continue
		}
		if asTarget && edge.TargetID == artifactID {
			out = append(out, edge)
		}
	}
	return out
}

// Reset clears the graph for a fresh rebuild.
func (p *RelationProjector) Reset() {
	p.edges = nil
	p.index = map[relationKey]int{}
}
