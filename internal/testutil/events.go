package testutil

import (
	"fmt"

	"github.com/roach88/atlas/internal/event"
)

// EventBuilder produces envelopes with sequential ids and timestamps so
// tests and golden files stay byte-stable across runs.
type EventBuilder struct {
	Module string
	ts     *TimestampSource
	n      int
}

// NewEventBuilder creates a builder whose events start at timestamp
// base and step by one second.
func NewEventBuilder(module string, base float64) *EventBuilder {
	return &EventBuilder{Module: module, ts: NewTimestampSource(base, 1)}
}

func (b *EventBuilder) nextID(prefix string) string {
	b.n++
	return fmt.Sprintf("%s-%04d", prefix, b.n)
}

// stamp overrides the random id and wall-clock timestamp a factory set.
func (b *EventBuilder) stamp(e event.Envelope, prefix string) event.Envelope {
	e.EventID = b.nextID(prefix)
	e.TS = b.ts.Next()
	return e
}

// Seen builds a deterministic ARTIFACT_SEEN event.
func (b *EventBuilder) Seen(artifactID, locator string, size int64, opts ...event.Option) event.Envelope {
	return b.stamp(event.NewArtifactSeen(b.Module, artifactID, locator, size, opts...), "obs")
}

// Changed builds a deterministic ARTIFACT_CHANGED event.
func (b *EventBuilder) Changed(artifactID, previousHash, currentHash string, opts ...event.Option) event.Envelope {
	return b.stamp(event.NewArtifactChanged(b.Module, artifactID, previousHash, currentHash, opts...), "chg")
}

// Fingerprint builds a deterministic FINGERPRINT_COMPUTED event.
func (b *EventBuilder) Fingerprint(artifactID, contentHash string, size int64, opts ...event.Option) event.Envelope {
	return b.stamp(event.NewFingerprintComputed(b.Module, artifactID, contentHash, "", size, 0, opts...), "fp")
}

// Tags builds a deterministic TAGS_PROPOSED event.
func (b *EventBuilder) Tags(artifactID string, tags []string, tagType string, opts ...event.Option) event.Envelope {
	return b.stamp(event.NewTagsProposed(b.Module, artifactID, tags, tagType, opts...), "tag")
}

// Relation builds a deterministic RELATION_PROPOSED event.
func (b *EventBuilder) Relation(sourceID, targetID, relationType string, opts ...event.Option) event.Envelope {
	return b.stamp(event.NewRelationProposed(b.Module, sourceID, targetID, relationType, opts...), "rel")
}

// Conflict builds a deterministic CONFLICT_DETECTED event.
func (b *EventBuilder) Conflict(artifactIDs []string, conflictType, description string, opts ...event.Option) event.Envelope {
	return b.stamp(event.NewConflictDetected(b.Module, artifactIDs, conflictType, description, opts...), "cnf")
}

// Confidence builds a deterministic CONFIDENCE_UPDATED event.
func (b *EventBuilder) Confidence(artifactID string, oldScore *float64, newScore float64, reason string, opts ...event.Option) event.Envelope {
	return b.stamp(event.NewConfidenceUpdated(b.Module, artifactID, oldScore, newScore, reason, opts...), "cu")
}
