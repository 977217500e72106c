package event

// SchemaVersion identifies the envelope schema. Adding an event kind bumps
// this together with the validator's payload table.
const SchemaVersion = "v0"

// Type identifies an event kind. The set is closed: unknown values are a
// hard validation failure on ingest, and a silent no-op during projection.
type Type string

const (
	// Observation events (Eyes)
	ArtifactSeen          Type = "ARTIFACT_SEEN"
	ArtifactChanged       Type = "ARTIFACT_CHANGED"
	FingerprintComputed   Type = "FINGERPRINT_COMPUTED"
	ExtractionPerformed   Type = "EXTRACTION_PERFORMED"
	AccessLimitationNoted Type = "ACCESS_LIMITATION_NOTED"
	RemoteLookupDeclined  Type = "REMOTE_LOOKUP_DECLINED"

	// Interpretation events (Thread)
	TagsProposed     Type = "TAGS_PROPOSED"
	RolesProposed    Type = "ROLES_PROPOSED"
	RelationProposed Type = "RELATION_PROPOSED"
	ConflictDetected Type = "CONFLICT_DETECTED"
	HypothesisNoted  Type = "HYPOTHESIS_NOTED"

	// Belief management events (Spine)
	ConfidenceUpdated     Type = "CONFIDENCE_UPDATED"
	FreshnessDecayApplied Type = "FRESHNESS_DECAY_APPLIED"
	ArtifactSuperseded    Type = "ARTIFACT_SUPERSEDED"

	// Maintenance events
	ArchiveRecommended    Type = "ARCHIVE_RECOMMENDED"
	PruneCacheRecommended Type = "PRUNE_CACHE_RECOMMENDED"
	FileArchived          Type = "FILE_ARCHIVED"

	// Session and system events
	SessionStarted  Type = "SESSION_STARTED"
	SessionEnded    Type = "SESSION_ENDED"
	BudgetExhausted Type = "BUDGET_EXHAUSTED"
	ErrorRecorded   Type = "ERROR_RECORDED"
)

// KnownTypes enumerates every valid event type.
var KnownTypes = map[Type]bool{
	ArtifactSeen:          true,
	ArtifactChanged:       true,
	FingerprintComputed:   true,
	ExtractionPerformed:   true,
	AccessLimitationNoted: true,
	RemoteLookupDeclined:  true,
	TagsProposed:          true,
	RolesProposed:         true,
	RelationProposed:      true,
	ConflictDetected:      true,
	HypothesisNoted:       true,
	ConfidenceUpdated:     true,
	FreshnessDecayApplied: true,
	ArtifactSuperseded:    true,
	ArchiveRecommended:    true,
	PruneCacheRecommended: true,
	FileArchived:          true,
	SessionStarted:        true,
	SessionEnded:          true,
	BudgetExhausted:       true,
	ErrorRecorded:         true,
}

// Known reports whether t is part of the closed event-type set.
func Known(t Type) bool {
	return KnownTypes[t]
}

// Actor identifies the component that emitted an event.
type Actor struct {
	Module string `json:"module"`
}

// Envelope is the wire form of an event: one JSON object per ledger line.
//
// ArtifactID at the envelope root is the canonical location; readers fall
// back to payload["artifact_id"] for lines written by older emitters.
// ArtifactRefs is ordered: for binary relations index 0 is the source and
// index 1 the target.
type Envelope struct {
	EventID       string         `json:"event_id"`
	EventType     Type           `json:"event_type"`
	TS            float64        `json:"ts"`
	Actor         Actor          `json:"actor"`
	ArtifactID    string         `json:"artifact_id,omitempty"`
	Confidence    *float64       `json:"confidence,omitempty"`
	EvidenceRefs  []string       `json:"evidence_refs,omitempty"`
	SessionID     string         `json:"session_id,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	ArtifactRefs  []string       `json:"artifact_refs,omitempty"`
	EventRefs     []string       `json:"event_refs,omitempty"`
	Payload       map[string]any `json:"payload"`
}

// PayloadString returns payload[key] if present and a string.
func (e Envelope) PayloadString(key string) (string, bool) {
	v, ok := e.Payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// PayloadNumber returns payload[key] coerced to float64. JSON decoding
// produces float64 for all numbers, but events built in-process may carry
// int values.
func (e Envelope) PayloadNumber(key string) (float64, bool) {
	v, ok := e.Payload[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Artifact returns the canonical artifact id for the event: the envelope
// root field, falling back to the payload for legacy lines.
func (e Envelope) Artifact() string {
	if e.ArtifactID != "" {
		return e.ArtifactID
	}
	if id, ok := e.PayloadString("artifact_id"); ok {
		return id
	}
	return ""
}
