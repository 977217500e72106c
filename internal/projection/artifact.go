package projection

import (
	"github.com/roach88/atlas/internal/event"
	"github.com/roach88/atlas/internal/ledger"
)

// TagEntry is the current value of one tag group on an artifact: the most
// recent proposal wins the slot, it is never appended to.
type TagEntry struct {
	Values     []string `json:"values"`
	Confidence float64  `json:"confidence,omitempty"`
	EventID    string   `json:"event_id,omitempty"`
}

// ArtifactState is the latest derived view of one artifact. It is created
// on the first event referencing an unseen artifact id, mutated in place
// by every subsequent relevant event during a replay pass, and never
// deleted; it simply stops being updated when observation ceases.
type ArtifactState struct {
	ArtifactID  string  `json:"artifact_id"`
	FirstSeenAt float64 `json:"first_seen_at,omitempty"`
	LastSeenAt  float64 `json:"last_seen_at,omitempty"`

	Locator     string `json:"locator,omitempty"`
	SourceType  string `json:"source_type,omitempty"`
	AccessScope string `json:"access_scope,omitempty"`

	// Latest fingerprint.
	ContentHash   string   `json:"content_hash,omitempty"`
	StructureHash string   `json:"structure_hash,omitempty"`
	SizeBytes     int64    `json:"size_bytes,omitempty"`
	EntropyScore  *float64 `json:"entropy_score,omitempty"`

	// Latest extraction summary.
	Extraction map[string]any `json:"extraction,omitempty"`

	// One current entry per tag group / role; latest proposal wins.
	Tags  map[string]TagEntry `json:"tags,omitempty"`
	Roles map[string]float64  `json:"roles,omitempty"`

	// Current confidence with its mandatory reasoning.
	Confidence          *float64 `json:"confidence,omitempty"`
	ConfidenceReasoning string   `json:"confidence_reasoning,omitempty"`

	// Monotonically increasing counters.
	ObservationCount int64 `json:"observation_count"`
	ChangeCount      int64 `json:"change_count"`
	ErrorCount       int64 `json:"error_count"`
}

func (a *ArtifactState) clone() *ArtifactState {
	c := *a
	if a.EntropyScore != nil {
		v := *a.EntropyScore
		c.EntropyScore = &v
	}
	if a.Confidence != nil {
		v := *a.Confidence
		c.Confidence = &v
	}
	if a.Extraction != nil {
		c.Extraction = make(map[string]any, len(a.Extraction))
		for k, v := range a.Extraction {
			c.Extraction[k] = v
		}
	}
	if a.Tags != nil {
		c.Tags = make(map[string]TagEntry, len(a.Tags))
		for k, v := range a.Tags {
			v.Values = append([]string(nil), v.Values...)
			c.Tags[k] = v
		}
	}
	if a.Roles != nil {
		c.Roles = make(map[string]float64, len(a.Roles))
		for k, v := range a.Roles {
			c.Roles[k] = v
		}
	}
	return &c
}

// ArtifactProjector reduces the event stream into per-artifact snapshots.
type ArtifactProjector struct {
	snapshots map[string]*ArtifactState
}

// NewArtifactProjector returns an empty artifact projector.
func NewArtifactProjector() *ArtifactProjector {
	return &ArtifactProjector{snapshots: map[string]*ArtifactState{}}
}

func (p *ArtifactProjector) ensure(artifactID string, ts float64) *ArtifactState {
	state, ok := p.snapshots[artifactID]
	if !ok {
		state = &ArtifactState{ArtifactID: artifactID, FirstSeenAt: ts}
		p.snapshots[artifactID] = state
	}
	return state
}

// Apply reduces one event into artifact state. Events without an artifact
// reference, and unknown event types, are no-ops.
func (p *ArtifactProjector) Apply(r ledger.Record) {
	e := r.Event
	artifactID := e.Artifact()
	if artifactID == "" {
		// Error events may still reference artifacts through refs.
		if e.EventType == event.ErrorRecorded {
			for _, ref := range e.ArtifactRefs {
				state := p.ensure(ref, e.TS)
				state.ErrorCount++
			}
		}
		return
	}

	state := p.ensure(artifactID, e.TS)
	if e.TS > state.LastSeenAt {
		state.LastSeenAt = e.TS
	}

	switch e.EventType {
	case event.ArtifactSeen:
		p.reduceSeen(state, e)
	case event.FingerprintComputed:
		p.reduceFingerprint(state, e)
	case event.ExtractionPerformed:
		p.reduceExtraction(state, e)
	case event.ArtifactChanged:
		state.ChangeCount++
		if hash, ok := e.PayloadString("current_hash"); ok {
			state.ContentHash = hash
		}
	case event.TagsProposed:
		p.reduceTags(state, e)
	case event.RolesProposed:
		p.reduceRoles(state, e)
	case event.ConfidenceUpdated:
		if score, ok := e.PayloadNumber("new_confidence"); ok {
			state.Confidence = &score
		} else if e.Confidence != nil {
			v := *e.Confidence
			state.Confidence = &v
		}
		if reason, ok := e.PayloadString("reason"); ok {
			state.ConfidenceReasoning = reason
		}
	case event.ErrorRecorded:
		state.ErrorCount++
	}
	// Anything else: forward compatibility, silently ignored.
}

func (p *ArtifactProjector) reduceSeen(state *ArtifactState, e event.Envelope) {
	state.ObservationCount++
	// Legacy lines use "path" where the canonical schema says "locator".
	if locator, ok := e.PayloadString("locator"); ok {
		state.Locator = locator
	} else if path, ok := e.PayloadString("path"); ok {
		state.Locator = path
	}
	if scope, ok := e.PayloadString("access_scope"); ok {
		state.AccessScope = scope
	}
	if sourceType, ok := e.PayloadString("source_type"); ok {
		state.SourceType = sourceType
	}
	if hash, ok := e.PayloadString("content_hash"); ok {
		state.ContentHash = hash
	}
	if size, ok := e.PayloadNumber("size_bytes"); ok {
		state.SizeBytes = int64(size)
	}
	if e.Confidence != nil {
		v := *e.Confidence
		state.Confidence = &v
	}
}

// fingerprint field aliases, oldest convention last.
var hashAliases = []string{"content_hash", "hash", "fingerprint"}

func (p *ArtifactProjector) reduceFingerprint(state *ArtifactState, e event.Envelope) {
	for _, alias := range hashAliases {
		if hash, ok := e.PayloadString(alias); ok {
			state.ContentHash = hash
			break
		}
	}
	if hash, ok := e.PayloadString("structure_hash"); ok {
		state.StructureHash = hash
	}
	if size, ok := e.PayloadNumber("size_bytes"); ok {
		state.SizeBytes = int64(size)
	}
	if entropy, ok := e.PayloadNumber("entropy_score"); ok {
		state.EntropyScore = &entropy
	}
}

func (p *ArtifactProjector) reduceExtraction(state *ArtifactState, e event.Envelope) {
	extraction := map[string]any{}
	if depth, ok := e.PayloadNumber("extraction_depth"); ok {
		extraction["depth"] = depth
	}
	if metadata, ok := e.Payload["extracted_metadata"].(map[string]any); ok {
		extraction["metadata"] = metadata
	}
	if len(extraction) > 0 {
		state.Extraction = extraction
	}
	if errs, ok := e.Payload["extraction_errors"].([]any); ok {
		state.ErrorCount += int64(len(errs))
	}
}

func (p *ArtifactProjector) reduceTags(state *ArtifactState, e event.Envelope) {
	values := stringList(e.Payload["tags"])
	if len(values) == 0 {
		return
	}
	group, ok := e.PayloadString("tag_type")
	if !ok || group == "" {
		group = "general"
	}
	entry := TagEntry{Values: values, EventID: e.EventID}
	if e.Confidence != nil {
		entry.Confidence = *e.Confidence
	}
	if state.Tags == nil {
		state.Tags = map[string]TagEntry{}
	}
	state.Tags[group] = entry
}

func (p *ArtifactProjector) reduceRoles(state *ArtifactState, e event.Envelope) {
	roles := stringList(e.Payload["roles"])
	if len(roles) == 0 {
		return
	}
	if state.Roles == nil {
		state.Roles = map[string]float64{}
	}
	confidence := 0.0
	if e.Confidence != nil {
		confidence = *e.Confidence
	}
	for _, role := range roles {
		state.Roles[role] = confidence
	}
}

// stringList extracts string elements from a decoded JSON list.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if direct, ok := v.([]string); ok {
			return append([]string(nil), direct...)
		}
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// GetState returns a deep copy of every artifact snapshot keyed by id.
func (p *ArtifactProjector) GetState() map[string]*ArtifactState {
	out := make(map[string]*ArtifactState, len(p.snapshots))
	for id, state := range p.snapshots {
		out[id] = state.clone()
	}
	return out
}

// Get returns a copy of one artifact's snapshot.
func (p *ArtifactProjector) Get(artifactID string) (*ArtifactState, bool) {
	state, ok := p.snapshots[artifactID]
	if !ok {
		return nil, false
	}
	return state.clone(), true
}

// Reset clears all snapshots for a fresh rebuild.
func (p *ArtifactProjector) Reset() {
	p.snapshots = map[string]*ArtifactState{}
}
