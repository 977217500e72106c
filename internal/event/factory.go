package event

// Factory functions for the event kinds emitted inside this repository.
// Each returns a fully formed Envelope carrying the canonical schema:
// artifact_id at the envelope root, payload fields per the validator's
// schema table. Externally produced lines may use legacy layouts; those
// are handled on the read side only.

// Option mutates an envelope under construction.
type Option func(*Envelope)

// WithSession links the event to a session.
func WithSession(sessionID string) Option {
	return func(e *Envelope) { e.SessionID = sessionID }
}

// WithCorrelation links related events.
func WithCorrelation(correlationID string) Option {
	return func(e *Envelope) { e.CorrelationID = correlationID }
}

// WithConfidence attaches an envelope-level confidence score.
func WithConfidence(score float64) Option {
	return func(e *Envelope) { e.Confidence = &score }
}

// WithEvidence attaches evidence event references.
func WithEvidence(refs ...string) Option {
	return func(e *Envelope) { e.EvidenceRefs = append(e.EvidenceRefs, refs...) }
}

// WithTimestamp overrides the capture time. Tests use this together with a
// deterministic clock; production emitters never set it.
func WithTimestamp(ts float64) Option {
	return func(e *Envelope) { e.TS = ts }
}

// New builds an envelope of any known type with an explicit payload.
// Prefer the typed factories below where one exists.
func New(t Type, module, idPrefix string, payload map[string]any, opts ...Option) Envelope {
	if payload == nil {
		payload = map[string]any{}
	}
	e := Envelope{
		EventID:   NewID(idPrefix),
		EventType: t,
		TS:        Now(),
		Actor:     Actor{Module: module},
		Payload:   payload,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// NewArtifactSeen records an observation of an artifact at a locator.
func NewArtifactSeen(module, artifactID, locator string, sizeBytes int64, opts ...Option) Envelope {
	e := New(ArtifactSeen, module, "obs", map[string]any{
		"artifact_id": artifactID,
		"locator":     locator,
		"size_bytes":  sizeBytes,
	}, opts...)
	e.ArtifactID = artifactID
	e.ArtifactRefs = []string{artifactID}
	return e
}

// NewArtifactChanged records that an artifact's content differs from the
// last observed hash.
func NewArtifactChanged(module, artifactID, previousHash, currentHash string, opts ...Option) Envelope {
	e := New(ArtifactChanged, module, "chg", map[string]any{
		"artifact_id":   artifactID,
		"previous_hash": previousHash,
		"current_hash":  currentHash,
	}, opts...)
	e.ArtifactID = artifactID
	e.ArtifactRefs = []string{artifactID}
	return e
}

// NewFingerprintComputed records fingerprint computation for an artifact.
// structureHash and entropy may be zero-valued when not computed.
func NewFingerprintComputed(module, artifactID, contentHash, structureHash string, sizeBytes int64, entropy float64, opts ...Option) Envelope {
	payload := map[string]any{
		"artifact_id":  artifactID,
		"content_hash": contentHash,
		"size_bytes":   sizeBytes,
	}
	if structureHash != "" {
		payload["structure_hash"] = structureHash
	}
	if entropy > 0 {
		payload["entropy_score"] = entropy
	}
	e := New(FingerprintComputed, module, "fp", payload, opts...)
	e.ArtifactID = artifactID
	e.ArtifactRefs = []string{artifactID}
	return e
}

// NewExtractionPerformed records a content extraction pass.
func NewExtractionPerformed(module, artifactID string, depth int, metadata map[string]any, extractionErrors []string, opts ...Option) Envelope {
	payload := map[string]any{
		"artifact_id":      artifactID,
		"extraction_depth": depth,
	}
	if metadata != nil {
		payload["extracted_metadata"] = metadata
	}
	if len(extractionErrors) > 0 {
		errs := make([]any, len(extractionErrors))
		for i, msg := range extractionErrors {
			errs[i] = msg
		}
		payload["extraction_errors"] = errs
	}
	e := New(ExtractionPerformed, module, "ext", payload, opts...)
	e.ArtifactID = artifactID
	e.ArtifactRefs = []string{artifactID}
	return e
}

// NewAccessLimitationNoted records that an artifact could not be fully
// observed (permissions, budget, unreadable content).
func NewAccessLimitationNoted(module, artifactID, limitationType, reason string, opts ...Option) Envelope {
	e := New(AccessLimitationNoted, module, "acc", map[string]any{
		"artifact_id":     artifactID,
		"limitation_type": limitationType,
		"reason":          reason,
	}, opts...)
	if artifactID != "" {
		e.ArtifactID = artifactID
		e.ArtifactRefs = []string{artifactID}
	}
	return e
}

// NewRemoteLookupDeclined records a remote fetch refused by policy.
func NewRemoteLookupDeclined(module, url, reason string, opts ...Option) Envelope {
	return New(RemoteLookupDeclined, module, "rmt", map[string]any{
		"url":    url,
		"reason": reason,
	}, opts...)
}

// NewTagsProposed records tag proposals for an artifact. tagType names the
// tag group the values compete in (one current value per group).
func NewTagsProposed(module, artifactID string, tags []string, tagType string, opts ...Option) Envelope {
	values := make([]any, len(tags))
	for i, tag := range tags {
		values[i] = tag
	}
	payload := map[string]any{
		"artifact_id": artifactID,
		"tags":        values,
	}
	if tagType != "" {
		payload["tag_type"] = tagType
	}
	e := New(TagsProposed, module, "tag", payload, opts...)
	e.ArtifactID = artifactID
	e.ArtifactRefs = []string{artifactID}
	return e
}

// NewRolesProposed records role proposals for an artifact.
func NewRolesProposed(module, artifactID string, roles []string, opts ...Option) Envelope {
	values := make([]any, len(roles))
	for i, role := range roles {
		values[i] = role
	}
	e := New(RolesProposed, module, "role", map[string]any{
		"artifact_id": artifactID,
		"roles":       values,
	}, opts...)
	e.ArtifactID = artifactID
	e.ArtifactRefs = []string{artifactID}
	return e
}

// NewRelationProposed records a directed, typed relation between two
// artifacts. ArtifactRefs order carries the direction.
func NewRelationProposed(module, sourceID, targetID, relationType string, opts ...Option) Envelope {
	e := New(RelationProposed, module, "rel", map[string]any{
		"source_id":     sourceID,
		"target_id":     targetID,
		"relation_type": relationType,
	}, opts...)
	e.ArtifactRefs = []string{sourceID, targetID}
	return e
}

// NewConflictDetected records a detected conflict among artifacts.
// Conflicts are append-only; the core never resolves them.
func NewConflictDetected(module string, artifactIDs []string, conflictType, description string, opts ...Option) Envelope {
	ids := make([]any, len(artifactIDs))
	for i, id := range artifactIDs {
		ids[i] = id
	}
	e := New(ConflictDetected, module, "cnf", map[string]any{
		"artifact_ids":  ids,
		"conflict_type": conflictType,
		"description":   description,
	}, opts...)
	e.ArtifactRefs = append([]string(nil), artifactIDs...)
	return e
}

// NewConfidenceUpdated records a confidence score change with its audit
// trail: old score, new score, and human-readable reason.
func NewConfidenceUpdated(module, artifactID string, oldScore *float64, newScore float64, reason string, opts ...Option) Envelope {
	payload := map[string]any{
		"artifact_id":    artifactID,
		"new_confidence": newScore,
		"reason":         reason,
	}
	if oldScore != nil {
		payload["old_confidence"] = *oldScore
	}
	e := New(ConfidenceUpdated, module, "cu", payload, opts...)
	e.ArtifactID = artifactID
	e.ArtifactRefs = []string{artifactID}
	e.Confidence = &newScore
	return e
}

// NewSessionStarted records the start of a bounded operation.
func NewSessionStarted(module, sessionID, target, command string, opts ...Option) Envelope {
	payload := map[string]any{}
	if target != "" {
		payload["target"] = target
	}
	if command != "" {
		payload["command"] = command
	}
	e := New(SessionStarted, module, "ses", payload, opts...)
	e.SessionID = sessionID
	return e
}

// NewSessionEnded records the end of a bounded operation with its
// accounting summary. stoppedReason is empty when the operation ran to
// completion rather than hitting a budget.
func NewSessionEnded(module, sessionID string, durationMS, filesSeen, bytesAccounted int64, stoppedReason string, opts ...Option) Envelope {
	payload := map[string]any{
		"duration_ms":     durationMS,
		"files_seen":      filesSeen,
		"bytes_accounted": bytesAccounted,
	}
	if stoppedReason != "" {
		payload["stopped_reason"] = stoppedReason
	}
	e := New(SessionEnded, module, "ses", payload, opts...)
	e.SessionID = sessionID
	return e
}

// NewBudgetExhausted records that a budget dimension was hit mid-operation.
func NewBudgetExhausted(module, budgetType string, limit, consumed float64, opts ...Option) Envelope {
	return New(BudgetExhausted, module, "bud", map[string]any{
		"budget_type": budgetType,
		"limit":       limit,
		"consumed":    consumed,
	}, opts...)
}

// NewErrorRecorded records an error without corrupting state.
func NewErrorRecorded(module, errorType, message string, artifactIDs []string, opts ...Option) Envelope {
	e := New(ErrorRecorded, module, "err", map[string]any{
		"error_type": errorType,
		"message":    message,
	}, opts...)
	e.ArtifactRefs = append([]string(nil), artifactIDs...)
	return e
}

// NewArchiveRecommended records a janitor recommendation to archive a stale
// artifact. Recommendations never mutate anything themselves.
func NewArchiveRecommended(module, artifactID, reason string, stalenessDays float64, opts ...Option) Envelope {
	e := New(ArchiveRecommended, module, "jan", map[string]any{
		"artifact_id":    artifactID,
		"reason":         reason,
		"staleness_days": stalenessDays,
	}, opts...)
	e.ArtifactID = artifactID
	e.ArtifactRefs = []string{artifactID}
	return e
}

// NewPruneCacheRecommended records a janitor recommendation to prune a
// cache path.
func NewPruneCacheRecommended(module, path, reason string, ageDays float64, opts ...Option) Envelope {
	return New(PruneCacheRecommended, module, "jan", map[string]any{
		"path":     path,
		"reason":   reason,
		"age_days": ageDays,
	}, opts...)
}
