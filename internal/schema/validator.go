package schema

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/roach88/atlas/internal/event"
)

// kind is a JSON value category. JSON has no integer type, so Integer means
// "a number with no fractional part".
type kind int

const (
	String kind = 1 << iota
	Number
	Integer
	Bool
	List
	Map
	Null
)

func (k kind) String() string {
	names := []struct {
		bit  kind
		name string
	}{
		{String, "string"},
		{Number, "number"},
		{Integer, "integer"},
		{Bool, "bool"},
		{List, "list"},
		{Map, "object"},
		{Null, "null"},
	}
	out := ""
	for _, n := range names {
		if k&n.bit == 0 {
			continue
		}
		if out != "" {
			out += " or "
		}
		out += n.name
	}
	return out
}

// matches reports whether v belongs to the kind set.
func (k kind) matches(v any) bool {
	switch val := v.(type) {
	case nil:
		return k&Null != 0
	case string:
		return k&String != 0
	case bool:
		return k&Bool != 0
	case float64:
		if k&Number != 0 {
			return true
		}
		return k&Integer != 0 && val == math.Trunc(val)
	case int, int64:
		return k&(Number|Integer) != 0
	case []any:
		return k&List != 0
	case map[string]any:
		return k&Map != 0
	default:
		return false
	}
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case float64, int, int64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// fieldSpec declares one payload or envelope field. Slice order fixes the
// order errors are reported in.
type fieldSpec struct {
	name     string
	kinds    kind
	required bool
}

// envelopeRequired lists the mandatory envelope fields and their types.
var envelopeRequired = []fieldSpec{
	{"event_id", String, true},
	{"event_type", String, true},
	{"ts", Number, true},
	{"actor", Map, true},
	{"payload", Map, true},
}

// envelopeOptional fields may be absent or null; when present they must be
// correctly typed.
var envelopeOptional = []fieldSpec{
	{"artifact_id", String | Null, false},
	{"confidence", Number | Null, false},
	{"evidence_refs", List, false},
	{"session_id", String | Null, false},
	{"correlation_id", String | Null, false},
	{"artifact_refs", List, false},
	{"event_refs", List, false},
}

var actorRequired = []fieldSpec{
	{"module", String, true},
}

// payloadSchemas is the runtime schema table, one entry per event type.
// It accepts the broadest compatible field set ("rich" and "flat" layouts)
// so externally produced lines from either writer generation validate.
var payloadSchemas = map[event.Type][]fieldSpec{
	event.ArtifactSeen: {
		{"artifact_id", String, true},
		{"locator", String, true},
		{"artifact_kind", String, false},
		{"size_bytes", Integer, false},
		{"mtime", Number, false},
	},
	event.ArtifactChanged: {
		{"artifact_id", String, true},
		{"previous_hash", String | Null, false},
		{"current_hash", String, true},
		{"change_type", String, false},
	},
	event.FingerprintComputed: {
		{"artifact_id", String, true},
		{"content_hash", String, true},
		{"structure_hash", String | Null, false},
		{"size_bytes", Integer, false},
		{"entropy_score", Number | Null, false},
	},
	event.ExtractionPerformed: {
		{"artifact_id", String, true},
		{"extraction_depth", Integer, false},
		{"extracted_metadata", Map, false},
		{"extraction_errors", List, false},
	},
	event.AccessLimitationNoted: {
		{"artifact_id", String, true},
		{"limitation_type", String, true},
		{"reason", String, false},
	},
	event.RemoteLookupDeclined: {
		{"url", String, true},
		{"reason", String, true},
	},
	event.TagsProposed: {
		{"artifact_id", String, true},
		{"tags", List, true},
		{"tag_type", String, false},
	},
	event.RolesProposed: {
		{"artifact_id", String, true},
		{"roles", List, true},
	},
	event.RelationProposed: {
		{"source_id", String, true},
		{"target_id", String, true},
		{"relation_type", String, true},
		{"directional", Bool, false},
	},
	event.ConflictDetected: {
		{"artifact_ids", List, true},
		{"conflict_type", String, true},
		{"description", String, false},
	},
	event.HypothesisNoted: {
		{"hypothesis", String, true},
		{"supporting_evidence", List, false},
	},
	event.ConfidenceUpdated: {
		{"artifact_id", String, true},
		{"old_confidence", Number | Null, false},
		{"new_confidence", Number, true},
		{"reason", String, false},
	},
	event.FreshnessDecayApplied: {
		{"artifact_id", String, true},
		{"decay_factor", Number, true},
	},
	event.ArtifactSuperseded: {
		{"old_artifact_id", String, true},
		{"new_artifact_id", String, true},
		{"reason", String, false},
	},
	event.ArchiveRecommended: {
		{"artifact_id", String, true},
		{"reason", String, true},
		{"staleness_days", Number, false},
	},
	event.PruneCacheRecommended: {
		{"path", String, true},
		{"reason", String, true},
		{"age_days", Number, false},
	},
	event.FileArchived: {
		{"original_path", String, true},
		{"archive_path", String, true},
	},
	event.SessionStarted: {
		{"target", String, false},
		{"command", String, false},
	},
	event.SessionEnded: {
		{"duration_ms", Number, false},
		{"files_seen", Integer, false},
		{"bytes_accounted", Integer, false},
		{"stopped_reason", String | Null, false},
	},
	event.BudgetExhausted: {
		{"budget_type", String, true},
		{"limit", Number, true},
		{"consumed", Number, true},
	},
	event.ErrorRecorded: {
		{"error_type", String, true},
		{"message", String, true},
	},
}

// Validate performs full two-phase validation of a decoded event object.
// Envelope problems stop payload checking (the payload cannot be located
// without a well-formed envelope); otherwise every error is collected.
func Validate(raw map[string]any) Result {
	result := OK().Merge(validateEnvelope(raw))
	if !result.Valid {
		return result
	}

	eventType := event.Type(raw["event_type"].(string))
	if !event.Known(eventType) {
		result = result.Merge(Fail(
			"event_type",
			fmt.Sprintf("unknown event type: %s", eventType),
			string(eventType),
		))
	}

	actor, _ := raw["actor"].(map[string]any)
	result = result.Merge(validateActor(actor))

	if specs, ok := payloadSchemas[eventType]; ok {
		payload, _ := raw["payload"].(map[string]any)
		result = result.Merge(validatePayload(eventType, specs, payload))
	}

	return result
}

// ValidateEnvelope validates a typed envelope by round-tripping it
// through JSON, so the checks see exactly what a reader of the ledger
// line would see.
func ValidateEnvelope(e event.Envelope) Result {
	data, err := json.Marshal(e)
	if err != nil {
		return Fail("", fmt.Sprintf("event not encodable: %v", err), nil)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Fail("", fmt.Sprintf("event not decodable: %v", err), nil)
	}
	return Validate(raw)
}

func validateEnvelope(raw map[string]any) Result {
	result := OK()

	for _, spec := range envelopeRequired {
		value, present := raw[spec.name]
		if !present {
			result = result.Merge(Fail(
				spec.name,
				fmt.Sprintf("missing required field: %s", spec.name),
				nil,
			))
			continue
		}
		if !spec.kinds.matches(value) {
			result = result.Merge(Fail(
				spec.name,
				fmt.Sprintf("expected %s, got %s", spec.kinds, describe(value)),
				value,
			))
		}
	}

	for _, spec := range envelopeOptional {
		value, present := raw[spec.name]
		if !present || value == nil {
			continue
		}
		if !spec.kinds.matches(value) {
			result = result.Merge(Fail(
				spec.name,
				fmt.Sprintf("expected %s, got %s", spec.kinds, describe(value)),
				value,
			))
		}
	}

	return result
}

func validateActor(actor map[string]any) Result {
	result := OK()
	for _, spec := range actorRequired {
		value, present := actor[spec.name]
		if !present {
			result = result.Merge(Fail(
				"actor."+spec.name,
				fmt.Sprintf("missing required actor field: %s", spec.name),
				nil,
			))
			continue
		}
		if !spec.kinds.matches(value) {
			result = result.Merge(Fail(
				"actor."+spec.name,
				fmt.Sprintf("expected %s, got %s", spec.kinds, describe(value)),
				value,
			))
		}
	}
	return result
}

func validatePayload(eventType event.Type, specs []fieldSpec, payload map[string]any) Result {
	result := OK()
	for _, spec := range specs {
		value, present := payload[spec.name]
		if !present {
			if spec.required {
				result = result.Merge(Fail(
					"payload."+spec.name,
					fmt.Sprintf("missing required payload field: %s for event type %s", spec.name, eventType),
					nil,
				))
			}
			continue
		}
		// Absent and null are both acceptable for optional fields.
		if value == nil && !spec.required {
			continue
		}
		if !spec.kinds.matches(value) {
			result = result.Merge(Fail(
				"payload."+spec.name,
				fmt.Sprintf("expected %s, got %s", spec.kinds, describe(value)),
				value,
			))
		}
	}
	return result
}

// requiredKeys are the envelope fields the legacy check insists on.
var requiredKeys = []string{"event_id", "event_type", "ts", "actor", "payload"}

// CheckEnvelope is the legacy permissive check: presence of the five
// envelope keys, nothing more. Non-strict callers use it as a fast sanity
// gate; it never inspects payloads.
func CheckEnvelope(raw map[string]any) error {
	var missing []string
	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing event keys: %v", missing)
	}
	return nil
}
