package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atlas/internal/event"
)

func validSeen() map[string]any {
	return map[string]any{
		"event_id":   "evt-1",
		"event_type": "ARTIFACT_SEEN",
		"ts":         1700000000.0,
		"actor":      map[string]any{"module": "eyes.filesystem"},
		"payload": map[string]any{
			"artifact_id": "art-1",
			"locator":     "/tmp/a.txt",
			"size_bytes":  128.0,
		},
	}
}

func TestValidate_ValidEvent(t *testing.T) {
	res := Validate(validSeen())
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestValidate_MissingLocator(t *testing.T) {
	raw := validSeen()
	delete(raw["payload"].(map[string]any), "locator")

	res := Validate(raw)
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "payload.locator", res.Errors[0].Path)
	assert.Contains(t, res.Errors[0].Message, "missing required payload field")
}

func TestValidate_UnknownEventType(t *testing.T) {
	raw := validSeen()
	raw["event_type"] = "SOMETHING_NEW"

	res := Validate(raw)
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "event_type", res.Errors[0].Path)
	assert.Contains(t, res.Errors[0].Message, "unknown event type")
}

func TestValidate_EnvelopeErrorsStopPayloadChecks(t *testing.T) {
	// Broken envelope AND broken payload: only envelope errors are
	// reported, since the payload cannot be located reliably.
	raw := validSeen()
	delete(raw, "ts")
	delete(raw["payload"].(map[string]any), "locator")

	res := Validate(raw)
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "ts", res.Errors[0].Path)
}

func TestValidate_CollectsAllPayloadErrors(t *testing.T) {
	raw := validSeen()
	payload := raw["payload"].(map[string]any)
	delete(payload, "artifact_id")
	delete(payload, "locator")

	res := Validate(raw)
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 2)
	// Error order follows the schema table, not map iteration.
	assert.Equal(t, "payload.artifact_id", res.Errors[0].Path)
	assert.Equal(t, "payload.locator", res.Errors[1].Path)
}

func TestValidate_TypeMismatch(t *testing.T) {
	raw := validSeen()
	raw["payload"].(map[string]any)["size_bytes"] = 12.5

	res := Validate(raw)
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "payload.size_bytes", res.Errors[0].Path)
	assert.Equal(t, 12.5, res.Errors[0].Value)
}

func TestValidate_IntegralFloatIsInteger(t *testing.T) {
	// JSON decoding yields float64 for every number. 128.0 must still
	// satisfy an Integer field.
	raw := validSeen()
	raw["payload"].(map[string]any)["size_bytes"] = 128.0

	res := Validate(raw)
	assert.True(t, res.Valid, "errors: %v", res.Errors)
}

func TestValidate_OptionalNullAccepted(t *testing.T) {
	raw := validSeen()
	raw["artifact_id"] = nil
	raw["confidence"] = nil

	res := Validate(raw)
	assert.True(t, res.Valid, "errors: %v", res.Errors)
}

func TestValidate_MissingActorModule(t *testing.T) {
	raw := validSeen()
	raw["actor"] = map[string]any{}

	res := Validate(raw)
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "actor.module", res.Errors[0].Path)
}

func TestValidate_ConfidenceUpdatedPayload(t *testing.T) {
	raw := map[string]any{
		"event_id":   "evt-2",
		"event_type": "CONFIDENCE_UPDATED",
		"ts":         1700000001.0,
		"actor":      map[string]any{"module": "spine.confidence"},
		"payload": map[string]any{
			"artifact_id":    "art-1",
			"old_confidence": nil,
			"new_confidence": 0.8,
			"reason":         "initial assessment",
		},
	}
	res := Validate(raw)
	assert.True(t, res.Valid, "errors: %v", res.Errors)

	delete(raw["payload"].(map[string]any), "new_confidence")
	res = Validate(raw)
	require.False(t, res.Valid)
	assert.Equal(t, "payload.new_confidence", res.Errors[0].Path)
}

func TestValidateEnvelope_TypedEnvelope(t *testing.T) {
	env := event.NewArtifactSeen("eyes.filesystem", "art-1", "/tmp/a.txt", 128)
	res := ValidateEnvelope(env)
	assert.True(t, res.Valid, "errors: %v", res.Errors)
}

func TestCheckEnvelope_Legacy(t *testing.T) {
	assert.NoError(t, CheckEnvelope(validSeen()))

	raw := validSeen()
	delete(raw, "actor")
	delete(raw, "payload")
	err := CheckEnvelope(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "actor")
	assert.Contains(t, err.Error(), "payload")
}

func TestValidate_AllFactoryEventsPass(t *testing.T) {
	old := 0.5
	envelopes := []event.Envelope{
		event.NewArtifactSeen("m", "a1", "/x", 1),
		event.NewArtifactChanged("m", "a1", "h1", "h2"),
		event.NewFingerprintComputed("m", "a1", "h2", "s1", 1, 0.5),
		event.NewExtractionPerformed("m", "a1", 2, map[string]any{"k": "v"}, nil),
		event.NewAccessLimitationNoted("m", "a1", "permission", "denied"),
		event.NewRemoteLookupDeclined("m", "https://example.com", "policy"),
		event.NewTagsProposed("m", "a1", []string{"t"}, "kind"),
		event.NewRolesProposed("m", "a1", []string{"config"}),
		event.NewRelationProposed("m", "a1", "a2", "depends_on"),
		event.NewConflictDetected("m", []string{"a1", "a2"}, "hash_mismatch", "differs"),
		event.NewConfidenceUpdated("m", "a1", &old, 0.6, "decay"),
		event.NewSessionStarted("m", "ses-1", "/x", "scan"),
		event.NewSessionEnded("m", "ses-1", 10, 2, 100, ""),
		event.NewBudgetExhausted("m", "files_scanned", 100, 101),
		event.NewErrorRecorded("m", "io_error", "boom", []string{"a1"}),
		event.NewArchiveRecommended("m", "a1", "stale", 40),
		event.NewPruneCacheRecommended("m", "/cache/x", "old", 31),
	}
	for _, env := range envelopes {
		res := ValidateEnvelope(env)
		assert.True(t, res.Valid, "%s: %v", env.EventType, res.Errors)
	}
}
