package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atlas/internal/event"
	"github.com/roach88/atlas/internal/ledger"
	"github.com/roach88/atlas/internal/testutil"
)

func rec(seq int64, e event.Envelope) ledger.Record {
	return ledger.Record{Seq: seq, Event: e}
}

func TestArtifactProjector_SeenCounters(t *testing.T) {
	b := testutil.NewEventBuilder("test", 1000)
	eng := NewEngine()

	eng.Apply(rec(1, b.Seen("art-1", "/data/a.txt", 100)))
	eng.Apply(rec(2, b.Seen("art-1", "/data/a.txt", 100)))
	eng.Apply(rec(3, b.Seen("art-2", "/data/b.txt", 50)))

	state, ok := eng.Artifacts.Get("art-1")
	require.True(t, ok)
	assert.Equal(t, int64(2), state.ObservationCount)
	assert.Equal(t, "/data/a.txt", state.Locator)
	assert.Equal(t, int64(100), state.SizeBytes)
	assert.Equal(t, float64(1000), state.FirstSeenAt)
	assert.Greater(t, state.LastSeenAt, state.FirstSeenAt)

	assert.Len(t, eng.Artifacts.GetState(), 2)
	assert.Equal(t, int64(3), eng.LastSeq())
}

func TestArtifactProjector_ChangeAndFingerprint(t *testing.T) {
	b := testutil.NewEventBuilder("test", 1000)
	eng := NewEngine()

	eng.Apply(rec(1, b.Seen("art-1", "/data/a.txt", 100)))
	eng.Apply(rec(2, b.Fingerprint("art-1", "hash-v1", 100)))
	eng.Apply(rec(3, b.Changed("art-1", "hash-v1", "hash-v2")))

	state, ok := eng.Artifacts.Get("art-1")
	require.True(t, ok)
	assert.Equal(t, "hash-v2", state.ContentHash)
	assert.Equal(t, int64(1), state.ChangeCount)
}

func TestArtifactProjector_ConfidenceUpdated(t *testing.T) {
	b := testutil.NewEventBuilder("test", 1000)
	eng := NewEngine()

	old := 0.9
	eng.Apply(rec(1, b.Seen("art-1", "/data/a.txt", 100)))
	eng.Apply(rec(2, b.Confidence("art-1", &old, 0.45, "freshness decay")))

	state, ok := eng.Artifacts.Get("art-1")
	require.True(t, ok)
	require.NotNil(t, state.Confidence)
	assert.InDelta(t, 0.45, *state.Confidence, 1e-9)
	assert.Equal(t, "freshness decay", state.ConfidenceReasoning)
}

func TestTags_LatestProposalWinsPerGroup(t *testing.T) {
	b := testutil.NewEventBuilder("test", 1000)
	eng := NewEngine()

	eng.Apply(rec(1, b.Tags("art-1", []string{"config", "yaml"}, "semantic")))
	eng.Apply(rec(2, b.Tags("art-1", []string{"large"}, "structural")))
	eng.Apply(rec(3, b.Tags("art-1", []string{"config"}, "semantic")))

	state, ok := eng.Artifacts.Get("art-1")
	require.True(t, ok)
	require.Contains(t, state.Tags, "semantic")
	require.Contains(t, state.Tags, "structural")
	assert.Equal(t, []string{"config"}, state.Tags["semantic"].Values)
	assert.Equal(t, []string{"large"}, state.Tags["structural"].Values)

	// The inverted index drops values the re-proposal removed.
	index := eng.Tags.GetState()
	assert.NotContains(t, index, "yaml")
	assert.Equal(t, []string{"art-1"}, index["config"])
}

func TestTags_MissingGroupDefaultsToGeneral(t *testing.T) {
	b := testutil.NewEventBuilder("test", 1000)
	p := NewTagProjector()

	p.Apply(rec(1, b.Tags("art-1", []string{"misc"}, "")))

	groups := p.TagsFor("art-1")
	require.Contains(t, groups, "general")
	assert.Equal(t, []string{"misc"}, groups["general"])
}

func TestRelations_UpsertByKey(t *testing.T) {
	b := testutil.NewEventBuilder("test", 1000)
	eng := NewEngine()

	eng.Apply(rec(1, b.Relation("art-1", "art-2", "imports", event.WithConfidence(0.6))))
	eng.Apply(rec(2, b.Relation("art-1", "art-3", "imports", event.WithConfidence(0.7))))
	eng.Apply(rec(3, b.Relation("art-1", "art-2", "imports", event.WithConfidence(0.9))))

	edges := eng.Relations.GetState()
	require.Len(t, edges, 2)
	// Re-proposal updated in place, keeping first-proposal order.
	assert.Equal(t, "art-2", edges[0].TargetID)
	assert.InDelta(t, 0.9, edges[0].Confidence, 1e-9)
	assert.Equal(t, "art-3", edges[1].TargetID)
}

func TestRelations_DirectionFromRefs(t *testing.T) {
	p := NewRelationProjector()

	// Payload ids absent; artifact_refs order carries the direction.
	e := event.Envelope{
		EventID:      "evt-1",
		EventType:    event.RelationProposed,
		TS:           1000,
		Actor:        event.Actor{Module: "test"},
		ArtifactRefs: []string{"art-src", "art-dst"},
		Payload:      map[string]any{"relation_type": "contains"},
	}
	p.Apply(rec(1, e))

	edges := p.GetState()
	require.Len(t, edges, 1)
	assert.Equal(t, "art-src", edges[0].SourceID)
	assert.Equal(t, "art-dst", edges[0].TargetID)
	assert.Equal(t, "proposed", edges[0].Status)
}

func TestConflicts_AppendOnly(t *testing.T) {
	b := testutil.NewEventBuilder("test", 1000)
	eng := NewEngine()

	eng.Apply(rec(1, b.Conflict([]string{"art-1", "art-2"}, "hash_mismatch", "same locator, different hash")))
	eng.Apply(rec(2, b.Conflict([]string{"art-1", "art-2"}, "hash_mismatch", "same locator, different hash")))

	conflicts := eng.Conflicts.GetState()
	require.Len(t, conflicts, 2)
	assert.Equal(t, "hash_mismatch", conflicts[0].ConflictType)
	assert.Equal(t, []string{"art-1", "art-2"}, conflicts[0].ArtifactIDs)

	mine := eng.Conflicts.For("art-1")
	assert.Len(t, mine, 2)
	assert.Empty(t, eng.Conflicts.For("art-9"))
}

func TestEngine_UnknownTypeIsNoOp(t *testing.T) {
	eng := NewEngine()

	eng.Apply(rec(1, event.Envelope{
		EventID:    "evt-1",
		EventType:  event.Type("FUTURE_EVENT"),
		TS:         1000,
		Actor:      event.Actor{Module: "test"},
		ArtifactID: "art-1",
		Payload:    map[string]any{"whatever": true},
	}))

	// The artifact is tracked (it was referenced) but nothing else changes.
	state, ok := eng.Artifacts.Get("art-1")
	require.True(t, ok)
	assert.Equal(t, int64(0), state.ObservationCount)
	assert.Empty(t, eng.Relations.GetState())
	assert.Empty(t, eng.Conflicts.GetState())
	assert.Equal(t, int64(1), eng.LastSeq())
}

func TestEngine_RebuildMatchesIncremental(t *testing.T) {
	b := testutil.NewEventBuilder("test", 1000)
	log := ledger.NewMemory()

	events := []event.Envelope{
		b.Seen("art-1", "/data/a.txt", 100),
		b.Fingerprint("art-1", "hash-1", 100),
		b.Tags("art-1", []string{"config"}, "semantic"),
		b.Seen("art-2", "/data/b.txt", 50),
		b.Relation("art-1", "art-2", "references", event.WithConfidence(0.8)),
		b.Conflict([]string{"art-1", "art-2"}, "duplicate", ""),
	}

	incremental := NewEngine()
	for i, e := range events {
		seq, err := log.Append(e)
		require.NoError(t, err)
		require.Equal(t, int64(i+1), seq)
		incremental.Apply(rec(seq, e))
	}

	rebuilt := NewEngine()
	stats, err := rebuilt.RebuildFrom(log)
	require.NoError(t, err)
	assert.Equal(t, len(events), stats.Lines)
	assert.Zero(t, stats.Skipped)

	assert.Equal(t, incremental.Artifacts.GetState(), rebuilt.Artifacts.GetState())
	assert.Equal(t, incremental.Relations.GetState(), rebuilt.Relations.GetState())
	assert.Equal(t, incremental.Conflicts.GetState(), rebuilt.Conflicts.GetState())
	assert.Equal(t, incremental.Tags.GetState(), rebuilt.Tags.GetState())
	assert.Equal(t, incremental.LastSeq(), rebuilt.LastSeq())
}

func TestEngine_Reset(t *testing.T) {
	b := testutil.NewEventBuilder("test", 1000)
	eng := NewEngine()
	eng.Apply(rec(1, b.Seen("art-1", "/data/a.txt", 100)))

	eng.Reset()

	assert.Empty(t, eng.Artifacts.GetState())
	assert.Equal(t, int64(0), eng.LastSeq())
}
