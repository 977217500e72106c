package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromScore(t *testing.T) {
	assert.Equal(t, Certain, LevelFromScore(0.95))
	assert.Equal(t, High, LevelFromScore(0.75))
	assert.Equal(t, Moderate, LevelFromScore(0.5))
	assert.Equal(t, Low, LevelFromScore(0.25))
	assert.Equal(t, Speculative, LevelFromScore(0.24))
	assert.Equal(t, Speculative, LevelFromScore(0))
}

func TestNewAssessment_RejectsOutOfRange(t *testing.T) {
	_, err := NewAssessment(1.5, "too sure")
	assert.Error(t, err)
	_, err = NewAssessment(-0.1, "less than nothing")
	assert.Error(t, err)

	a, err := NewAssessment(0.8, "direct observation")
	require.NoError(t, err)
	assert.Equal(t, 0.8, a.Score)
	assert.Equal(t, "direct observation", a.Reasoning)
}

func TestEffectiveScore_AmbiguityPenalty(t *testing.T) {
	a := Assessment{Score: 0.9}
	assert.InDelta(t, 0.9, a.EffectiveScore(), 1e-9)

	a = a.WithAmbiguity(StaleObservation)
	assert.InDelta(t, 0.8, a.EffectiveScore(), 1e-9)

	a = a.WithAmbiguity(PartialAccess)
	assert.InDelta(t, 0.7, a.EffectiveScore(), 1e-9)

	// Duplicate flags do not stack.
	a = a.WithAmbiguity(StaleObservation)
	assert.InDelta(t, 0.7, a.EffectiveScore(), 1e-9)

	// Never below zero.
	low := Assessment{Score: 0.1, AmbiguityFlags: []Ambiguity{
		IncompleteData, StaleObservation, InferenceChain,
	}}
	assert.Zero(t, low.EffectiveScore())
}

func TestActionableAndNeedsReview(t *testing.T) {
	assert.True(t, Assessment{Score: 0.8}.Actionable())
	assert.False(t, Assessment{Score: 0.8, AmbiguityFlags: []Ambiguity{PartialAccess}}.Actionable())

	assert.False(t, Assessment{Score: 0.6}.NeedsReview())
	assert.True(t, Assessment{Score: 0.4}.NeedsReview())
	// Conflicting evidence forces review regardless of score.
	assert.True(t, Assessment{Score: 0.99, AmbiguityFlags: []Ambiguity{ConflictingEvidence}}.NeedsReview())
}

func TestCombine(t *testing.T) {
	assert.Zero(t, Combine(nil))
	assert.Zero(t, Combine([]Assessment{{Score: 0}}))

	// Single assessment combines to its own effective score.
	got := Combine([]Assessment{{Score: 0.8}})
	assert.InDelta(t, 0.8, got, 1e-9)

	// More evidence pulls the average toward the better-supported claim.
	weak := Assessment{Score: 0.4}
	strong := Assessment{Score: 0.9, EvidenceRefs: []string{"evt-1", "evt-2", "evt-3"}}
	got = Combine([]Assessment{weak, strong})
	assert.Greater(t, got, 0.75)
	assert.Less(t, got, 0.9)
}

func TestFromObservation(t *testing.T) {
	a := FromObservation("read-only", 0, true)
	assert.InDelta(t, 0.9, a.Score, 1e-9)
	assert.Empty(t, a.AmbiguityFlags)
	assert.Contains(t, a.Reasoning, "full read access")

	a = FromObservation("partial", 0, false)
	assert.InDelta(t, 0.65, a.Score, 1e-9)
	assert.Contains(t, a.AmbiguityFlags, PartialAccess)

	a = FromObservation("metadata-only", 0, false)
	assert.InDelta(t, 0.5, a.Score, 1e-9)
	assert.Contains(t, a.AmbiguityFlags, IncompleteData)

	// Depth bump caps at 0.1; total caps at 1.0.
	a = FromObservation("read-only", 20, true)
	assert.InDelta(t, 1.0, a.Score, 1e-9)
}

func TestFromInference(t *testing.T) {
	a := FromInference(0.9, 1, 0)
	assert.InDelta(t, 0.765, a.Score, 1e-9)
	assert.Contains(t, a.AmbiguityFlags, InferenceChain)
	assert.NotContains(t, a.AmbiguityFlags, IncompleteData)

	// Long chains pick up the incomplete-data flag.
	a = FromInference(0.9, 3, 0)
	assert.Contains(t, a.AmbiguityFlags, IncompleteData)

	// Evidence boost caps at 0.2.
	a = FromInference(0.5, 1, 10)
	assert.InDelta(t, 0.5*0.85+0.2, a.Score, 1e-9)
}
