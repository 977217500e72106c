// Package confidence models trust in claims: a [0,1] score with mandatory
// human-readable reasoning, degraded by ambiguity, and evolved over time by
// decay, contradiction, and reinforcement. A confidence value must always
// be explainable; it is never a bare number.
package confidence

import (
	"fmt"
	"strings"
)

// Level buckets a score for quick assessment.
type Level string

const (
	Certain     Level = "certain"     // 0.95 - 1.00: direct observation, verified
	High        Level = "high"        // 0.75 - 0.94: strong evidence
	Moderate    Level = "moderate"    // 0.50 - 0.74: reasonable inference
	Low         Level = "low"         // 0.25 - 0.49: weak evidence
	Speculative Level = "speculative" // 0.00 - 0.24: guess or hypothesis
)

// LevelFromScore converts a numeric score to its discrete level.
func LevelFromScore(score float64) Level {
	switch {
	case score >= 0.95:
		return Certain
	case score >= 0.75:
		return High
	case score >= 0.50:
		return Moderate
	case score >= 0.25:
		return Low
	default:
		return Speculative
	}
}

// Ambiguity flags name reasons a claim is less certain than its raw score
// suggests. Each flag costs a fixed effective-score penalty.
type Ambiguity string

const (
	IncompleteData      Ambiguity = "incomplete_data"
	ConflictingEvidence Ambiguity = "conflicting_evidence"
	StaleObservation    Ambiguity = "stale_observation"
	InferenceChain      Ambiguity = "inference_chain"
	PartialAccess       Ambiguity = "partial_access"
	ExternalDependency  Ambiguity = "external_dependency"
	HeuristicMatch      Ambiguity = "heuristic_match"
)

// ambiguityPenalty is the effective-score cost of each flag.
const ambiguityPenalty = 0.1

// Assessment is a complete confidence judgment: numeric, evidence-based,
// and transparent.
type Assessment struct {
	Score          float64     `json:"score"`
	Reasoning      string      `json:"reasoning"`
	EvidenceRefs   []string    `json:"evidence_refs,omitempty"`
	AmbiguityFlags []Ambiguity `json:"ambiguity_flags,omitempty"`
	AssessedAt     float64     `json:"assessed_at,omitempty"`
}

// NewAssessment builds an assessment, rejecting out-of-range scores.
func NewAssessment(score float64, reasoning string) (Assessment, error) {
	if score < 0.0 || score > 1.0 {
		return Assessment{}, fmt.Errorf("confidence: score %v outside [0.0, 1.0]", score)
	}
	return Assessment{Score: score, Reasoning: reasoning}, nil
}

// EffectiveScore is the raw score minus the per-flag ambiguity penalty,
// never below zero.
func (a Assessment) EffectiveScore() float64 {
	penalty := float64(len(a.AmbiguityFlags)) * ambiguityPenalty
	effective := a.Score - penalty
	if effective < 0 {
		return 0
	}
	return effective
}

// Level is the discrete level of the effective score.
func (a Assessment) Level() Level {
	return LevelFromScore(a.EffectiveScore())
}

// Actionable reports whether confidence is high enough for automated
// action.
func (a Assessment) Actionable() bool {
	return a.EffectiveScore() >= 0.75
}

// NeedsReview reports whether this assessment should be looked at by a
// human.
func (a Assessment) NeedsReview() bool {
	if a.EffectiveScore() < 0.50 {
		return true
	}
	for _, flag := range a.AmbiguityFlags {
		if flag == ConflictingEvidence {
			return true
		}
	}
	return false
}

// WithAmbiguity returns a copy carrying an extra flag (deduplicated).
func (a Assessment) WithAmbiguity(flag Ambiguity) Assessment {
	for _, existing := range a.AmbiguityFlags {
		if existing == flag {
			return a
		}
	}
	out := a
	out.AmbiguityFlags = append(append([]Ambiguity(nil), a.AmbiguityFlags...), flag)
	return out
}

// Combine merges multiple assessments into one score via a weighted
// average; weight grows with evidence count and base score.
func Combine(assessments []Assessment) float64 {
	if len(assessments) == 0 {
		return 0
	}
	var totalWeight, weightedSum float64
	for _, a := range assessments {
		weight := float64(1+len(a.EvidenceRefs)) * a.Score
		totalWeight += weight
		weightedSum += a.EffectiveScore() * weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// FromObservation derives confidence from observation quality: direct
// observation with full access scores highest.
func FromObservation(accessScope string, extractionDepth int, hasContentHash bool) Assessment {
	score := 0.5
	var reasons []string
	var flags []Ambiguity

	switch accessScope {
	case "read-only":
		score += 0.3
		reasons = append(reasons, "full read access")
	case "partial":
		score += 0.15
		reasons = append(reasons, "partial access")
		flags = append(flags, PartialAccess)
	default: // metadata-only
		reasons = append(reasons, "metadata only")
		flags = append(flags, IncompleteData)
	}

	if extractionDepth > 0 {
		bump := float64(extractionDepth) * 0.02
		if bump > 0.1 {
			bump = 0.1
		}
		score += bump
		reasons = append(reasons, fmt.Sprintf("extraction depth %d", extractionDepth))
	}

	if hasContentHash {
		score += 0.1
		reasons = append(reasons, "content verified by hash")
	}

	if score > 1.0 {
		score = 1.0
	}
	return Assessment{
		Score:          score,
		Reasoning:      strings.Join(reasons, "; "),
		AmbiguityFlags: flags,
	}
}

// FromInference derives confidence for inferred claims: each inference
// step decays the source confidence, supporting evidence recovers some.
func FromInference(sourceConfidence float64, inferenceSteps, supportingEvidence int) Assessment {
	decay := 1.0
	for i := 0; i < inferenceSteps; i++ {
		decay *= 0.85
	}
	score := sourceConfidence * decay

	boost := float64(supportingEvidence) * 0.05
	if boost > 0.2 {
		boost = 0.2
	}
	score += boost
	if score > 1.0 {
		score = 1.0
	}

	flags := []Ambiguity{InferenceChain}
	if inferenceSteps > 2 {
		flags = append(flags, IncompleteData)
	}

	return Assessment{
		Score: score,
		Reasoning: fmt.Sprintf(
			"inferred through %d steps from source confidence %.2f, with %d supporting evidence items",
			inferenceSteps, sourceConfidence, supportingEvidence,
		),
		AmbiguityFlags: flags,
	}
}
