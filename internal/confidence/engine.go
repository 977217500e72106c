package confidence

import (
	"fmt"
	"math"

	"github.com/roach88/atlas/internal/event"
	"github.com/roach88/atlas/internal/ledger"
)

const (
	// Floor is the minimum score decay and contradiction can reach.
	// A claim is never driven to zero without explicit retraction.
	Floor = 0.05

	// negligibleDelta is the change threshold below which no audit
	// event is written. Keeps the ledger free of rounding noise.
	negligibleDelta = 0.001

	// baseHalfLifeHours is the decay half-life of a fully stable
	// claim (30 days). Volatility shrinks it toward one day.
	baseHalfLifeHours = 720.0
	minHalfLifeHours  = 24.0
)

// HalfLife returns the decay half-life in hours for a given volatility.
// Volatility 0 means a stable claim (30 days), volatility 1 a highly
// volatile one (1 day).
func HalfLife(volatility float64) float64 {
	if volatility < 0 {
		volatility = 0
	}
	if volatility > 1 {
		volatility = 1
	}
	return baseHalfLifeHours - volatility*(baseHalfLifeHours-minHalfLifeHours)
}

// Engine evolves confidence scores over time and records each material
// change as a CONFIDENCE_UPDATED event. A nil Ledger disables auditing;
// the arithmetic is unaffected.
type Engine struct {
	Ledger ledger.Appender
	Module string
}

// NewEngine builds an engine writing audit events through app.
func NewEngine(app ledger.Appender) *Engine {
	return &Engine{Ledger: app, Module: "spine.confidence"}
}

// Decay applies exponential time decay. Skipped entirely when ageHours
// is not positive. The result never drops below Floor.
func (e *Engine) Decay(artifactID string, score, ageHours, volatility float64) (float64, error) {
	if ageHours <= 0 {
		return score, nil
	}
	halfLife := HalfLife(volatility)
	decayed := score * math.Pow(0.5, ageHours/halfLife)
	if decayed < Floor {
		decayed = Floor
	}
	reason := fmt.Sprintf("freshness decay: %.1fh old, half-life %.0fh", ageHours, halfLife)
	if err := e.audit(artifactID, score, decayed, reason); err != nil {
		return score, err
	}
	return decayed, nil
}

// Contradict reduces a score in proportion to contradiction strength.
// Strength is clamped to [0,1]; the result never drops below Floor.
func (e *Engine) Contradict(artifactID string, score, strength float64, evidenceRefs []string) (float64, error) {
	if strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}
	reduction := score * strength * 0.5
	reduced := math.Max(Floor, score-reduction)
	reason := fmt.Sprintf("contradiction with strength %.2f", strength)
	if err := e.audit(artifactID, score, reduced, reason, evidenceRefs...); err != nil {
		return score, err
	}
	return reduced, nil
}

// Reinforce boosts a score for a repeated consistent observation. The
// boost has diminishing returns in priorCount and the result is capped
// at 1.0.
func (e *Engine) Reinforce(artifactID string, score float64, priorCount int, evidenceRefs []string) (float64, error) {
	if priorCount < 0 {
		priorCount = 0
	}
	boost := (1.0 - score) * (0.1 / (1.0 + float64(priorCount)*0.5))
	boosted := math.Min(1.0, score+boost)
	reason := fmt.Sprintf("reinforced by consistent observation (%d prior)", priorCount)
	if err := e.audit(artifactID, score, boosted, reason, evidenceRefs...); err != nil {
		return score, err
	}
	return boosted, nil
}

// Evolution bundles the inputs for one full evolution pass.
type Evolution struct {
	AgeHours              float64
	Volatility            float64
	ContradictionStrength float64 // 0 disables the contradiction step
	Reinforcements        int     // number of new consistent observations
	PriorObservations     int
	EvidenceRefs          []string
}

// Evolve runs decay, then contradiction, then reinforcement, in that
// fixed order, returning the final score. Each step that changes the
// score materially writes its own audit event.
func (e *Engine) Evolve(artifactID string, score float64, ev Evolution) (float64, error) {
	current, err := e.Decay(artifactID, score, ev.AgeHours, ev.Volatility)
	if err != nil {
		return score, err
	}
	if ev.ContradictionStrength > 0 {
		current, err = e.Contradict(artifactID, current, ev.ContradictionStrength, ev.EvidenceRefs)
		if err != nil {
			return score, err
		}
	}
	for i := 0; i < ev.Reinforcements; i++ {
		current, err = e.Reinforce(artifactID, current, ev.PriorObservations+i, ev.EvidenceRefs)
		if err != nil {
			return score, err
		}
	}
	return current, nil
}

// audit writes a CONFIDENCE_UPDATED event when the change is material.
func (e *Engine) audit(artifactID string, oldScore, newScore float64, reason string, evidenceRefs ...string) error {
	if e.Ledger == nil {
		return nil
	}
	if math.Abs(newScore-oldScore) < negligibleDelta {
		return nil
	}
	env := event.NewConfidenceUpdated(e.Module, artifactID, &oldScore, newScore, reason,
		event.WithEvidence(evidenceRefs...))
	if _, err := e.Ledger.Append(env); err != nil {
		return fmt.Errorf("confidence: recording update for %s: %w", artifactID, err)
	}
	return nil
}
