package harness

import (
	"fmt"

	"github.com/roach88/atlas/internal/ledger"
	"github.com/roach88/atlas/internal/projection"
	"github.com/roach88/atlas/internal/schema"
)

// Result is the outcome of replaying one scenario.
type Result struct {
	Scenario *Scenario
	Engine   *projection.Engine
	Ledger   *ledger.Memory
}

// Run validates the scenario's events, appends them to an in-memory
// ledger, and replays them through a fresh projection engine. Events
// must pass schema validation; a scenario with an invalid event is
// broken, not a test of validation (validation has its own tests).
func Run(s *Scenario) (*Result, error) {
	mem := ledger.NewMemory()

	for i, se := range s.Events {
		env := se.Envelope(i + 1)
		if res := schema.ValidateEnvelope(env); !res.Valid {
			return nil, fmt.Errorf("harness: scenario %q event %d (%s): %s",
				s.Name, i+1, env.EventType, res.Summary())
		}
		if _, err := mem.Append(env); err != nil {
			return nil, fmt.Errorf("harness: scenario %q append: %w", s.Name, err)
		}
	}

	eng := projection.NewEngine()
	if _, err := eng.RebuildFrom(mem); err != nil {
		return nil, fmt.Errorf("harness: scenario %q replay: %w", s.Name, err)
	}

	return &Result{Scenario: s, Engine: eng, Ledger: mem}, nil
}
