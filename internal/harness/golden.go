package harness

import (
	"bytes"
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/atlas/internal/event"
)

// StateSnapshot is the full projected state of a scenario, serialized
// canonically for golden comparison.
type StateSnapshot struct {
	ScenarioName string `json:"scenario_name"`
	Artifacts    []any  `json:"artifacts"`
	Relations    []any  `json:"relations"`
	Conflicts    []any  `json:"conflicts"`
}

// Snapshot builds the canonical state snapshot of a replayed scenario.
// Artifacts are ordered by id; relations and conflicts keep their
// replay order, which is itself deterministic.
func (r *Result) Snapshot() StateSnapshot {
	snap := StateSnapshot{
		ScenarioName: r.Scenario.Name,
		Artifacts:    []any{},
		Relations:    []any{},
		Conflicts:    []any{},
	}

	artifacts := r.Engine.Artifacts.GetState()
	ids := make([]string, 0, len(artifacts))
	for id := range artifacts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		snap.Artifacts = append(snap.Artifacts, artifacts[id])
	}

	for _, edge := range r.Engine.Relations.GetState() {
		snap.Relations = append(snap.Relations, edge)
	}
	for _, rec := range r.Engine.Conflicts.GetState() {
		snap.Conflicts = append(snap.Conflicts, rec)
	}
	return snap
}

// RunWithGolden replays a scenario, checks its assertions, and compares
// the projected state against testdata/{scenario.Name}.golden.
//
// Regenerate golden files with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		t.Fatalf("running scenario %q: %v", s.Name, err)
	}
	for _, assertErr := range result.Check() {
		t.Errorf("scenario %q: %v", s.Name, assertErr)
	}

	data, err := event.MarshalCanonical(result.Snapshot())
	if err != nil {
		t.Fatalf("encoding snapshot for %q: %v", s.Name, err)
	}

	var pretty bytes.Buffer
	pretty.Write(data)
	pretty.WriteByte('\n')

	g := goldie.New(t)
	g.Assert(t, s.Name, pretty.Bytes())
}
