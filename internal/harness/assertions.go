package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Check evaluates every assertion against the replayed state and
// returns one error per failed assertion.
func (r *Result) Check() []error {
	var errs []error
	for i, a := range r.Scenario.Assertions {
		if err := r.check(a); err != nil {
			errs = append(errs, fmt.Errorf("assertion %d (%s): %w", i+1, a.Type, err))
		}
	}
	return errs
}

func (r *Result) check(a Assertion) error {
	switch a.Type {
	case AssertArtifactCount:
		got := len(r.Engine.Artifacts.GetState())
		if got != a.Count {
			return fmt.Errorf("expected %d artifacts, got %d", a.Count, got)
		}
	case AssertRelationCount:
		got := len(r.Engine.Relations.GetState())
		if got != a.Count {
			return fmt.Errorf("expected %d relations, got %d", a.Count, got)
		}
	case AssertConflictCount:
		got := len(r.Engine.Conflicts.GetState())
		if got != a.Count {
			return fmt.Errorf("expected %d conflicts, got %d", a.Count, got)
		}
	case AssertArtifactField:
		return r.checkArtifactField(a)
	case AssertTagValues:
		return r.checkTagValues(a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func (r *Result) checkArtifactField(a Assertion) error {
	state, ok := r.Engine.Artifacts.Get(a.ArtifactID)
	if !ok {
		return fmt.Errorf("artifact %q not projected", a.ArtifactID)
	}

	// Route the lookup through JSON so assertion field names match the
	// snapshot format exactly.
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	got, present := fields[a.Field]
	if !present {
		return fmt.Errorf("artifact %q has no field %q", a.ArtifactID, a.Field)
	}
	if !looselyEqual(got, a.Expect) {
		return fmt.Errorf("artifact %q field %q: expected %v, got %v", a.ArtifactID, a.Field, a.Expect, got)
	}
	return nil
}

func (r *Result) checkTagValues(a Assertion) error {
	state, ok := r.Engine.Artifacts.Get(a.ArtifactID)
	if !ok {
		return fmt.Errorf("artifact %q not projected", a.ArtifactID)
	}
	group := a.TagGroup
	if group == "" {
		group = "general"
	}
	entry, ok := state.Tags[group]
	if !ok {
		return fmt.Errorf("artifact %q has no tag group %q", a.ArtifactID, group)
	}
	if !reflect.DeepEqual(entry.Values, a.Values) {
		return fmt.Errorf("artifact %q tag group %q: expected %v, got %v", a.ArtifactID, group, a.Values, entry.Values)
	}
	return nil
}

// looselyEqual compares through JSON number semantics: YAML gives ints,
// projected state gives float64s, and 2 must equal 2.0.
func looselyEqual(got, expect any) bool {
	if reflect.DeepEqual(got, expect) {
		return true
	}
	gf, gok := toFloat(got)
	ef, eok := toFloat(expect)
	if gok && eok {
		return gf == ef
	}
	return fmt.Sprint(got) == fmt.Sprint(expect)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
