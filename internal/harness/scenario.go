// Package harness runs conformance scenarios: YAML files describing an
// event sequence and assertions over the projected state it must
// produce. Scenarios pin down replay semantics without hand-writing a
// ledger in every test.
package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/atlas/internal/event"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are stored
	// under this name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Events is the ledger content, in append order.
	Events []ScenarioEvent `yaml:"events"`

	// Assertions validate the projected state after replay.
	Assertions []Assertion `yaml:"assertions"`
}

// ScenarioEvent is one envelope as written in scenario YAML. Omitted
// event ids and timestamps are filled deterministically so golden
// output is stable.
type ScenarioEvent struct {
	EventID      string         `yaml:"event_id,omitempty"`
	EventType    string         `yaml:"event_type"`
	TS           float64        `yaml:"ts,omitempty"`
	Module       string         `yaml:"module,omitempty"`
	ArtifactID   string         `yaml:"artifact_id,omitempty"`
	SessionID    string         `yaml:"session_id,omitempty"`
	Confidence   *float64       `yaml:"confidence,omitempty"`
	EvidenceRefs []string       `yaml:"evidence_refs,omitempty"`
	ArtifactRefs []string       `yaml:"artifact_refs,omitempty"`
	Payload      map[string]any `yaml:"payload,omitempty"`
}

// Envelope converts the YAML form into a real envelope. seq numbers the
// event within its scenario for deterministic id and timestamp fill.
func (se ScenarioEvent) Envelope(seq int) event.Envelope {
	e := event.Envelope{
		EventID:      se.EventID,
		EventType:    event.Type(se.EventType),
		TS:           se.TS,
		Actor:        event.Actor{Module: se.Module},
		ArtifactID:   se.ArtifactID,
		SessionID:    se.SessionID,
		Confidence:   se.Confidence,
		EvidenceRefs: se.EvidenceRefs,
		ArtifactRefs: se.ArtifactRefs,
		Payload:      se.Payload,
	}
	if e.EventID == "" {
		e.EventID = fmt.Sprintf("evt-%04d", seq)
	}
	if e.TS == 0 {
		e.TS = float64(1000 + seq)
	}
	if e.Actor.Module == "" {
		e.Actor.Module = "harness"
	}
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	return e
}

// Assertion validates projected state after replay.
type Assertion struct {
	// Type selects the check:
	//   - "artifact_field": one field of a projected artifact
	//   - "artifact_count": number of projected artifacts
	//   - "relation_count": number of relation edges
	//   - "conflict_count": number of conflict records
	//   - "tag_values": current values of a tag group on an artifact
	Type string `yaml:"type"`

	ArtifactID string `yaml:"artifact_id,omitempty"`
	Field      string `yaml:"field,omitempty"`
	TagGroup   string `yaml:"tag_group,omitempty"`

	Expect any      `yaml:"expect,omitempty"`
	Values []string `yaml:"values,omitempty"`
	Count  int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertArtifactField = "artifact_field"
	AssertArtifactCount = "artifact_count"
	AssertRelationCount = "relation_count"
	AssertConflictCount = "conflict_count"
	AssertTagValues     = "tag_values"
)

// LoadScenario reads and validates a single scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("harness: reading scenario %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("harness: parsing scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("harness: scenario %s has no name", path)
	}
	if len(s.Events) == 0 {
		return nil, fmt.Errorf("harness: scenario %q has no events", s.Name)
	}
	return &s, nil
}

// LoadDir loads every *.yaml scenario under dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("harness: reading scenario dir %s: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ext := filepath.Ext(entry.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}
