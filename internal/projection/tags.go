package projection

import (
	"sort"

	"github.com/roach88/atlas/internal/event"
	"github.com/roach88/atlas/internal/ledger"
)

// TagProjector maintains the inverted tag index: tag value → artifact ids.
// It honors the same one-slot-per-group rule as the artifact snapshots, so
// an artifact whose "semantic" tags are re-proposed loses its previous
// semantic tags in the index.
type TagProjector struct {
	// byArtifact: artifact → tag group → current values for that group.
	byArtifact map[string]map[string][]string
}

// NewTagProjector returns an empty tag projector.
func NewTagProjector() *TagProjector {
	return &TagProjector{byArtifact: map[string]map[string][]string{}}
}

// Apply reduces one event. Non-tag events are no-ops.
func (p *TagProjector) Apply(r ledger.Record) {
	e := r.Event
	if e.EventType != event.TagsProposed {
		return
	}
	artifactID := e.Artifact()
	if artifactID == "" {
		return
	}
	values := stringList(e.Payload["tags"])
	if len(values) == 0 {
		return
	}
	group, ok := e.PayloadString("tag_type")
	if !ok || group == "" {
		group = "general"
	}

	groups, ok := p.byArtifact[artifactID]
	if !ok {
		groups = map[string][]string{}
		p.byArtifact[artifactID] = groups
	}
	groups[group] = values
}

// GetState returns the inverted index: tag value → sorted artifact ids.
func (p *TagProjector) GetState() map[string][]string {
	index := map[string]map[string]bool{}
	for artifactID, groups := range p.byArtifact {
		for _, values := range groups {
			for _, tag := range values {
				if index[tag] == nil {
					index[tag] = map[string]bool{}
				}
				index[tag][artifactID] = true
			}
		}
	}

	out := make(map[string][]string, len(index))
	for tag, ids := range index {
		sorted := make([]string, 0, len(ids))
		for id := range ids {
			sorted = append(sorted, id)
		}
		sort.Strings(sorted)
		out[tag] = sorted
	}
	return out
}

// TagsFor returns the current tag groups for one artifact.
func (p *TagProjector) TagsFor(artifactID string) map[string][]string {
	groups, ok := p.byArtifact[artifactID]
	if !ok {
		return nil
	}
	out := make(map[string][]string, len(groups))
	for group, values := range groups {
		out[group] = append([]string(nil), values...)
	}
	return out
}

// Reset clears the index for a fresh rebuild.
func (p *TagProjector) Reset() {
	p.byArtifact = map[string]map[string][]string{}
}
