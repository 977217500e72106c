package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/atlas/internal/ledger"
	"github.com/roach88/atlas/internal/projection"
)

// BuildResult reports what a rebuild indexed.
type BuildResult struct {
	Artifacts int `json:"artifacts"`
	Relations int `json:"relations"`
	Tags      int `json:"tags"`
}

// Rebuild clears the index and repopulates it from projected state.
// Artifacts are indexed in id order so rebuilds are deterministic.
func Rebuild(ctx context.Context, ix *Index, eng *projection.Engine) (BuildResult, error) {
	if err := ix.Clear(ctx); err != nil {
		return BuildResult{}, err
	}

	var res BuildResult

	artifacts := eng.Artifacts.GetState()
	ids := make([]string, 0, len(artifacts))
	for id := range artifacts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		state := artifacts[id]
		row := ArtifactRow{
			ArtifactID:    state.ArtifactID,
			Locator:       state.Locator,
			ContentHash:   state.ContentHash,
			StructureHash: state.StructureHash,
			LastSeenAt:    state.LastSeenAt,
			Confidence:    state.Confidence,
		}
		if err := ix.UpsertArtifact(ctx, row); err != nil {
			return res, err
		}
		res.Artifacts++

		groups := make([]string, 0, len(state.Tags))
		for group := range state.Tags {
			groups = append(groups, group)
		}
		sort.Strings(groups)
		for _, group := range groups {
			entry := state.Tags[group]
			for _, tag := range entry.Values {
				if err := ix.UpsertTag(ctx, id, tag, entry.Confidence, entry.EventID); err != nil {
					return res, err
				}
				res.Tags++
			}
		}
	}

	for _, edge := range eng.Relations.GetState() {
		err := ix.UpsertRelation(ctx, edge.SourceID, edge.TargetID, edge.RelationType,
			edge.Confidence, edge.Status, edge.EventID)
		if err != nil {
			return res, err
		}
		res.Relations++
	}

	return res, nil
}

// RebuildFromLedger replays the full ledger into a fresh projection
// engine and indexes the result.
func RebuildFromLedger(ctx context.Context, ix *Index, log ledger.Log) (BuildResult, error) {
	eng := projection.NewEngine()
	if _, err := eng.RebuildFrom(log); err != nil {
		return BuildResult{}, fmt.Errorf("index: replaying ledger: %w", err)
	}
	return Rebuild(ctx, ix, eng)
}
