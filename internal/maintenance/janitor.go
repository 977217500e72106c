// Package maintenance analyzes system state and recommends actions.
// The janitor never deletes anything. It only produces recommendations
// and records them as events; acting on them is a human decision.
package maintenance

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/roach88/atlas/internal/confidence"
	"github.com/roach88/atlas/internal/event"
	"github.com/roach88/atlas/internal/ledger"
	"github.com/roach88/atlas/internal/projection"
)

// Action is a recommended maintenance operation.
type Action string

const (
	Archive    Action = "archive"
	Review     Action = "review"
	PruneCache Action = "prune_cache"
)

// Recommendation is one maintenance suggestion.
type Recommendation struct {
	ID             string  `json:"recommendation_id"`
	Action         Action  `json:"action"`
	ArtifactID     string  `json:"artifact_id,omitempty"`
	Path           string  `json:"path,omitempty"`
	Reason         string  `json:"reason"`
	StalenessScore float64 `json:"staleness_score"`
	Priority       string  `json:"priority"`
}

// Staleness is the freshness analysis of one artifact.
type Staleness struct {
	ArtifactID     string  `json:"artifact_id"`
	LastSeenAt     float64 `json:"last_seen_at,omitempty"`
	AgeHours       float64 `json:"age_hours"`
	Volatility     float64 `json:"volatility"`
	FreshnessScore float64 `json:"freshness_score"`
	StalenessScore float64 `json:"staleness_score"`
	Recommendation Action  `json:"recommendation,omitempty"`
}

// Janitor inspects projected state and cache directories. A nil Ledger
// skips event emission; the analysis is unaffected.
type Janitor struct {
	Ledger ledger.Appender
	Module string

	// Staleness above ArchiveThreshold recommends archiving; above
	// ReviewThreshold, review. Zero values take the defaults.
	ArchiveThreshold float64
	ReviewThreshold  float64

	Now func() time.Time
}

// NewJanitor builds a janitor with default thresholds.
func NewJanitor(app ledger.Appender) *Janitor {
	return &Janitor{
		Ledger:           app,
		Module:           "maintenance.janitor",
		ArchiveThreshold: 0.9,
		ReviewThreshold:  0.7,
		Now:              time.Now,
	}
}

// AnalyzeStaleness scores one artifact. Freshness follows the same
// half-life curve confidence decay uses, so a stale artifact and a
// decayed confidence agree about time.
func (j *Janitor) AnalyzeStaleness(state *projection.ArtifactState, volatility float64) Staleness {
	now := float64(j.Now().UnixNano()) / 1e9

	s := Staleness{
		ArtifactID: state.ArtifactID,
		LastSeenAt: state.LastSeenAt,
		Volatility: volatility,
	}

	if state.LastSeenAt <= 0 {
		s.AgeHours = math.Inf(1)
		s.FreshnessScore = 0
	} else {
		s.AgeHours = (now - state.LastSeenAt) / 3600
		halfLife := confidence.HalfLife(volatility)
		s.FreshnessScore = math.Pow(0.5, s.AgeHours/halfLife)
	}
	s.StalenessScore = 1.0 - s.FreshnessScore

	switch {
	case s.StalenessScore > j.ArchiveThreshold:
		s.Recommendation = Archive
	case s.StalenessScore > j.ReviewThreshold:
		s.Recommendation = Review
	}
	return s
}

// AnalyzeArtifacts scores every artifact and returns archive
// recommendations, most stale first. Each recommendation is recorded
// as an ARCHIVE_RECOMMENDED event.
func (j *Janitor) AnalyzeArtifacts(artifacts map[string]*projection.ArtifactState, volatility float64, sessionID string) ([]Recommendation, error) {
	ids := make([]string, 0, len(artifacts))
	for id := range artifacts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var recs []Recommendation
	for _, id := range ids {
		state := artifacts[id]
		analysis := j.AnalyzeStaleness(state, volatility)
		if analysis.StalenessScore < j.ArchiveThreshold {
			continue
		}

		priority := "medium"
		if analysis.StalenessScore > 0.95 {
			priority = "high"
		}
		rec := Recommendation{
			ID:             event.NewID("jan"),
			Action:         Archive,
			ArtifactID:     id,
			Path:           state.Locator,
			Reason:         reasonFor(analysis),
			StalenessScore: analysis.StalenessScore,
			Priority:       priority,
		}
		recs = append(recs, rec)

		if j.Ledger != nil {
			// Infinity does not survive JSON encoding.
			stalenessDays := analysis.AgeHours / 24
			if math.IsInf(stalenessDays, 1) {
				stalenessDays = 0
			}
			env := event.NewArchiveRecommended(j.Module, id, rec.Reason, stalenessDays,
				event.WithSession(sessionID))
			if _, err := j.Ledger.Append(env); err != nil {
				return recs, err
			}
		}
	}

	sort.SliceStable(recs, func(a, b int) bool {
		return recs[a].StalenessScore > recs[b].StalenessScore
	})
	return recs, nil
}

// AnalyzeCache walks cacheDir and recommends pruning files older than
// maxAge. Paths containing "archive" are left alone.
func (j *Janitor) AnalyzeCache(cacheDir string, maxAge time.Duration, sessionID string) ([]Recommendation, error) {
	if _, err := os.Stat(cacheDir); err != nil {
		return nil, nil
	}

	now := j.Now()
	var recs []Recommendation

	walkErr := filepath.WalkDir(cacheDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.Contains(path, "archive") {
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		age := now.Sub(info.ModTime())
		if age <= maxAge {
			return nil
		}

		ageDays := age.Hours() / 24
		staleness := math.Min(1.0, age.Seconds()/(maxAge.Seconds()*2))
		rec := Recommendation{
			ID:             event.NewID("jan"),
			Action:         PruneCache,
			Path:           path,
			Reason:         strings.TrimSpace(prettyAge(ageDays) + " old cache file"),
			StalenessScore: staleness,
			Priority:       "low",
		}
		recs = append(recs, rec)

		if j.Ledger != nil {
			env := event.NewPruneCacheRecommended(j.Module, path, rec.Reason, ageDays,
				event.WithSession(sessionID))
			if _, appendErr := j.Ledger.Append(env); appendErr != nil {
				return appendErr
			}
		}
		return nil
	})
	if walkErr != nil {
		return recs, walkErr
	}
	return recs, nil
}

// Run performs the full analysis pass: staleness over projected state,
// then cache pruning when a cache directory is given. Results are
// ordered most stale first.
func (j *Janitor) Run(artifacts map[string]*projection.ArtifactState, volatility float64, cacheDir string, sessionID string) ([]Recommendation, error) {
	recs, err := j.AnalyzeArtifacts(artifacts, volatility, sessionID)
	if err != nil {
		return recs, err
	}
	if cacheDir != "" {
		cacheRecs, err := j.AnalyzeCache(cacheDir, 30*24*time.Hour, sessionID)
		if err != nil {
			return recs, err
		}
		recs = append(recs, cacheRecs...)
	}
	sort.SliceStable(recs, func(a, b int) bool {
		return recs[a].StalenessScore > recs[b].StalenessScore
	})
	return recs, nil
}

func reasonFor(s Staleness) string {
	if math.IsInf(s.AgeHours, 1) {
		return "never observed with a timestamp"
	}
	return fmt.Sprintf("staleness %.0f%%, last seen %.1fh ago", s.StalenessScore*100, s.AgeHours)
}

func prettyAge(days float64) string {
	return fmt.Sprintf("%.0f days", days)
}
