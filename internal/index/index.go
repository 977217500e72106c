// Package index maintains a SQLite secondary index over projected
// state for fast lookup by locator, hash, tag, and relation. The index
// is disposable. Deleting the database file loses nothing: a rebuild
// from the ledger or a snapshot restores it exactly.
package index

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Index wraps the SQLite database. SQLite allows one writer at a time,
// so the connection pool is limited to a single connection.
type Index struct {
	db *sql.DB
}

// Open creates or opens the index database at path, creating parent
// directories as needed. Pragmas and schema are applied automatically;
// the call is idempotent.
func Open(path string) (*Index, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("index: creating %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("index: opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("index: connecting to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("index: applying pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("index: applying schema: %w", err)
	}
	return &Index{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("executing %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (ix *Index) Close() error {
	if ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

// Clear removes all indexed rows. Used before a full rebuild.
func (ix *Index) Clear(ctx context.Context) error {
	for _, table := range []string{"artifacts", "relations", "tags"} {
		if _, err := ix.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("index: clearing %s: %w", table, err)
		}
	}
	return nil
}

// ArtifactRow is one indexed artifact entry.
type ArtifactRow struct {
	ArtifactID    string
	Locator       string
	ContentHash   string
	StructureHash string
	LastSeenAt    float64
	Confidence    *float64
}

// UpsertArtifact inserts or updates an artifact row. Empty fields never
// overwrite previously indexed values.
func (ix *Index) UpsertArtifact(ctx context.Context, row ArtifactRow) error {
	_, err := ix.db.ExecContext(ctx, `
		INSERT INTO artifacts
			(artifact_id, locator, content_hash, structure_hash, last_seen_at, confidence)
		VALUES (?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, 0.0), ?)
		ON CONFLICT(artifact_id) DO UPDATE SET
			locator        = COALESCE(excluded.locator, artifacts.locator),
			content_hash   = COALESCE(excluded.content_hash, artifacts.content_hash),
			structure_hash = COALESCE(excluded.structure_hash, artifacts.structure_hash),
			last_seen_at   = COALESCE(excluded.last_seen_at, artifacts.last_seen_at),
			confidence     = COALESCE(excluded.confidence, artifacts.confidence)
	`, row.ArtifactID, row.Locator, row.ContentHash, row.StructureHash, row.LastSeenAt, row.Confidence)
	if err != nil {
		return fmt.Errorf("index: upserting artifact %s: %w", row.ArtifactID, err)
	}
	return nil
}

// UpsertRelation inserts or updates the edge keyed by
// (source, target, type).
func (ix *Index) UpsertRelation(ctx context.Context, sourceID, targetID, relationType string, confidence float64, status, eventID string) error {
	if status == "" {
		status = "proposed"
	}
	_, err := ix.db.ExecContext(ctx, `
		INSERT INTO relations
			(source_id, target_id, relation_type, confidence, status, event_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, target_id, relation_type) DO UPDATE SET
			confidence = excluded.confidence,
			status     = excluded.status,
			event_id   = excluded.event_id
	`, sourceID, targetID, relationType, confidence, status, eventID)
	if err != nil {
		return fmt.Errorf("index: upserting relation %s -> %s: %w", sourceID, targetID, err)
	}
	return nil
}

// UpsertTag inserts or updates one tag on an artifact.
func (ix *Index) UpsertTag(ctx context.Context, artifactID, tag string, confidence float64, eventID string) error {
	_, err := ix.db.ExecContext(ctx, `
		INSERT INTO tags (artifact_id, tag, confidence, event_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(artifact_id, tag) DO UPDATE SET
			confidence = excluded.confidence,
			event_id   = excluded.event_id
	`, artifactID, tag, confidence, eventID)
	if err != nil {
		return fmt.Errorf("index: upserting tag %s on %s: %w", tag, artifactID, err)
	}
	return nil
}

// FindByLocator returns the artifact id observed at a locator, with
// ok=false when the locator is unknown.
func (ix *Index) FindByLocator(ctx context.Context, locator string) (string, bool, error) {
	var id string
	err := ix.db.QueryRowContext(ctx,
		"SELECT artifact_id FROM artifacts WHERE locator = ?", locator).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("index: locator lookup: %w", err)
	}
	return id, true, nil
}

// FindByHash returns artifact ids whose content or structure hash
// matches, ordered by artifact id.
func (ix *Index) FindByHash(ctx context.Context, hash string) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT artifact_id FROM artifacts
		WHERE content_hash = ? OR structure_hash = ?
		ORDER BY artifact_id
	`, hash, hash)
	if err != nil {
		return nil, fmt.Errorf("index: hash lookup: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// FindByTag returns artifact ids carrying a tag, ordered by artifact id.
func (ix *Index) FindByTag(ctx context.Context, tag string) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx,
		"SELECT artifact_id FROM tags WHERE tag = ? ORDER BY artifact_id", tag)
	if err != nil {
		return nil, fmt.Errorf("index: tag lookup: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// Tags returns the tags on one artifact, ordered by tag.
func (ix *Index) Tags(ctx context.Context, artifactID string) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx,
		"SELECT tag FROM tags WHERE artifact_id = ? ORDER BY tag", artifactID)
	if err != nil {
		return nil, fmt.Errorf("index: tags for %s: %w", artifactID, err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// Direction selects which edges Neighbors follows.
type Direction string

const (
	Out  Direction = "out"
	In   Direction = "in"
	Both Direction = "both"
)

// Neighbor is one edge adjacent to the queried artifact.
type Neighbor struct {
	Direction    Direction `json:"direction"`
	ArtifactID   string    `json:"artifact_id"`
	RelationType string    `json:"relation_type"`
	Confidence   float64   `json:"confidence"`
	Status       string    `json:"status"`
}

// Neighbors returns artifacts related to artifactID. An empty
// typeFilter matches every relation type.
func (ix *Index) Neighbors(ctx context.Context, artifactID string, dir Direction, typeFilter string) ([]Neighbor, error) {
	var out []Neighbor

	if dir == Out || dir == Both {
		found, err := ix.neighborQuery(ctx, `
			SELECT target_id, relation_type, confidence, status
			FROM relations WHERE source_id = ?
		`, Out, artifactID, typeFilter)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	if dir == In || dir == Both {
		found, err := ix.neighborQuery(ctx, `
			SELECT source_id, relation_type, confidence, status
			FROM relations WHERE target_id = ?
		`, In, artifactID, typeFilter)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

func (ix *Index) neighborQuery(ctx context.Context, query string, dir Direction, artifactID, typeFilter string) ([]Neighbor, error) {
	args := []any{artifactID}
	if typeFilter != "" {
		query += " AND relation_type = ?"
		args = append(args, typeFilter)
	}
	query += " ORDER BY relation_type, 1"

	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: neighbor query: %w", err)
	}
	defer rows.Close()

	var out []Neighbor
	for rows.Next() {
		n := Neighbor{Direction: dir}
		var confidence sql.NullFloat64
		var status sql.NullString
		if err := rows.Scan(&n.ArtifactID, &n.RelationType, &confidence, &status); err != nil {
			return nil, fmt.Errorf("index: scanning neighbor: %w", err)
		}
		n.Confidence = confidence.Float64
		n.Status = status.String
		out = append(out, n)
	}
	return out, rows.Err()
}

// Stats reports row counts per table.
type Stats struct {
	Artifacts int64 `json:"artifacts"`
	Relations int64 `json:"relations"`
	Tags      int64 `json:"tags"`
}

// Stats counts indexed rows.
func (ix *Index) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	queries := []struct {
		table string
		dst   *int64
	}{
		{"artifacts", &s.Artifacts},
		{"relations", &s.Relations},
		{"tags", &s.Tags},
	}
	for _, q := range queries {
		if err := ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+q.table).Scan(q.dst); err != nil {
			return Stats{}, fmt.Errorf("index: counting %s: %w", q.table, err)
		}
	}
	return s, nil
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("index: scanning row: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
