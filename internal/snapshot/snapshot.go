// Package snapshot persists projection state as JSONL files. Snapshots
// are a cache, not a source of truth. They can be deleted and rebuilt
// from the ledger at any time, so the reader is tolerant and the writer
// is atomic: a crash mid-write leaves the previous snapshot intact.
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/atlas/internal/event"
	"github.com/roach88/atlas/internal/projection"
)

// Conventional file names inside a snapshot directory.
const (
	ArtifactsFile = "artifacts.jsonl"
	RelationsFile = "relations.jsonl"
	ConflictsFile = "conflicts.jsonl"
)

// writeLines writes JSONL atomically: temp file in the same directory,
// flush, fsync, then rename over the destination. Readers of the old
// file are never exposed to a partial write.
func writeLines(path string, lines [][]byte) (retErr error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot: creating temp file: %w", err)
	}
	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("snapshot: writing %s: %w", path, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("snapshot: writing %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("snapshot: flushing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("snapshot: syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: closing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("snapshot: replacing %s: %w", path, err)
	}
	return nil
}

// readLines calls fn for each non-empty line of path. A missing file is
// an empty snapshot, not an error. Malformed lines are the caller's
// concern; fn reports whether it consumed the line.
func readLines(path string, fn func(line []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("snapshot: opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		fn(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("snapshot: reading %s: %w", path, err)
	}
	return nil
}

// WriteArtifacts writes artifact states one per line, ordered by
// artifact id so identical state always yields identical bytes.
func WriteArtifacts(path string, artifacts map[string]*projection.ArtifactState) (int, error) {
	ids := make([]string, 0, len(artifacts))
	for id := range artifacts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lines := make([][]byte, 0, len(ids))
	for _, id := range ids {
		line, err := event.MarshalCanonical(artifacts[id])
		if err != nil {
			return 0, fmt.Errorf("snapshot: encoding artifact %s: %w", id, err)
		}
		lines = append(lines, line)
	}
	if err := writeLines(path, lines); err != nil {
		return 0, err
	}
	return len(lines), nil
}

// ReadArtifacts loads a snapshot into a map keyed by artifact id.
// Malformed lines and entries without an artifact id are skipped.
func ReadArtifacts(path string) (map[string]*projection.ArtifactState, error) {
	out := map[string]*projection.ArtifactState{}
	err := readLines(path, func(line []byte) {
		var state projection.ArtifactState
		if err := json.Unmarshal(line, &state); err != nil {
			return
		}
		if state.ArtifactID == "" {
			return
		}
		out[state.ArtifactID] = &state
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WriteRelations writes relation edges in their upsert order.
func WriteRelations(path string, relations []projection.RelationEdge) (int, error) {
	lines := make([][]byte, 0, len(relations))
	for i := range relations {
		line, err := event.MarshalCanonical(relations[i])
		if err != nil {
			return 0, fmt.Errorf("snapshot: encoding relation: %w", err)
		}
		lines = append(lines, line)
	}
	if err := writeLines(path, lines); err != nil {
		return 0, err
	}
	return len(lines), nil
}

// ReadRelations loads relation edges, skipping malformed lines.
func ReadRelations(path string) ([]projection.RelationEdge, error) {
	var out []projection.RelationEdge
	err := readLines(path, func(line []byte) {
		var edge projection.RelationEdge
		if err := json.Unmarshal(line, &edge); err != nil {
			return
		}
		out = append(out, edge)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WriteConflicts writes conflict records in detection order.
func WriteConflicts(path string, conflicts []projection.ConflictRecord) (int, error) {
	lines := make([][]byte, 0, len(conflicts))
	for i := range conflicts {
		line, err := event.MarshalCanonical(conflicts[i])
		if err != nil {
			return 0, fmt.Errorf("snapshot: encoding conflict: %w", err)
		}
		lines = append(lines, line)
	}
	if err := writeLines(path, lines); err != nil {
		return 0, err
	}
	return len(lines), nil
}

// ReadConflicts loads conflict records, skipping malformed lines.
func ReadConflicts(path string) ([]projection.ConflictRecord, error) {
	var out []projection.ConflictRecord
	err := readLines(path, func(line []byte) {
		var rec projection.ConflictRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return
		}
		out = append(out, rec)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WriteAll persists the engine's full state under dir using the
// conventional file names.
func WriteAll(dir string, eng *projection.Engine) error {
	if _, err := WriteArtifacts(filepath.Join(dir, ArtifactsFile), eng.Artifacts.GetState()); err != nil {
		return err
	}
	if _, err := WriteRelations(filepath.Join(dir, RelationsFile), eng.Relations.GetState()); err != nil {
		return err
	}
	if _, err := WriteConflicts(filepath.Join(dir, ConflictsFile), eng.Conflicts.GetState()); err != nil {
		return err
	}
	return nil
}
