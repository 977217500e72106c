package eye

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/atlas/internal/budget"
	"github.com/roach88/atlas/internal/event"
	"github.com/roach88/atlas/internal/ledger"
)

// hashPrefixBytes is how much of a file the filesystem eye reads for
// identity. Enough to distinguish files cheaply; fingerprinting the
// full content is the extractor's job.
const hashPrefixBytes = 4096

// Filesystem walks a directory tree and records every regular file it
// can see within budget.
type Filesystem struct {
	Ledger ledger.Appender
	Module string
}

// NewFilesystem builds a filesystem eye writing through app.
func NewFilesystem(app ledger.Appender) *Filesystem {
	return &Filesystem{Ledger: app, Module: "eyes.filesystem"}
}

func (f *Filesystem) Name() string { return "filesystem" }

// Observe walks root, emitting ARTIFACT_SEEN per visible file plus
// FINGERPRINT_COMPUTED when the content could be hashed. Budget
// exhaustion stops the walk and emits ACCESS_LIMITATION_NOTED plus
// BUDGET_EXHAUSTED; it is reported, never returned as an error. Only
// ledger write failures propagate.
func (f *Filesystem) Observe(ctx context.Context, root string, guard *budget.Guard, sessionID string) (Report, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Report{}, err
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return Report{StoppedReason: "root_not_found"}, nil
	}

	guard.Start()
	defer guard.Stop()

	var report Report
	stop := func(reason string) error {
		report.StoppedReason = reason
		return fs.SkipAll
	}

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entry. Note it and keep walking.
			if emitErr := f.noteLimitation(path, "permission", err.Error(), sessionID, &report); emitErr != nil {
				return emitErr
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		depth := pathDepth(absRoot, path)
		if d.IsDir() {
			if !guard.AtDepth(depth) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !guard.AtDepth(depth) {
			return nil
		}

		if !guard.CanContinue() {
			if err := f.noteBudgetStop(guard, path, sessionID, &report); err != nil {
				return err
			}
			return stop("budget_exhausted")
		}

		info, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		size := info.Size()

		if !guard.CanConsume(budget.BytesRead, float64(size)) {
			if err := f.noteBudgetStop(guard, path, sessionID, &report); err != nil {
				return err
			}
			return stop("byte_budget_exceeded")
		}
		if !guard.ConsumeFile(size) {
			if err := f.noteBudgetStop(guard, path, sessionID, &report); err != nil {
				return err
			}
			return stop("file_budget_exceeded")
		}

		contentHash := hashPrefix(path)
		artifactID := contentHash
		if artifactID == "" {
			artifactID = event.NewID("art")
		}

		opts := []event.Option{event.WithSession(sessionID)}
		if contentHash != "" {
			opts = append(opts, event.WithConfidence(0.95))
		} else {
			opts = append(opts, event.WithConfidence(0.5))
		}
		env := event.NewArtifactSeen(f.Module, artifactID, path, size, opts...)
		env.Payload["access_scope"] = "read-only"
		if contentHash != "" {
			env.Payload["content_hash"] = contentHash
		}
		if _, err := f.Ledger.Append(env); err != nil {
			return err
		}
		if contentHash != "" {
			fp := event.NewFingerprintComputed(f.Module, artifactID, contentHash, "", size, 0,
				event.WithSession(sessionID), event.WithConfidence(0.95))
			if _, err := f.Ledger.Append(fp); err != nil {
				return err
			}
			report.EventsEmitted++
		}

		report.FilesSeen++
		report.BytesAccounted += size
		report.EventsEmitted++
		return nil
	})

	if walkErr != nil && walkErr != fs.SkipAll {
		return report, walkErr
	}
	return report, nil
}

// noteBudgetStop records which budgets ran out before the walk stops.
func (f *Filesystem) noteBudgetStop(guard *budget.Guard, path, sessionID string, report *Report) error {
	kinds := guard.ExhaustedKinds()
	reason := "budget exhausted"
	if len(kinds) > 0 {
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = string(k)
		}
		reason = "budget exhausted: " + strings.Join(names, ", ")
	}
	if err := f.noteLimitation(path, "budget", reason, sessionID, report); err != nil {
		return err
	}

	summary := guard.Summary()
	for _, kind := range kinds {
		b, ok := summary.Budgets[kind]
		if !ok {
			continue
		}
		env := event.NewBudgetExhausted(f.Module, string(kind), b.Limit, b.Consumed,
			event.WithSession(sessionID))
		if _, err := f.Ledger.Append(env); err != nil {
			return err
		}
		report.EventsEmitted++
	}
	return nil
}

func (f *Filesystem) noteLimitation(path, limitationType, reason, sessionID string, report *Report) error {
	env := event.NewAccessLimitationNoted(f.Module, "", limitationType, reason,
		event.WithSession(sessionID))
	env.Payload["locator"] = path
	if _, err := f.Ledger.Append(env); err != nil {
		return err
	}
	report.EventsEmitted++
	return nil
}

// pathDepth counts directories between root and path. A file directly
// under root has depth 0.
func pathDepth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator))
}

// hashPrefix returns the SHA-256 of the first 4096 bytes, or empty when
// the file cannot be read.
func hashPrefix(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, hashPrefixBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return ""
	}
	sum := sha256.Sum256(buf[:n])
	return hex.EncodeToString(sum[:])
}
