package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atlas/internal/ledger"
)

// execute runs the CLI with args, capturing stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	if stdin != "" {
		cmd.SetIn(strings.NewReader(stdin))
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

const validSeen = `{"event_id":"evt-1","event_type":"ARTIFACT_SEEN","ts":1700000000,"actor":{"module":"cli-test"},"payload":{"artifact_id":"art-1","locator":"/data/a.txt"}}`

func TestValidate_ValidInput(t *testing.T) {
	out, _, err := execute(t, validSeen+"\n", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "1 event(s), 0 invalid")
}

func TestValidate_InvalidInput(t *testing.T) {
	input := validSeen + "\n" +
		`{"event_id":"evt-2","event_type":"ARTIFACT_SEEN","ts":1,"actor":{"module":"m"},"payload":{"artifact_id":"art-2"}}` + "\n" +
		"not json\n"

	out, _, err := execute(t, input, "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "line 2: invalid")
	assert.Contains(t, out, "payload.locator")
	assert.Contains(t, out, "line 3: invalid")
	assert.Contains(t, out, "3 event(s), 2 invalid")
}

func TestValidate_JSONFormat(t *testing.T) {
	out, _, err := execute(t, validSeen+"\n", "validate", "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidate_MissingFile(t *testing.T) {
	_, _, err := execute(t, "", "validate", filepath.Join(t.TempDir(), "gone.jsonl"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAppend_WritesToLedger(t *testing.T) {
	root := t.TempDir()
	input := validSeen + "\n" +
		`{"event_id":"evt-2","event_type":"ARTIFACT_SEEN","ts":1700000001,"actor":{"module":"cli-test"},"payload":{"artifact_id":"art-2","locator":"/data/b.txt"}}`

	out, _, err := execute(t, input, "append", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "appended 2 event(s), last seq 2")

	store, err := ledger.Open(filepath.Join(root, "atlas", "ledger"))
	require.NoError(t, err)
	defer store.Close()
	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestAppend_RejectsBatchOnAnyInvalid(t *testing.T) {
	root := t.TempDir()
	input := validSeen + "\n" + `{"event_type":"ARTIFACT_SEEN"}`

	_, _, err := execute(t, input, "append", "--root", root)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	// Nothing was appended: the ledger directory was never written.
	store, err := ledger.Open(filepath.Join(root, "atlas", "ledger"))
	require.NoError(t, err)
	defer store.Close()
	n, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestScanThenProjectAndStats(t *testing.T) {
	root := t.TempDir()
	dataDir := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "b.txt"), []byte("beta"), 0o644))

	out, _, err := execute(t, "", "scan", dataDir, "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "files seen:      2")

	out, _, err = execute(t, "", "project", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "artifacts: 2")

	// Snapshots were written in the configured state directory.
	_, err = os.Stat(filepath.Join(root, "atlas", "state", "artifacts.jsonl"))
	require.NoError(t, err)

	out, _, err = execute(t, "", "stats", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "ARTIFACT_SEEN")
}

func TestRoot_RejectsUnknownFormat(t *testing.T) {
	_, _, err := execute(t, "", "validate", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestExitError(t *testing.T) {
	plain := NewExitError(ExitCommandError, "bad workspace")
	assert.Equal(t, "bad workspace", plain.Error())
	assert.Equal(t, ExitCommandError, GetExitCode(plain))

	wrapped := WrapExitError(ExitFailure, "parsing", os.ErrNotExist)
	assert.ErrorIs(t, wrapped, os.ErrNotExist)
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))

	// Non-exit errors default to failure.
	assert.Equal(t, ExitFailure, GetExitCode(os.ErrPermission))
}
