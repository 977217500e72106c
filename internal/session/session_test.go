package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atlas/internal/budget"
	"github.com/roach88/atlas/internal/event"
	"github.com/roach88/atlas/internal/eye"
	"github.com/roach88/atlas/internal/ledger"
)

func TestLifecycle_Complete(t *testing.T) {
	log := ledger.NewMemory()
	s := New("/data", "scan", budget.Unlimited())
	assert.Equal(t, Created, s.State())
	assert.True(t, strings.HasPrefix(s.ID, "ses-"))

	require.NoError(t, s.Start(log, "cli"))
	assert.Equal(t, Active, s.State())

	s.RecordReport(eye.Report{FilesSeen: 5, BytesAccounted: 500, EventsEmitted: 5})
	s.RecordReport(eye.Report{FilesSeen: 2, BytesAccounted: 40, EventsEmitted: 3, StoppedReason: "budget_exhausted"})
	s.RecordError()

	require.NoError(t, s.Complete(log, "cli"))
	assert.Equal(t, Completed, s.State())

	summary := s.Summary()
	assert.Equal(t, int64(7), summary.FilesSeen)
	assert.Equal(t, int64(540), summary.BytesAccounted)
	assert.Equal(t, int64(8), summary.EventsEmitted)
	assert.Equal(t, int64(1), summary.Errors)
	assert.Equal(t, "budget_exhausted", summary.StoppedReason)

	started, _, err := log.Read(ledger.Filter{Types: []event.Type{event.SessionStarted}})
	require.NoError(t, err)
	require.Len(t, started, 1)
	assert.Equal(t, s.ID, started[0].Event.SessionID)

	ended, _, err := log.Read(ledger.Filter{Types: []event.Type{event.SessionEnded}})
	require.NoError(t, err)
	require.Len(t, ended, 1)
	files, ok := ended[0].Event.PayloadNumber("files_seen")
	require.True(t, ok)
	assert.Equal(t, 7.0, files)
}

func TestLifecycle_Abort(t *testing.T) {
	log := ledger.NewMemory()
	s := New("/data", "scan", nil)

	require.NoError(t, s.Start(log, "cli"))
	require.NoError(t, s.Abort(log, "cli", "disk unreadable"))

	assert.Equal(t, Aborted, s.State())
	assert.Equal(t, "disk unreadable", s.Summary().StoppedReason)
}

func TestLifecycle_InvalidTransitions(t *testing.T) {
	log := ledger.NewMemory()
	s := New("/data", "scan", nil)

	// Ending before starting.
	assert.Error(t, s.Complete(log, "cli"))

	require.NoError(t, s.Start(log, "cli"))
	// Double start.
	assert.Error(t, s.Start(log, "cli"))

	require.NoError(t, s.Complete(log, "cli"))
	// Double end.
	assert.Error(t, s.Complete(log, "cli"))
	assert.Error(t, s.Abort(log, "cli", "late"))
	assert.Equal(t, Completed, s.State())
}

func TestNilAppenderAndGuard(t *testing.T) {
	s := New("/data", "scan", nil)
	require.NoError(t, s.Start(nil, "cli"))
	require.NoError(t, s.Complete(nil, "cli"))
	assert.Equal(t, Completed, s.State())
}
