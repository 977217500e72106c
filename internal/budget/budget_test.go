package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atlas/internal/testutil"
)

func TestConsume_RecordsOvershoot(t *testing.T) {
	g := New(Limits{Files: 2})

	assert.True(t, g.Consume(FilesScanned, 1))
	assert.True(t, g.Consume(FilesScanned, 1))
	// Over the cap: the answer flips but the amount still lands, so the
	// summary reflects what actually happened.
	assert.False(t, g.Consume(FilesScanned, 1))

	s := g.Summary()
	assert.Equal(t, 3.0, s.Budgets[FilesScanned].Consumed)
	assert.True(t, s.Exhausted)
	assert.Equal(t, []Kind{FilesScanned}, s.ExhaustedKinds)
}

func TestCanConsume_DoesNotRecord(t *testing.T) {
	g := New(Limits{Bytes: 100})

	assert.True(t, g.CanConsume(BytesRead, 100))
	assert.False(t, g.CanConsume(BytesRead, 101))

	s := g.Summary()
	assert.Zero(t, s.Budgets[BytesRead].Consumed)
}

func TestUnconstrainedKind(t *testing.T) {
	g := New(Limits{Files: 1})

	// No byte limit configured: always allowed, never exhausted.
	assert.True(t, g.Consume(BytesRead, 1<<40))
	assert.True(t, g.CanConsume(BytesRead, 1<<40))
	assert.True(t, g.CanContinue())

	_, constrained := g.Remaining(BytesRead)
	assert.False(t, constrained)
}

func TestConsumeFile(t *testing.T) {
	g := New(Limits{Files: 10, Bytes: 100})

	assert.True(t, g.ConsumeFile(60))
	assert.False(t, g.ConsumeFile(60))

	s := g.Summary()
	assert.Equal(t, 2.0, s.Budgets[FilesScanned].Consumed)
	assert.Equal(t, 120.0, s.Budgets[BytesRead].Consumed)
}

func TestAtDepth_ComparesNeverConsumes(t *testing.T) {
	g := New(Limits{Depth: 3})

	for i := 0; i < 100; i++ {
		assert.True(t, g.AtDepth(3))
	}
	assert.False(t, g.AtDepth(4))
	assert.True(t, g.CanContinue())

	s := g.Summary()
	assert.Zero(t, s.Budgets[Depth].Consumed)
}

func TestRemaining_NeverNegative(t *testing.T) {
	g := New(Limits{Items: 5})
	g.Consume(Items, 9)

	r, ok := g.Remaining(Items)
	require.True(t, ok)
	assert.Zero(t, r)
}

func TestTimeBudget_FrozenByStop(t *testing.T) {
	clock := testutil.NewDeterministicClock(time.Unix(1700000000, 0))
	g := New(Limits{TimeSeconds: 30}).WithClock(clock.Now)

	g.Start()
	clock.Advance(10 * time.Second)
	assert.True(t, g.CanContinue())

	r, ok := g.Remaining(Time)
	require.True(t, ok)
	assert.InDelta(t, 20.0, r, 1e-9)

	g.Stop()
	clock.Advance(5 * time.Minute)

	// Stop froze the clock: the post-run summary is stable.
	s := g.Summary()
	assert.InDelta(t, 10.0, s.Budgets[Time].Consumed, 1e-9)
	assert.False(t, s.Exhausted)
}

func TestTimeBudget_Exhaustion(t *testing.T) {
	clock := testutil.NewDeterministicClock(time.Unix(1700000000, 0))
	g := New(Limits{TimeSeconds: 30}).WithClock(clock.Now)

	g.Start()
	clock.Advance(31 * time.Second)

	assert.True(t, g.AnyExhausted())
	assert.False(t, g.CanContinue())
	assert.Equal(t, []Kind{Time}, g.ExhaustedKinds())

	r, ok := g.Remaining(Time)
	require.True(t, ok)
	assert.Zero(t, r)
}

func TestExhaustedKinds_Sorted(t *testing.T) {
	g := New(Limits{Files: 1, Bytes: 1, Items: 1})
	g.Consume(FilesScanned, 2)
	g.Consume(BytesRead, 2)
	g.Consume(Items, 2)

	assert.Equal(t, []Kind{BytesRead, FilesScanned, Items}, g.ExhaustedKinds())
}

func TestPresets(t *testing.T) {
	quick := QuickScan()
	r, ok := quick.Remaining(FilesScanned)
	require.True(t, ok)
	assert.Equal(t, 100.0, r)

	standard := Standard()
	r, ok = standard.Remaining(FilesScanned)
	require.True(t, ok)
	assert.Equal(t, 1000.0, r)

	deep := DeepAnalysis()
	r, ok = deep.Remaining(BytesRead)
	require.True(t, ok)
	assert.Equal(t, float64(1<<30), r)

	// Unlimited constrains nothing.
	unlimited := Unlimited()
	assert.True(t, unlimited.CanContinue())
	_, ok = unlimited.Remaining(FilesScanned)
	assert.False(t, ok)
}

func TestPreset_ByName(t *testing.T) {
	for _, name := range []string{"quick_scan", "quick-scan"} {
		g := Preset(name)
		r, ok := g.Remaining(FilesScanned)
		require.True(t, ok, name)
		assert.Equal(t, 100.0, r, name)
	}

	// Unknown names fall back to the standard profile.
	g := Preset("no_such_profile")
	r, ok := g.Remaining(FilesScanned)
	require.True(t, ok)
	assert.Equal(t, 1000.0, r)
}
