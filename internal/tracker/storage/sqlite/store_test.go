package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apex-hep/trackseed/internal/tracker/l3spacepoints"
	"github.com/apex-hep/trackseed/internal/tracker/l4seeding"
	"github.com/apex-hep/trackseed/internal/tracker/l5params"
	"github.com/apex-hep/trackseed/internal/tracker/pipeline"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "seeds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateRunAndList(t *testing.T) {
	store := openTestStore(t)

	run, err := store.CreateRun(map[string]any{"bfield_z": 2.0})
	require.NoError(t, err)
	assert.NotEmpty(t, run.RunID)
	assert.Contains(t, run.ParamsJSON, "bfield_z")

	run2, err := store.CreateRun(nil)
	require.NoError(t, err)
	assert.NotEqual(t, run.RunID, run2.RunID)

	runs, err := store.Runs()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestPersistEventRoundTrip(t *testing.T) {
	store := openTestStore(t)
	run, err := store.CreateRun(pipeline.DefaultConfig())
	require.NoError(t, err)

	sps := []l3spacepoints.Spacepoint{
		{X: 30, Y: 1, Z: 15, Radius: 30.0166, Phi: 0.0333},
		{X: 60, Y: 2, Z: 30, Radius: 60.0333, Phi: 0.0333},
		{X: 90, Y: 3, Z: 45, Radius: 90.0499, Phi: 0.0333},
	}
	res := &pipeline.Result{
		CellLinks:   []int32{0, 0, 1, 2},
		Spacepoints: sps,
		Seeds: []l4seeding.Seed{
			{Bottom: 0, Middle: 1, Top: 2, Weight: -0.5, ZVertex: 0.1},
		},
		Params: []l5params.BoundParams{
			{D0: 0.02, Z0: 0.1, Phi: 0.0333, Theta: 1.1, QOverPt: 0.004},
		},
	}
	sink := store.NewRunSink(run.RunID)
	require.NoError(t, sink.PersistEvent(3, res))

	seeds, err := store.SeedsForRun(run.RunID)
	require.NoError(t, err)
	require.Len(t, seeds, 1)
	got := seeds[0]
	assert.Equal(t, 3, got.EventID)
	assert.Equal(t, uint32(0), got.Bottom)
	assert.Equal(t, uint32(1), got.Middle)
	assert.Equal(t, uint32(2), got.Top)
	assert.InDelta(t, -0.5, got.Weight, 1e-12)
	assert.InDelta(t, 0.1, got.ZVertex, 1e-12)
	assert.InDelta(t, 0.004, got.QOverPt, 1e-12)

	back, err := store.SpacepointsForEvent(run.RunID, 3)
	require.NoError(t, err)
	assert.Equal(t, sps, back)
}

func TestPersistEventRejectsDuplicate(t *testing.T) {
	store := openTestStore(t)
	run, err := store.CreateRun(nil)
	require.NoError(t, err)

	sink := store.NewRunSink(run.RunID)
	require.NoError(t, sink.PersistEvent(1, &pipeline.Result{}))
	assert.Error(t, sink.PersistEvent(1, &pipeline.Result{}))

	// The failed transaction must not leak seed rows.
	seeds, err := store.SeedsForRun(run.RunID)
	require.NoError(t, err)
	assert.Empty(t, seeds)
}

func TestSinkSatisfiesPersistenceSink(t *testing.T) {
	var _ pipeline.PersistenceSink = (*RunSink)(nil)
}
