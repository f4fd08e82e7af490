package merge

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stennix/tilemerge/internal/detection"
	"github.com/Stennix/tilemerge/internal/geometry"
	"github.com/Stennix/tilemerge/internal/grid"
	"github.com/Stennix/tilemerge/internal/logger"
)

type layout struct {
	rows, cols    int
	width, height float64
	tolerance     float64
}

var small = layout{rows: 2, cols: 2, width: 100, height: 100, tolerance: 5}

func newEngine(t *testing.T, l layout, threshold float64, opts ...Option) *Engine {
	t.Helper()
	topo, err := grid.New(l.rows, l.cols)
	require.NoError(t, err)
	return NewEngine(topo, geometry.NewEdgeClassifier(l.width, l.height, l.tolerance), Options{OverlapThreshold: threshold}, opts...)
}

func add(s *detection.Store, tile int, box geometry.Box, label string, conf float64) *detection.Detection {
	return s.Add(tile, detection.Detection{Box: box, Label: label, Confidence: conf})
}

func TestDuplicateAcrossRightBoundary(t *testing.T) {
	t.Parallel()

	store := detection.NewStore()
	left := add(store, 1, geometry.Box{X0: 90, Y0: 10, X1: 99, Y1: 40}, "Pin", 0.6)
	right := add(store, 3, geometry.Box{X0: 1, Y0: 12, X1: 9, Y1: 42}, "Pin", 0.8)

	res, err := newEngine(t, small, 0.3).Run(store)
	require.NoError(t, err)

	require.Len(t, res.Events, 1)
	ev := res.Events[0]
	assert.Equal(t, 1, ev.RemovedTile)
	assert.Equal(t, 3, ev.KeptTile)
	assert.Equal(t, "Pin", ev.Label)
	assert.InDelta(t, 0.8, ev.WinningConfidence, 1e-12)
	assert.Equal(t, grid.Right, ev.Direction)
	assert.Equal(t, OrientationHorizontal, ev.Orientation())

	assert.True(t, left.Removed())
	assert.False(t, right.Removed())
	assert.Empty(t, store.Kept(1))
	assert.Equal(t, []*detection.Detection{right}, store.Kept(3))

	assert.Equal(t, 1, res.Summary.TotalMerges)
	assert.Equal(t, 1, res.Summary.HorizontalMerges)
	assert.Equal(t, []int{1, 3}, res.Summary.AffectedTiles)
	assert.Equal(t, map[string]int{"Pin": 1}, res.Summary.MergesByLabel)
	assert.Equal(t, 2, res.Summary.DetectionsLoaded)
	assert.Equal(t, 1, res.Summary.DetectionsKept)
}

func TestEqualConfidenceKeepsIteratedDetection(t *testing.T) {
	t.Parallel()

	store := detection.NewStore()
	first := add(store, 1, geometry.Box{X0: 90, Y0: 10, X1: 99, Y1: 40}, "Pin", 0.7)
	second := add(store, 3, geometry.Box{X0: 1, Y0: 12, X1: 9, Y1: 42}, "Pin", 0.7)

	res, err := newEngine(t, small, 0.3).Run(store)
	require.NoError(t, err)

	require.Len(t, res.Events, 1)
	assert.False(t, first.Removed())
	assert.True(t, second.Removed())
	assert.Equal(t, 3, res.Events[0].RemovedTile)
	assert.Equal(t, 1, res.Events[0].KeptTile)
}

func TestNegativeOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		a, b      geometry.Box
		labelB    string
		threshold float64
	}{
		{
			name:   "labels differ",
			a:      geometry.Box{X0: 90, Y0: 10, X1: 99, Y1: 40},
			b:      geometry.Box{X0: 1, Y0: 12, X1: 9, Y1: 42},
			labelB: "Cone",
		},
		{
			name:   "counterpart not near the shared edge",
			a:      geometry.Box{X0: 90, Y0: 10, X1: 99, Y1: 40},
			b:      geometry.Box{X0: 20, Y0: 12, X1: 30, Y1: 42},
			labelB: "Pin",
		},
		{
			name:   "iterated detection not near the shared edge",
			a:      geometry.Box{X0: 60, Y0: 10, X1: 80, Y1: 40},
			b:      geometry.Box{X0: 1, Y0: 12, X1: 9, Y1: 42},
			labelB: "Pin",
		},
		{
			name:      "overlap below threshold",
			a:         geometry.Box{X0: 90, Y0: 10, X1: 99, Y1: 40},
			b:         geometry.Box{X0: 1, Y0: 35, X1: 9, Y1: 65},
			labelB:    "Pin",
			threshold: 0.3,
		},
		{
			name:   "zero height box on a left-right boundary",
			a:      geometry.Box{X0: 90, Y0: 20, X1: 99, Y1: 20},
			b:      geometry.Box{X0: 1, Y0: 0, X1: 9, Y1: 40},
			labelB: "Pin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			threshold := tt.threshold
			if threshold == 0 {
				threshold = 0.3
			}

			store := detection.NewStore()
			add(store, 1, tt.a, "Pin", 0.2)
			add(store, 3, tt.b, tt.labelB, 0.9)

			res, err := newEngine(t, small, threshold).Run(store)
			require.NoError(t, err)
			assert.Empty(t, res.Events)
			assert.Equal(t, 2, store.KeptLen())
		})
	}
}

func TestLabelIsolationIgnoresGeometry(t *testing.T) {
	t.Parallel()

	// every box touches every edge and overlaps completely
	full := geometry.Box{X0: 0, Y0: 0, X1: 100, Y1: 100}
	store := detection.NewStore()
	add(store, 1, full, "Pin", 0.9)
	add(store, 2, full, "pin", 0.1)
	add(store, 3, full, "Pin ", 0.1)
	add(store, 4, full, "Cone", 0.1)

	res, err := newEngine(t, layout{rows: 2, cols: 2, width: 100, height: 100, tolerance: 100}, 0).Run(store)
	require.NoError(t, err)
	assert.Empty(t, res.Events)
}

func TestDegenerateBoxNeverMerges(t *testing.T) {
	t.Parallel()

	l := layout{rows: 3, cols: 3, width: 100, height: 100, tolerance: 60}
	full := geometry.Box{X0: 0, Y0: 0, X1: 100, Y1: 100}

	store := detection.NewStore()
	// tile 5 is the centre of the 3x3 mosaic; 4, 6, 2 and 8 surround it
	add(store, 5, geometry.Box{X0: 50, Y0: 50, X1: 50, Y1: 50}, "Pin", 0.1)
	for _, tile := range []int{4, 6, 2, 8} {
		add(store, tile, full, "Pin", 0.9)
	}

	res, err := newEngine(t, l, 0.01).Run(store)
	require.NoError(t, err)
	assert.Empty(t, res.Events)

	// zero width only matters across top and bottom boundaries
	store = detection.NewStore()
	add(store, 1, geometry.Box{X0: 50, Y0: 50, X1: 50, Y1: 80}, "Pin", 0.1)
	add(store, 2, full, "Pin", 0.9)

	res, err = newEngine(t, l, 0.01).Run(store)
	require.NoError(t, err)
	assert.Empty(t, res.Events)
}

func TestRemovedDetectionStopsComparing(t *testing.T) {
	t.Parallel()

	store := detection.NewStore()
	// tile 1 touches tile 2 below it and tile 3 to its right
	corner := add(store, 1, geometry.Box{X0: 90, Y0: 90, X1: 99, Y1: 99}, "Pin", 0.5)
	below := add(store, 2, geometry.Box{X0: 88, Y0: 1, X1: 99, Y1: 8}, "Pin", 0.9)
	right := add(store, 3, geometry.Box{X0: 1, Y0: 88, X1: 8, Y1: 99}, "Pin", 0.1)

	res, err := newEngine(t, small, 0.3).Run(store)
	require.NoError(t, err)

	require.Len(t, res.Events, 1)
	assert.Equal(t, Event{
		RemovedTile: 1, RemovedIndex: 0,
		KeptTile: 2, KeptIndex: 0,
		Label: "Pin", WinningConfidence: 0.9,
		Direction: grid.Bottom,
	}, res.Events[0])
	assert.Equal(t, OrientationVertical, res.Events[0].Orientation())

	assert.True(t, corner.Removed())
	assert.False(t, below.Removed())
	assert.False(t, right.Removed(), "the lower scoring right neighbour is never compared")
}

func TestWinnerKeepsComparing(t *testing.T) {
	t.Parallel()

	store := detection.NewStore()
	corner := add(store, 1, geometry.Box{X0: 90, Y0: 90, X1: 99, Y1: 99}, "Pin", 0.95)
	below := add(store, 2, geometry.Box{X0: 88, Y0: 1, X1: 99, Y1: 8}, "Pin", 0.9)
	right := add(store, 3, geometry.Box{X0: 1, Y0: 88, X1: 8, Y1: 99}, "Pin", 0.1)

	res, err := newEngine(t, small, 0.3).Run(store)
	require.NoError(t, err)

	require.Len(t, res.Events, 2)
	assert.Equal(t, grid.Bottom, res.Events[0].Direction)
	assert.Equal(t, grid.Right, res.Events[1].Direction)
	assert.False(t, corner.Removed())
	assert.True(t, below.Removed())
	assert.True(t, right.Removed())
	assert.Equal(t, []int{1, 2, 3}, res.Summary.AffectedTiles)
}

// A chain of three duplicates is resolved pair by pair in store order, not
// as one cluster: when the middle detection loses first, both ends survive.
func TestChainOfThreeIsResolvedPairwise(t *testing.T) {
	t.Parallel()

	l := layout{rows: 3, cols: 1, width: 100, height: 100, tolerance: 5}

	store := detection.NewStore()
	top := add(store, 1, geometry.Box{X0: 10, Y0: 60, X1: 20, Y1: 100}, "Pin", 0.8)
	middle := add(store, 2, geometry.Box{X0: 10, Y0: 0, X1: 20, Y1: 100}, "Pin", 0.5)
	bottom := add(store, 3, geometry.Box{X0: 10, Y0: 0, X1: 20, Y1: 40}, "Pin", 0.7)

	res, err := newEngine(t, l, 0.3).Run(store)
	require.NoError(t, err)

	require.Len(t, res.Events, 1)
	assert.Equal(t, 2, res.Events[0].RemovedTile)
	assert.Equal(t, 1, res.Events[0].KeptTile)
	assert.False(t, top.Removed())
	assert.True(t, middle.Removed())
	assert.False(t, bottom.Removed())

	// with the strongest detection in the middle the chain collapses to one
	store = detection.NewStore()
	add(store, 1, top.Box, "Pin", 0.5)
	mid := add(store, 2, middle.Box, "Pin", 0.9)
	add(store, 3, bottom.Box, "Pin", 0.7)

	res, err = newEngine(t, l, 0.3).Run(store)
	require.NoError(t, err)
	assert.Len(t, res.Events, 2)
	assert.Equal(t, []*detection.Detection{mid}, store.Kept(2))
	assert.Equal(t, 1, store.KeptLen())
}

func TestTileOutsideGridFailsBeforeMutation(t *testing.T) {
	t.Parallel()

	store := detection.NewStore()
	add(store, 1, geometry.Box{X0: 90, Y0: 10, X1: 99, Y1: 40}, "Pin", 0.6)
	add(store, 3, geometry.Box{X0: 1, Y0: 12, X1: 9, Y1: 42}, "Pin", 0.8)
	add(store, 5, geometry.Box{X0: 1, Y0: 12, X1: 9, Y1: 42}, "Pin", 0.8)

	res, err := newEngine(t, small, 0.3).Run(store)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, grid.ErrOutOfRange)

	var oor *grid.OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, 5, oor.Value)
	assert.Equal(t, 3, store.KeptLen())
}

// isolatedPairs places one duplicate pair across every shared boundary of the
// mosaic. Boxes are 30px long and offset by a growing amount so the overlap
// fractions spread between 0 and 1, and no box is near more than one edge.
func isolatedPairs(t *testing.T, l layout) *detection.Store {
	t.Helper()
	topo, err := grid.New(l.rows, l.cols)
	require.NoError(t, err)

	store := detection.NewStore()
	pair := 0
	for id := 1; id <= topo.Len(); id++ {
		n, err := topo.Neighbors(id)
		require.NoError(t, err)

		if n[grid.Right].OK {
			off := float64(pair%11) * 3
			add(store, id, geometry.Box{X0: l.width - 8, Y0: 35, X1: l.width - 1, Y1: 65}, "Pin", 0.4)
			add(store, n[grid.Right].TileID, geometry.Box{X0: 1, Y0: 35 + off, X1: 8, Y1: 65 + off}, "Pin", 0.6)
			pair++
		}
		if n[grid.Bottom].OK {
			off := float64(pair%11) * 3
			add(store, id, geometry.Box{X0: 60, Y0: l.height - 8, X1: 90, Y1: l.height - 1}, "Cone", 0.9)
			add(store, n[grid.Bottom].TileID, geometry.Box{X0: 60 + off, Y0: 1, X1: 90 + off, Y1: 8}, "Cone", 0.3)
			pair++
		}
	}
	return store
}

func TestThresholdMonotonicity(t *testing.T) {
	t.Parallel()

	l := layout{rows: 4, cols: 3, width: 200, height: 100, tolerance: 10}

	counts := map[float64]int{}
	for _, threshold := range []float64{0, 0.3, 0.6, 0.9, 1} {
		res, err := newEngine(t, l, threshold).Run(isolatedPairs(t, l))
		require.NoError(t, err)
		counts[threshold] = res.Summary.TotalMerges
	}

	assert.GreaterOrEqual(t, counts[0], counts[0.3])
	assert.GreaterOrEqual(t, counts[0.3], counts[0.6])
	assert.GreaterOrEqual(t, counts[0.6], counts[0.9])
	assert.GreaterOrEqual(t, counts[0.9], counts[1])
	assert.Greater(t, counts[0.3], counts[0.9], "fixture should have pairs between the two thresholds")
}

func TestSecondPassFindsNothing(t *testing.T) {
	t.Parallel()

	l := layout{rows: 4, cols: 3, width: 200, height: 100, tolerance: 10}
	engine := newEngine(t, l, 0.3)
	store := isolatedPairs(t, l)

	first, err := engine.Run(store)
	require.NoError(t, err)
	require.NotEmpty(t, first.Events)

	again, err := engine.Run(store)
	require.NoError(t, err)
	assert.Empty(t, again.Events)

	// rebuilding a store from the survivors behaves the same
	filtered := detection.NewStore()
	for _, tile := range store.Tiles() {
		for _, d := range store.Kept(tile) {
			filtered.Add(tile, *d)
		}
	}
	rerun, err := engine.Run(filtered)
	require.NoError(t, err)
	assert.Empty(t, rerun.Events)
	assert.Equal(t, store.KeptLen(), filtered.Len())
}

func TestDecisionsAreLogged(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelDebug, time.UTC)

	store := detection.NewStore()
	add(store, 1, geometry.Box{X0: 90, Y0: 10, X1: 99, Y1: 40}, "Pin", 0.6)
	add(store, 3, geometry.Box{X0: 1, Y0: 12, X1: 9, Y1: 42}, "Pin", 0.8)

	_, err := newEngine(t, small, 0.3, WithLogger(log)).Run(store)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `msg="duplicate removed"`)
	assert.Contains(t, out, "removed=1#0")
	assert.Contains(t, out, "kept=3#0")
	assert.Contains(t, out, "direction=right")
	assert.Contains(t, out, `msg="merge pass completed"`)
}
