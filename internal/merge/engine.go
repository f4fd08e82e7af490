// Package merge removes duplicate detections of objects that straddle the
// boundary between two neighbouring tiles.
//
// The pass is eager and single threaded: detections are visited in store
// order and every decision is applied before the next comparison, so later
// comparisons see earlier removals. A chain of three or more duplicates across
// consecutive tiles is resolved pairwise in that order rather than collapsed
// to a single survivor.
package merge

import (
	"io"
	"time"

	"github.com/Stennix/tilemerge/internal/detection"
	"github.com/Stennix/tilemerge/internal/errors"
	"github.com/Stennix/tilemerge/internal/geometry"
	"github.com/Stennix/tilemerge/internal/grid"
	"github.com/Stennix/tilemerge/internal/logger"
)

// DefaultOverlapThreshold is the minimum overlap fraction for two boxes to be duplicates.
const DefaultOverlapThreshold = 0.30

// Options tunes the duplicate test.
type Options struct {
	OverlapThreshold float64
}

// DefaultOptions returns the stock merge options.
func DefaultOptions() Options {
	return Options{OverlapThreshold: DefaultOverlapThreshold}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger receiving one debug record per merge decision.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine runs the duplicate removal pass over a detection store.
type Engine struct {
	topology *grid.Topology
	edges    geometry.EdgeClassifier
	opts     Options
	log      logger.Logger
}

// Result is the outcome of one pass. The store passed to Run holds the
// surviving detections.
type Result struct {
	Events   []Event
	Summary  Summary
	Duration time.Duration
}

// NewEngine returns an engine for the given mosaic layout and tile geometry.
func NewEngine(topology *grid.Topology, edges geometry.EdgeClassifier, opts Options, options ...Option) *Engine {
	e := &Engine{
		topology: topology,
		edges:    edges,
		opts:     opts,
		log:      logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// requiredEdges maps a neighbour direction to the edge the iterated detection
// must touch and the edge its counterpart must touch.
var requiredEdges = [4][2]geometry.Edge{
	grid.Top:    {geometry.EdgeTop, geometry.EdgeBottom},
	grid.Bottom: {geometry.EdgeBottom, geometry.EdgeTop},
	grid.Left:   {geometry.EdgeLeft, geometry.EdgeRight},
	grid.Right:  {geometry.EdgeRight, geometry.EdgeLeft},
}

// Run performs the pass. Every tile id in the store is checked against the
// grid before anything is removed; an unknown tile fails the run with a
// *grid.OutOfRangeError in the chain.
func (e *Engine) Run(store *detection.Store) (*Result, error) {
	start := time.Now()

	neighbors := make(map[int]grid.Neighbors, len(store.Tiles()))
	for _, tileID := range store.Tiles() {
		n, err := e.topology.Neighbors(tileID)
		if err != nil {
			return nil, errors.New(err).
				Component("merge").
				Category(errors.CategoryOutOfRange).
				Context("tile_id", tileID).
				Context("rows", e.topology.Rows()).
				Context("cols", e.topology.Cols()).
				Build()
		}
		neighbors[tileID] = n
	}

	var events []Event
	for _, d := range store.All() {
		if d.Removed() {
			continue
		}
		events = e.resolve(store, d, neighbors[d.Key.TileID], events)
	}

	result := &Result{
		Events:   events,
		Summary:  Summarize(events, store.Len(), store.KeptLen()),
		Duration: time.Since(start),
	}

	e.log.Info("merge pass completed",
		logger.Int("detections", result.Summary.DetectionsLoaded),
		logger.Int("kept", result.Summary.DetectionsKept),
		logger.Int("merges", result.Summary.TotalMerges),
		logger.Int("vertical", result.Summary.VerticalMerges),
		logger.Int("horizontal", result.Summary.HorizontalMerges),
		logger.Duration("elapsed", result.Duration))

	return result, nil
}

// resolve compares d against every detection on its neighbouring tiles and
// returns events extended with the decisions made. It stops as soon as d
// itself is removed.
func (e *Engine) resolve(store *detection.Store, d *detection.Detection, neighbors grid.Neighbors, events []Event) []Event {
	dEdges := e.edges.NearEdges(d.Box)

	for _, n := range neighbors {
		if !n.OK {
			continue
		}
		want := requiredEdges[n.Direction]
		if !dEdges.Has(want[0]) {
			continue
		}
		axis := geometry.AxisFor(n.Direction.Vertical())

		for _, o := range store.OnTile(n.TileID) {
			if o.Removed() || o.Label != d.Label {
				continue
			}
			if !e.edges.NearEdges(o.Box).Has(want[1]) {
				continue
			}
			overlap := geometry.OverlapFraction(d.Box, o.Box, axis)
			if overlap < e.opts.OverlapThreshold {
				continue
			}

			if d.Confidence >= o.Confidence {
				store.Remove(o.Key)
				events = append(events, e.record(o, d, n.Direction, overlap))
				continue
			}

			store.Remove(d.Key)
			return append(events, e.record(d, o, n.Direction, overlap))
		}
	}
	return events
}

func (e *Engine) record(removed, kept *detection.Detection, dir grid.Direction, overlap float64) Event {
	ev := Event{
		RemovedTile:       removed.Key.TileID,
		RemovedIndex:      removed.Key.Index,
		KeptTile:          kept.Key.TileID,
		KeptIndex:         kept.Key.Index,
		Label:             kept.Label,
		WinningConfidence: kept.Confidence,
		Direction:         dir,
	}

	e.log.Debug("duplicate removed",
		logger.String("label", ev.Label),
		logger.String("removed", removed.Key.String()),
		logger.String("kept", kept.Key.String()),
		logger.Float64("removed_confidence", removed.Confidence),
		logger.Float64("winning_confidence", ev.WinningConfidence),
		logger.Float64("overlap", overlap),
		logger.String("direction", dir.String()),
		logger.String("orientation", string(ev.Orientation())))

	return ev
}
