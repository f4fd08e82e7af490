package merge

import (
	"maps"
	"slices"

	"github.com/Stennix/tilemerge/internal/grid"
)

// Orientation classifies a merge for reporting only; it never influences decisions.
type Orientation string

const (
	OrientationVertical   Orientation = "vertical"
	OrientationHorizontal Orientation = "horizontal"
)

// Event records one duplicate removal, in the order decisions were made.
type Event struct {
	RemovedTile  int
	RemovedIndex int
	KeptTile     int
	KeptIndex    int
	Label        string
	// WinningConfidence is the confidence of the surviving detection.
	WinningConfidence float64
	// Direction is the side of the iterated detection's tile the other tile lies on.
	Direction grid.Direction
}

// Orientation derives the reporting class from tile ids alone: ids one apart
// (or equal) are treated as neighbours in one column, anything else as
// neighbours in one row. In a single-row grid horizontal neighbours are one
// apart and come out as vertical.
func (e Event) Orientation() Orientation {
	diff := e.RemovedTile - e.KeptTile
	if diff >= -1 && diff <= 1 {
		return OrientationVertical
	}
	return OrientationHorizontal
}

// Summary aggregates a merge pass.
type Summary struct {
	TotalMerges      int
	VerticalMerges   int
	HorizontalMerges int
	// AffectedTiles lists every tile that lost or kept a merged detection, ascending.
	AffectedTiles    []int
	MergesByLabel    map[string]int
	DetectionsLoaded int
	DetectionsKept   int
}

// Summarize builds the summary of events over a pass that started with loaded
// detections and finished with kept.
func Summarize(events []Event, loaded, kept int) Summary {
	s := Summary{
		TotalMerges:      len(events),
		MergesByLabel:    make(map[string]int),
		DetectionsLoaded: loaded,
		DetectionsKept:   kept,
	}

	affected := make(map[int]struct{})
	for _, e := range events {
		if e.Orientation() == OrientationVertical {
			s.VerticalMerges++
		} else {
			s.HorizontalMerges++
		}
		s.MergesByLabel[e.Label]++
		affected[e.RemovedTile] = struct{}{}
		affected[e.KeptTile] = struct{}{}
	}
	s.AffectedTiles = slices.Sorted(maps.Keys(affected))

	return s
}

// Labels returns the labels that had merges, sorted.
func (s Summary) Labels() []string {
	return slices.Sorted(maps.Keys(s.MergesByLabel))
}
