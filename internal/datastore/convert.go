package datastore

import "github.com/Stennix/tilemerge/internal/merge"

// EventsFromMerge converts merge events in decision order.
func EventsFromMerge(runID string, events []merge.Event) []MergeEvent {
	out := make([]MergeEvent, 0, len(events))
	for i, ev := range events {
		out = append(out, MergeEvent{
			RunID:             runID,
			Seq:               i + 1,
			RemovedTile:       ev.RemovedTile,
			RemovedIndex:      ev.RemovedIndex,
			KeptTile:          ev.KeptTile,
			KeptIndex:         ev.KeptIndex,
			Label:             ev.Label,
			WinningConfidence: ev.WinningConfidence,
			Orientation:       string(ev.Orientation()),
			Direction:         ev.Direction.String(),
		})
	}
	return out
}

// ApplySummary copies the merge counters onto run.
func (r *Run) ApplySummary(s merge.Summary) {
	r.Detections = s.DetectionsLoaded
	r.Kept = s.DetectionsKept
	r.Merges = s.TotalMerges
	r.Vertical = s.VerticalMerges
	r.Horizontal = s.HorizontalMerges
}
