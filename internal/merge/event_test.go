package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrientation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		removed, kept int
		want          Orientation
	}{
		{removed: 1, kept: 2, want: OrientationVertical},
		{removed: 2, kept: 1, want: OrientationVertical},
		{removed: 4, kept: 4, want: OrientationVertical},
		{removed: 1, kept: 3, want: OrientationHorizontal},
		{removed: 50, kept: 1, want: OrientationHorizontal},
	}
	for _, tt := range tests {
		ev := Event{RemovedTile: tt.removed, KeptTile: tt.kept}
		assert.Equal(t, tt.want, ev.Orientation(), "removed %d kept %d", tt.removed, tt.kept)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	events := []Event{
		{RemovedTile: 7, KeptTile: 8, Label: "Pin"},
		{RemovedTile: 2, KeptTile: 51, Label: "Cone"},
		{RemovedTile: 8, KeptTile: 57, Label: "Pin"},
	}

	s := Summarize(events, 10, 7)
	assert.Equal(t, 3, s.TotalMerges)
	assert.Equal(t, 1, s.VerticalMerges)
	assert.Equal(t, 2, s.HorizontalMerges)
	assert.Equal(t, []int{2, 7, 8, 51, 57}, s.AffectedTiles)
	assert.Equal(t, map[string]int{"Pin": 2, "Cone": 1}, s.MergesByLabel)
	assert.Equal(t, []string{"Cone", "Pin"}, s.Labels())
	assert.Equal(t, 10, s.DetectionsLoaded)
	assert.Equal(t, 7, s.DetectionsKept)

	empty := Summarize(nil, 3, 3)
	assert.Zero(t, empty.TotalMerges)
	assert.Empty(t, empty.AffectedTiles)
	assert.Empty(t, empty.Labels())
}
