package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlap1D(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		a0, a1, b0, b1 float64
		want           float64
	}{
		{"partial", 0, 10, 5, 15, 5},
		{"contained", 0, 10, 2, 4, 2},
		{"touching", 0, 10, 10, 20, 0},
		{"disjoint", 0, 10, 20, 30, 0},
		{"inverted", 10, 0, 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Overlap1D(tt.a0, tt.a1, tt.b0, tt.b1), 1e-12)
			assert.InDelta(t, tt.want, Overlap1D(tt.b0, tt.b1, tt.a0, tt.a1), 1e-12, "symmetric")
		})
	}
}

func TestOverlapFraction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b Box
		axis Axis
		want float64
	}{
		{
			name: "y overlap uses the shorter extent",
			a:    Box{90, 10, 99, 40},
			b:    Box{1, 12, 9, 42},
			axis: AxisY,
			want: 28.0 / 30.0,
		},
		{
			name: "small box inside large box",
			a:    Box{0, 0, 100, 10},
			b:    Box{40, 0, 60, 10},
			axis: AxisX,
			want: 1,
		},
		{
			name: "no overlap",
			a:    Box{0, 0, 10, 10},
			b:    Box{20, 0, 30, 10},
			axis: AxisX,
			want: 0,
		},
		{
			name: "zero width box",
			a:    Box{50, 50, 50, 80},
			b:    Box{40, 0, 60, 10},
			axis: AxisX,
			want: 0,
		},
		{
			name: "inverted box",
			a:    Box{60, 0, 40, 10},
			b:    Box{40, 0, 60, 10},
			axis: AxisX,
			want: 0,
		},
		{
			name: "axis selects coordinates",
			a:    Box{0, 0, 10, 100},
			b:    Box{5, 50, 15, 150},
			axis: AxisY,
			want: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := OverlapFraction(tt.a, tt.b, tt.axis)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestAxisFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, AxisX, AxisFor(true))
	assert.Equal(t, AxisY, AxisFor(false))
	assert.Equal(t, "y", AxisY.String())
}

func TestNearEdges(t *testing.T) {
	t.Parallel()

	c := NewEdgeClassifier(100, 100, 5)

	tests := []struct {
		name string
		box  Box
		want EdgeSet
	}{
		{"centre", Box{40, 40, 60, 60}, 0},
		{"right edge", Box{90, 10, 99, 40}, EdgeSet(EdgeRight)},
		{"left edge", Box{1, 12, 9, 42}, EdgeSet(EdgeLeft)},
		{"tolerance is inclusive", Box{5, 40, 95, 60}, EdgeSet(EdgeLeft | EdgeRight)},
		{"just outside tolerance", Box{5.01, 40, 94.99, 60}, 0},
		{"top-left corner", Box{0, 0, 10, 10}, EdgeSet(EdgeTop | EdgeLeft)},
		{"spans the tile", Box{0, 0, 100, 100}, EdgeSet(EdgeTop | EdgeBottom | EdgeLeft | EdgeRight)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, c.NearEdges(tt.box), c.NearEdges(tt.box).String())
		})
	}
}

func TestEdgeSetString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "none", EdgeSet(0).String())
	assert.Equal(t, "top|right", EdgeSet(EdgeTop|EdgeRight).String())
	assert.True(t, EdgeSet(EdgeBottom).Has(EdgeBottom))
	assert.False(t, EdgeSet(EdgeBottom).Has(EdgeTop))
}
