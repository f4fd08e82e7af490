// Package geometry holds the box arithmetic used to decide whether two
// detections on neighbouring tiles are the same object.
package geometry

import "math"

// Box is an axis-aligned rectangle in tile-local pixel coordinates.
// X0,Y0 is nominally the top-left and X1,Y1 the bottom-right corner; the
// ordering is not enforced and inverted boxes simply never overlap.
type Box struct {
	X0, Y0, X1, Y1 float64
}

// Width returns X1-X0, which is negative for an inverted box.
func (b Box) Width() float64 { return b.X1 - b.X0 }

// Height returns Y1-Y0, which is negative for an inverted box.
func (b Box) Height() float64 { return b.Y1 - b.Y0 }

// Axis selects the coordinate compared across a shared tile boundary.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

func (a Axis) String() string {
	if a == AxisY {
		return "y"
	}
	return "x"
}

// AxisFor returns the axis that runs along a boundary: X for top/bottom
// neighbours (a horizontal boundary), Y for left/right neighbours.
func AxisFor(vertical bool) Axis {
	if vertical {
		return AxisX
	}
	return AxisY
}

// Overlap1D returns the length shared by the intervals [a0,a1] and [b0,b1], never negative.
func Overlap1D(a0, a1, b0, b1 float64) float64 {
	return math.Max(0, math.Min(a1, b1)-math.Max(a0, b0))
}

// OverlapFraction returns the overlap of a and b along axis divided by the
// shorter of their two extents on that axis, so a small box fully covered by
// a large one scores 1. A zero or negative denominator yields 0.
func OverlapFraction(a, b Box, axis Axis) float64 {
	var a0, a1, b0, b1 float64
	if axis == AxisY {
		a0, a1, b0, b1 = a.Y0, a.Y1, b.Y0, b.Y1
	} else {
		a0, a1, b0, b1 = a.X0, a.X1, b.X0, b.X1
	}

	denom := math.Min(a1-a0, b1-b0)
	if denom <= 0 {
		return 0
	}
	return Overlap1D(a0, a1, b0, b1) / denom
}
