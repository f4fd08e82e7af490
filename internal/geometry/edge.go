package geometry

import "strings"

// Edge is one side of a tile image.
type Edge uint8

const (
	EdgeTop Edge = 1 << iota
	EdgeBottom
	EdgeLeft
	EdgeRight
)

// EdgeSet is a set of edges a box lies close to. A box may be near several at once.
type EdgeSet uint8

// Has reports whether e is in the set.
func (s EdgeSet) Has(e Edge) bool {
	return s&EdgeSet(e) != 0
}

// String lists the members, e.g. "top|left", or "none".
func (s EdgeSet) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	for _, e := range []struct {
		edge Edge
		name string
	}{{EdgeTop, "top"}, {EdgeBottom, "bottom"}, {EdgeLeft, "left"}, {EdgeRight, "right"}} {
		if s.Has(e.edge) {
			parts = append(parts, e.name)
		}
	}
	return strings.Join(parts, "|")
}

// EdgeClassifier decides which tile edges a box touches within a pixel tolerance.
type EdgeClassifier struct {
	width     float64
	height    float64
	tolerance float64
}

// NewEdgeClassifier returns a classifier for width x height tiles.
func NewEdgeClassifier(width, height, tolerance float64) EdgeClassifier {
	return EdgeClassifier{width: width, height: height, tolerance: tolerance}
}

func (c EdgeClassifier) Width() float64     { return c.width }
func (c EdgeClassifier) Height() float64    { return c.height }
func (c EdgeClassifier) Tolerance() float64 { return c.tolerance }

// NearEdges returns every edge b lies within tolerance of. Comparisons are inclusive.
func (c EdgeClassifier) NearEdges(b Box) EdgeSet {
	var s EdgeSet
	if b.Y0 <= c.tolerance {
		s |= EdgeSet(EdgeTop)
	}
	if b.Y1 >= c.height-c.tolerance {
		s |= EdgeSet(EdgeBottom)
	}
	if b.X0 <= c.tolerance {
		s |= EdgeSet(EdgeLeft)
	}
	if b.X1 >= c.width-c.tolerance {
		s |= EdgeSet(EdgeRight)
	}
	return s
}
