// Package grid maps tile ids of a column-major mosaic to grid positions and
// finds each tile's four neighbours.
//
// Tiles are numbered from 1 and run down each column before moving to the
// next one: with R rows, tile id t sits at row (t-1) mod R, column (t-1) div R.
package grid

import (
	"fmt"

	"github.com/Stennix/tilemerge/internal/errors"
)

// Position is a zero-based grid coordinate.
type Position struct {
	Row int
	Col int
}

// String formats the position as "row,col".
func (p Position) String() string {
	return fmt.Sprintf("%d,%d", p.Row, p.Col)
}

// Direction names one side of a tile.
type Direction int

const (
	Top Direction = iota
	Bottom
	Left
	Right
)

// Directions lists the four sides in the order neighbours are examined.
var Directions = [4]Direction{Top, Bottom, Left, Right}

func (d Direction) String() string {
	switch d {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Opposite returns the side facing d across a shared boundary.
func (d Direction) Opposite() Direction {
	switch d {
	case Top:
		return Bottom
	case Bottom:
		return Top
	case Left:
		return Right
	default:
		return Left
	}
}

// Vertical reports whether d crosses a horizontal boundary (top or bottom).
func (d Direction) Vertical() bool {
	return d == Top || d == Bottom
}

// Neighbor is the tile on one side, or OK=false at the edge of the grid.
type Neighbor struct {
	Direction Direction
	TileID    int
	OK        bool
}

// Neighbors holds the top, bottom, left and right neighbour in that order.
type Neighbors [4]Neighbor

// Topology describes a rows x cols column-major mosaic.
type Topology struct {
	rows int
	cols int
}

// New returns the topology of a rows x cols mosaic.
func New(rows, cols int) (*Topology, error) {
	if rows <= 0 || cols <= 0 {
		return nil, errors.Newf("invalid grid dimensions %dx%d: rows and cols must be positive", rows, cols).
			Component("grid").
			Category(errors.CategoryValidation).
			Context("rows", rows).
			Context("cols", cols).
			Build()
	}
	return &Topology{rows: rows, cols: cols}, nil
}

func (t *Topology) Rows() int { return t.rows }
func (t *Topology) Cols() int { return t.cols }

// Len returns the number of tiles.
func (t *Topology) Len() int { return t.rows * t.cols }

// Contains reports whether tileID names a tile of the mosaic.
func (t *Topology) Contains(tileID int) bool {
	return tileID >= 1 && tileID <= t.Len()
}

// PositionOf returns the grid position of tileID.
func (t *Topology) PositionOf(tileID int) (Position, error) {
	if !t.Contains(tileID) {
		return Position{}, &OutOfRangeError{What: "tile id", Value: tileID, Min: 1, Max: t.Len()}
	}
	idx := tileID - 1
	return Position{Row: idx % t.rows, Col: idx / t.rows}, nil
}

// TileAt returns the id of the tile at row, col.
func (t *Topology) TileAt(row, col int) (int, error) {
	if row < 0 || row >= t.rows {
		return 0, &OutOfRangeError{What: "row", Value: row, Min: 0, Max: t.rows - 1}
	}
	if col < 0 || col >= t.cols {
		return 0, &OutOfRangeError{What: "column", Value: col, Min: 0, Max: t.cols - 1}
	}
	return col*t.rows + row + 1, nil
}

// Neighbors returns the four neighbours of tileID.
func (t *Topology) Neighbors(tileID int) (Neighbors, error) {
	pos, err := t.PositionOf(tileID)
	if err != nil {
		return Neighbors{}, err
	}

	var n Neighbors
	for i, dir := range Directions {
		row, col := pos.Row, pos.Col
		switch dir {
		case Top:
			row--
		case Bottom:
			row++
		case Left:
			col--
		case Right:
			col++
		}
		n[i] = Neighbor{Direction: dir}
		if id, err := t.TileAt(row, col); err == nil {
			n[i].TileID = id
			n[i].OK = true
		}
	}
	return n, nil
}
