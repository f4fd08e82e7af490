// Package detection holds the per-tile detections of a mosaic and tracks which
// of them survive duplicate removal.
package detection

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Stennix/tilemerge/internal/geometry"
)

// Status is the merge state of a detection.
type Status uint8

const (
	StatusKept Status = iota
	StatusRemoved
)

func (s Status) String() string {
	if s == StatusRemoved {
		return "removed"
	}
	return "kept"
}

// Key identifies a detection by tile and its position within the tile's document.
type Key struct {
	TileID int
	Index  int
}

func (k Key) String() string {
	return fmt.Sprintf("%d#%d", k.TileID, k.Index)
}

// Detection is one labelled box reported on one tile.
type Detection struct {
	Key        Key
	Box        geometry.Box
	Label      string
	Confidence float64
	Status     Status
	// Raw is the shape exactly as read; writers emit it unchanged.
	Raw json.RawMessage
}

// Removed reports whether the detection was discarded as a duplicate.
func (d *Detection) Removed() bool {
	return d.Status == StatusRemoved
}

// Store keeps detections in insertion order and indexes them by tile.
// It is not safe for concurrent mutation.
type Store struct {
	all    []*Detection
	byTile map[int][]*Detection
	kept   int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byTile: make(map[int][]*Detection)}
}

// Add appends d to tileID, assigning its Key and marking it kept.
func (s *Store) Add(tileID int, d Detection) *Detection {
	d.Key = Key{TileID: tileID, Index: len(s.byTile[tileID])}
	d.Status = StatusKept
	p := &d
	s.all = append(s.all, p)
	s.byTile[tileID] = append(s.byTile[tileID], p)
	s.kept++
	return p
}

// All returns every detection in insertion order. The slice must not be modified.
func (s *Store) All() []*Detection {
	return s.all
}

// OnTile returns the detections of tileID in the order they were added.
func (s *Store) OnTile(tileID int) []*Detection {
	return s.byTile[tileID]
}

// Tiles returns the ids of tiles holding at least one detection, ascending.
func (s *Store) Tiles() []int {
	ids := make([]int, 0, len(s.byTile))
	for id := range s.byTile {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Get looks a detection up by key.
func (s *Store) Get(k Key) (*Detection, bool) {
	dets := s.byTile[k.TileID]
	if k.Index < 0 || k.Index >= len(dets) {
		return nil, false
	}
	return dets[k.Index], true
}

// Remove marks the detection as removed. It returns false when the key is
// unknown or the detection was already removed; removal is never undone.
func (s *Store) Remove(k Key) bool {
	d, ok := s.Get(k)
	if !ok || d.Removed() {
		return false
	}
	d.Status = StatusRemoved
	s.kept--
	return true
}

// Kept returns the surviving detections of tileID in their original order.
func (s *Store) Kept(tileID int) []*Detection {
	var out []*Detection
	for _, d := range s.byTile[tileID] {
		if !d.Removed() {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of detections ever added.
func (s *Store) Len() int { return len(s.all) }

// KeptLen returns the number of detections not removed.
func (s *Store) KeptLen() int { return s.kept }
