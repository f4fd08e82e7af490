// Package labelme reads and writes per-tile LabelMe annotation documents.
//
// A document is a JSON object whose "shapes" array holds one entry per
// detection. Only the fields the merge needs are interpreted; every other
// top-level key, its order, and each shape's own bytes are carried through to
// the output unchanged.
package labelme

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Stennix/tilemerge/internal/detection"
	"github.com/Stennix/tilemerge/internal/errors"
	"github.com/Stennix/tilemerge/internal/geometry"
)

// ShapesKey is the top-level key holding the detections.
const ShapesKey = "shapes"

// tileSuffix matches the trailing _<digits> of a file stem.
var tileSuffix = regexp.MustCompile(`_(\d+)$`)

// member is one top-level key of a document, in file order.
type member struct {
	key   string
	value json.RawMessage
}

// Shape is a decoded detection together with its original bytes.
type Shape struct {
	Box        geometry.Box
	Label      string
	Confidence float64
	Raw        json.RawMessage
}

// Document is a parsed tile document.
type Document struct {
	// Name is the base file name, reused for the output file.
	Name   string
	Path   string
	TileID int
	Shapes []Shape

	members []member
}

// shapeFields are the fields a shape must carry. Pointers tell absent from zero.
type shapeFields struct {
	Label      *string     `json:"label"`
	Points     [][]float64 `json:"points"`
	Confidence *float64    `json:"confidence"`
}

// TileIDFromName extracts the tile id from a file name such as "stack_17.json".
func TileIDFromName(name string) (int, error) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	m := tileSuffix.FindStringSubmatch(stem)
	if m == nil {
		return 0, errors.Newf("file name %q has no _<number> tile suffix", filepath.Base(name)).
			Component("labelme").
			Category(errors.CategoryFileParsing).
			FileContext(name).
			Build()
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, errors.New(err).
			Component("labelme").
			Category(errors.CategoryFileParsing).
			FileContext(name).
			Build()
	}
	return id, nil
}

// Decode parses a document for tileID. path is used for error context and Name.
func Decode(r io.Reader, path string, tileID int) (*Document, error) {
	doc := &Document{Name: filepath.Base(path), Path: path, TileID: tileID}

	parseErr := func(err error) error {
		return errors.New(err).
			Component("labelme").
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Context("tile_id", tileID).
			Build()
	}

	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, parseErr(err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, parseErr(errors.NewStd("document is not a JSON object"))
	}

	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, parseErr(err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, parseErr(errors.NewStd("expected object key"))
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, parseErr(err)
		}
		if seen[key] {
			// the last occurrence wins, as with any JSON object decode
			for i := range doc.members {
				if doc.members[i].key == key {
					doc.members[i].value = value
				}
			}
			continue
		}
		seen[key] = true
		doc.members = append(doc.members, member{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, parseErr(err)
	}

	for _, m := range doc.members {
		if m.key != ShapesKey {
			continue
		}
		shapes, err := decodeShapes(m.value)
		if err != nil {
			return nil, errors.New(err).
				Component("labelme").
				Category(errors.CategoryFileParsing).
				FileContext(path).
				Context("tile_id", tileID).
				Build()
		}
		doc.Shapes = shapes
	}

	return doc, nil
}

func decodeShapes(raw json.RawMessage) ([]Shape, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Newf("shapes: %w", err).Build()
	}

	shapes := make([]Shape, 0, len(items))
	for i, item := range items {
		s, err := decodeShape(item)
		if err != nil {
			return nil, errors.Newf("shape %d: %w", i, err).
				Context("shape_index", i).
				Build()
		}
		shapes = append(shapes, s)
	}
	return shapes, nil
}

func decodeShape(raw json.RawMessage) (Shape, error) {
	var f shapeFields
	if err := json.Unmarshal(raw, &f); err != nil {
		return Shape{}, err
	}
	if f.Label == nil || *f.Label == "" {
		return Shape{}, errors.NewStd("missing label")
	}
	if len(f.Points) < 2 || len(f.Points[0]) < 2 || len(f.Points[1]) < 2 {
		return Shape{}, errors.NewStd("points must hold two [x, y] pairs")
	}

	s := Shape{
		Box: geometry.Box{
			X0: f.Points[0][0], Y0: f.Points[0][1],
			X1: f.Points[1][0], Y1: f.Points[1][1],
		},
		Label: *f.Label,
		Raw:   raw,
	}
	if f.Confidence != nil {
		s.Confidence = *f.Confidence
	}
	return s, nil
}

// AddTo appends the document's shapes to store under its tile id, in order.
func (d *Document) AddTo(store *detection.Store) {
	for _, s := range d.Shapes {
		store.Add(d.TileID, detection.Detection{
			Box:        s.Box,
			Label:      s.Label,
			Confidence: s.Confidence,
			Raw:        s.Raw,
		})
	}
}

// Encode renders the document with shapes replaced by kept, indented with two
// spaces. A document that had no shapes key gets one only when kept is non-empty.
func (d *Document) Encode(kept []json.RawMessage) ([]byte, error) {
	shapes, err := encodeShapes(kept)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	wroteShapes := false
	for i, m := range d.members {
		if i > 0 {
			buf.WriteByte(',')
		}
		value := m.value
		if m.key == ShapesKey {
			value = shapes
			wroteShapes = true
		}
		writeMember(&buf, m.key, value)
	}
	if !wroteShapes && len(kept) > 0 {
		if len(d.members) > 0 {
			buf.WriteByte(',')
		}
		writeMember(&buf, ShapesKey, shapes)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, errors.New(err).
			Component("labelme").
			Category(errors.CategoryProcessing).
			Context("tile_id", d.TileID).
			Build()
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func encodeShapes(kept []json.RawMessage) (json.RawMessage, error) {
	if kept == nil {
		kept = []json.RawMessage{}
	}
	return json.Marshal(kept)
}

func writeMember(buf *bytes.Buffer, key string, value json.RawMessage) {
	k, _ := json.Marshal(key)
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(value)
}

// KeptShapes returns the raw bytes of the surviving detections of a tile.
func KeptShapes(store *detection.Store, tileID int) []json.RawMessage {
	kept := store.Kept(tileID)
	out := make([]json.RawMessage, 0, len(kept))
	for _, d := range kept {
		out = append(out, d.Raw)
	}
	return out
}
