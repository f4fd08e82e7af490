// Package auditlog writes the merge log: every duplicate removed by a run, in
// decision order, with the run summary.
package auditlog

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Stennix/tilemerge/internal/errors"
	"github.com/Stennix/tilemerge/internal/merge"
)

// Format is a merge log encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// Formats lists the supported encodings.
var Formats = []Format{FormatJSON, FormatYAML, FormatCSV}

// ParseFormat accepts a format name case-insensitively; "yml" is an alias for yaml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", errors.Newf("unsupported merge log format %q", s).
		Component("auditlog").
		Category(errors.CategoryValidation).
		Context("format", s).
		Build()
}

// Record is one removal.
type Record struct {
	Seq               int     `json:"seq" yaml:"seq"`
	RemovedTile       int     `json:"removed_tile" yaml:"removed_tile"`
	RemovedIndex      int     `json:"removed_index" yaml:"removed_index"`
	KeptTile          int     `json:"kept_tile" yaml:"kept_tile"`
	KeptIndex         int     `json:"kept_index" yaml:"kept_index"`
	Label             string  `json:"label" yaml:"label"`
	WinningConfidence float64 `json:"winning_confidence" yaml:"winning_confidence"`
	Orientation       string  `json:"orientation" yaml:"orientation"`
	Direction         string  `json:"direction" yaml:"direction"`
}

// Summary mirrors merge.Summary with stable field names.
type Summary struct {
	TotalMerges      int            `json:"total_merges" yaml:"total_merges"`
	VerticalMerges   int            `json:"vertical_merges" yaml:"vertical_merges"`
	HorizontalMerges int            `json:"horizontal_merges" yaml:"horizontal_merges"`
	AffectedTiles    []int          `json:"affected_tiles" yaml:"affected_tiles"`
	MergesByLabel    map[string]int `json:"merges_by_label" yaml:"merges_by_label"`
	DetectionsLoaded int            `json:"detections_loaded" yaml:"detections_loaded"`
	DetectionsKept   int            `json:"detections_kept" yaml:"detections_kept"`
}

// Report is the full merge log of one run.
type Report struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Summary     Summary   `json:"summary" yaml:"summary"`
	Merges      []Record  `json:"merges" yaml:"merges"`
}

// NewReport converts a merge result. Records are numbered from one.
func NewReport(runID string, generatedAt time.Time, res *merge.Result) *Report {
	r := &Report{
		RunID:       runID,
		GeneratedAt: generatedAt.UTC(),
		Summary: Summary{
			TotalMerges:      res.Summary.TotalMerges,
			VerticalMerges:   res.Summary.VerticalMerges,
			HorizontalMerges: res.Summary.HorizontalMerges,
			AffectedTiles:    res.Summary.AffectedTiles,
			MergesByLabel:    res.Summary.MergesByLabel,
			DetectionsLoaded: res.Summary.DetectionsLoaded,
			DetectionsKept:   res.Summary.DetectionsKept,
		},
		Merges: make([]Record, 0, len(res.Events)),
	}
	if r.Summary.AffectedTiles == nil {
		r.Summary.AffectedTiles = []int{}
	}
	for i, ev := range res.Events {
		r.Merges = append(r.Merges, Record{
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
	return r
}

// csvHeader is the column order of the CSV encoding.
var csvHeader = []string{
	"run_id", "seq", "removed_tile", "removed_index", "kept_tile", "kept_index",
	"label", "winning_confidence", "orientation", "direction",
}

// Encode writes r to w. CSV carries one row per record and no summary. An
// empty format means JSON.
func Encode(w io.Writer, format Format, r *Report) error {
	format, err := ParseFormat(string(format))
	if err != nil {
		return err
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(r); err == nil {
			err = enc.Close()
		}
	case FormatCSV:
		err = encodeCSV(w, r)
	}
	if err != nil {
		return errors.New(err).
			Component("auditlog").
			Category(errors.CategoryProcessing).
			Context("format", string(format)).
			Build()
	}
	return nil
}

func encodeCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range r.Merges {
		row := []string{
			r.RunID,
			strconv.Itoa(rec.Seq),
			strconv.Itoa(rec.RemovedTile),
			strconv.Itoa(rec.RemovedIndex),
			strconv.Itoa(rec.KeptTile),
			strconv.Itoa(rec.KeptIndex),
			rec.Label,
			strconv.FormatFloat(rec.WinningConfidence, 'f', -1, 64),
			rec.Orientation,
			rec.Direction,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile encodes r into path, creating parent directories.
func WriteFile(path string, format Format, r *Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.FileError(err, path)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.FileError(err, path)
	}
	if err := Encode(f, format, r); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.FileError(err, path)
	}
	return nil
}
