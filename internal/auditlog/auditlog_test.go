package auditlog

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Stennix/tilemerge/internal/errors"
	"github.com/Stennix/tilemerge/internal/grid"
	"github.com/Stennix/tilemerge/internal/merge"
)

const runID = "2f1c6c1e-7a55-4f5e-9f4e-1d6b1c1d0a01"

func sampleResult() *merge.Result {
	events := []merge.Event{
		{RemovedTile: 1, RemovedIndex: 0, KeptTile: 50, KeptIndex: 2, Label: "Pin", WinningConfidence: 0.8, Direction: grid.Right},
		{RemovedTile: 8, RemovedIndex: 1, KeptTile: 7, KeptIndex: 0, Label: "Cone, large", WinningConfidence: 0.55, Direction: grid.Top},
	}
	return &merge.Result{Events: events, Summary: merge.Summarize(events, 12, 10)}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := map[string]Format{"": FormatJSON, "JSON": FormatJSON, "yml": FormatYAML, " yaml ": FormatYAML, "csv": FormatCSV}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("xml")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestNewReport(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	r := NewReport(runID, at, sampleResult())

	assert.Equal(t, runID, r.RunID)
	assert.Equal(t, time.UTC, r.GeneratedAt.Location())
	assert.True(t, at.Equal(r.GeneratedAt))
	require.Len(t, r.Merges, 2)
	assert.Equal(t, Record{
		Seq: 1, RemovedTile: 1, RemovedIndex: 0, KeptTile: 50, KeptIndex: 2,
		Label: "Pin", WinningConfidence: 0.8, Orientation: "horizontal", Direction: "right",
	}, r.Merges[0])
	assert.Equal(t, "vertical", r.Merges[1].Orientation)
	assert.Equal(t, 2, r.Merges[1].Seq)
	assert.Equal(t, []int{1, 7, 8, 50}, r.Summary.AffectedTiles)

	empty := NewReport(runID, at, &merge.Result{Summary: merge.Summarize(nil, 0, 0)})
	assert.NotNil(t, empty.Summary.AffectedTiles)
	assert.NotNil(t, empty.Merges)
}

func TestEncodeJSON(t *testing.T) {
	t.Parallel()

	r := NewReport(runID, time.Unix(0, 0), sampleResult())
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, r))

	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, r.Merges, decoded.Merges)
	assert.Equal(t, r.Summary, decoded.Summary)
	assert.Contains(t, buf.String(), "\n  \"run_id\": ")
}

func TestEncodeYAML(t *testing.T) {
	t.Parallel()

	r := NewReport(runID, time.Unix(0, 0), sampleResult())
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatYAML, r))

	var decoded Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, r.RunID, decoded.RunID)
	assert.Equal(t, r.Merges, decoded.Merges)
	assert.Equal(t, map[string]int{"Pin": 1, "Cone, large": 1}, decoded.Summary.MergesByLabel)
}

func TestEncodeCSV(t *testing.T) {
	t.Parallel()

	r := NewReport(runID, time.Unix(0, 0), sampleResult())
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatCSV, r))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{runID, "1", "1", "0", "50", "2", "Pin", "0.8", "horizontal", "right"}, rows[1])
	assert.Equal(t, "Cone, large", rows[2][6])
	assert.Equal(t, "0.55", rows[2][7])
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "merge_log.csv")
	require.NoError(t, WriteFile(path, FormatCSV, NewReport(runID, time.Now(), sampleResult())))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run_id,seq,removed_tile")

	err = WriteFile(filepath.Join(t.TempDir(), "x.log"), Format("xml"), NewReport(runID, time.Now(), sampleResult()))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}
