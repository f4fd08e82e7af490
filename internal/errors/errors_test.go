package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rangeErr struct{}

func (rangeErr) Error() string                { return "tile 99 is outside the grid" }
func (rangeErr) ErrorCategory() ErrorCategory { return CategoryOutOfRange }

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
}

func TestExplicitComponentAndContext(t *testing.T) {
	t.Parallel()

	ee := Newf("cannot read tile %d", 7).
		Component("labelme").
		Category(CategoryFileIO).
		Context("tile_id", 7).
		FileContext("in/stack_7.json").
		Build()

	assert.Equal(t, "labelme", ee.GetComponent())
	assert.Equal(t, "file-io", ee.GetCategory())

	ctx := ee.GetContext()
	assert.Equal(t, 7, ctx["tile_id"])
	assert.Equal(t, "in/stack_7.json", ctx["file"])
	assert.Equal(t, "json", ctx["file_extension"])

	// The returned map is a copy
	ctx["tile_id"] = 8
	assert.Equal(t, 7, ee.GetContext()["tile_id"])
}

func TestCategoryDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"categorized error wins", rangeErr{}, CategoryOutOfRange},
		{"wrapped categorized error", fmt.Errorf("loading: %w", rangeErr{}), CategoryOutOfRange},
		{"parse message", fmt.Errorf("failed to parse shape"), CategoryFileParsing},
		{"file message", fmt.Errorf("failed to open file"), CategoryFileIO},
		{"invalid message", fmt.Errorf("invalid threshold"), CategoryValidation},
		{"fallback", fmt.Errorf("something odd"), CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, New(tt.err).Build().Category)
		})
	}
}

func TestIsAndAs(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("sentinel")
	ee := New(fmt.Errorf("wrapped: %w", sentinel)).Category(CategoryProcessing).Build()
	wrapped := fmt.Errorf("outer: %w", ee)

	assert.True(t, Is(wrapped, sentinel))
	assert.True(t, IsCategory(wrapped, CategoryProcessing))
	assert.False(t, IsCategory(wrapped, CategoryDatabase))

	var target *EnhancedError
	require.True(t, As(wrapped, &target))
	assert.Same(t, ee, target)

	assert.True(t, Is(ee, &EnhancedError{Category: CategoryProcessing}))
}

func TestTimingContext(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("database is locked")).
		Category(CategoryDatabase).
		Timing("save_run", 1500*time.Millisecond).
		Build()

	ctx := ee.GetContext()
	assert.Equal(t, "save_run", ctx["operation"])
	assert.Equal(t, int64(1500), ctx["duration_ms"])
}

func TestComponentDetectionFallsBackToUnknown(t *testing.T) {
	t.Parallel()

	// Test binaries are not registered components
	ee := New(NewStd("x")).Build()
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNotFound(New(NewStd("no run")).Category(CategoryNotFound).Build()))
	assert.False(t, IsNotFound(NewStd("no run")))
}
