// Package metrics provides constants used across metric definitions.
package metrics

// Phase label values for tilemerge_phase_duration_seconds.
const (
	// PhaseLoad covers discovery and parsing of the tile documents.
	PhaseLoad = "load"
	// PhaseMerge covers the duplicate removal pass.
	PhaseMerge = "merge"
	// PhaseWrite covers writing filtered documents and the merge log.
	PhaseWrite = "write"
	// PhasePersist covers saving the run to the audit database.
	PhasePersist = "persist"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketCount15 defines 15 exponential buckets (1ms to ~16s).
	BucketCount15 = 15
)

// Namespace prefixes every metric name.
const Namespace = "tilemerge"
