// model.go defines the audit records persisted for every merge run
package datastore

import "time"

// Run is one execution of the merge over a tile directory.
type Run struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	StartedAt  time.Time `gorm:"index:idx_runs_started_at"`
	FinishedAt time.Time
	InputPath  string `gorm:"type:varchar(1024)"`
	OutputPath string `gorm:"type:varchar(1024)"`

	Rows             int
	Cols             int
	ImageWidth       int
	ImageHeight      int
	EdgeTolerance    float64
	OverlapThreshold float64

	Detections int
	Kept       int
	Merges     int
	Vertical   int
	Horizontal int

	Events []MergeEvent `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// MergeEvent is one duplicate removal of a run. Seq preserves decision order.
type MergeEvent struct {
	ID                uint   `gorm:"primaryKey"`
	RunID             string `gorm:"type:varchar(36);index:idx_merge_events_run_seq,priority:1;not null"`
	Seq               int    `gorm:"index:idx_merge_events_run_seq,priority:2"`
	RemovedTile       int
	RemovedIndex      int
	KeptTile          int
	KeptIndex         int
	Label             string `gorm:"type:varchar(255);index:idx_merge_events_label"`
	WinningConfidence float64
	Orientation       string `gorm:"type:varchar(20)"`
	Direction         string `gorm:"type:varchar(10)"`
}
