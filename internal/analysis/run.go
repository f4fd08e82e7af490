// Package analysis runs a complete merge batch: load the tile documents,
// remove boundary duplicates, and write every configured output.
package analysis

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Stennix/tilemerge/internal/auditlog"
	"github.com/Stennix/tilemerge/internal/conf"
	"github.com/Stennix/tilemerge/internal/datastore"
	"github.com/Stennix/tilemerge/internal/errors"
	"github.com/Stennix/tilemerge/internal/geometry"
	"github.com/Stennix/tilemerge/internal/grid"
	"github.com/Stennix/tilemerge/internal/labelme"
	"github.com/Stennix/tilemerge/internal/logger"
	"github.com/Stennix/tilemerge/internal/merge"
	"github.com/Stennix/tilemerge/internal/observability"
	"github.com/Stennix/tilemerge/internal/observability/metrics"
)

// Report describes a finished run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Documents  int
	Result     *merge.Result
	OutputPath string
	// LogPath is empty when the merge log is disabled.
	LogPath string
}

// Option configures Run.
type Option func(*runner)

// WithLogger replaces the module loggers used during the run.
func WithLogger(l logger.Logger) Option {
	return func(r *runner) { r.log = l }
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(r *runner) { r.runID = id }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *runner) { r.now = now }
}

type runner struct {
	settings *conf.Settings
	runID    string
	now      func() time.Time
	log      logger.Logger
	metrics  *observability.Metrics
}

// moduleLogger returns the injected logger when set, otherwise the global
// logger for module, bound to the run's trace id.
func (r *runner) moduleLogger(ctx context.Context, module string) logger.Logger {
	if r.log != nil {
		return r.log.WithContext(ctx)
	}
	return logger.Global().Module(module).WithContext(ctx)
}

// Run executes one merge batch as described by settings.
func Run(ctx context.Context, settings *conf.Settings, opts ...Option) (*Report, error) {
	r := &runner{settings: settings, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	ctx = logger.WithTraceID(ctx, r.runID)
	log := r.moduleLogger(ctx, "analysis")

	if err := conf.ValidateForMerge(settings); err != nil {
		return nil, err
	}

	topology, err := grid.New(settings.Grid.Rows, settings.Grid.Cols)
	if err != nil {
		return nil, err
	}
	edges := geometry.NewEdgeClassifier(float64(settings.Image.Width), float64(settings.Image.Height), settings.Merge.EdgeTolerance)

	if settings.Metrics.Enabled {
		if r.metrics, err = observability.NewMetrics(); err != nil {
			return nil, err
		}
	}

	report := &Report{RunID: r.runID, StartedAt: r.now(), OutputPath: settings.Output.Path}
	log.Info("merge run started",
		logger.String("input_dir", settings.Input.Path),
		logger.String("output_dir", settings.Output.Path),
		logger.Int("rows", topology.Rows()),
		logger.Int("cols", topology.Cols()),
		logger.Float64("edge_tolerance", settings.Merge.EdgeTolerance),
		logger.Float64("overlap_threshold", settings.Merge.OverlapThreshold))

	// load
	phase := time.Now()
	docs, store, err := labelme.LoadDirectory(ctx, settings.Input.Path, labelme.LoadOptions{
		Workers: settings.Input.Workers,
		Logger:  r.moduleLogger(ctx, "labelme"),
		Skip:    mergeLogNames(settings),
	})
	if err != nil {
		return nil, err
	}
	if err := checkTiles(topology, docs); err != nil {
		return nil, err
	}
	report.Documents = len(docs)
	r.observe(metrics.PhaseLoad, phase)
	if r.metrics != nil {
		r.metrics.Merge.RecordLoad(len(docs), store.Len())
	}

	// merge
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	phase = time.Now()
	engine := merge.NewEngine(topology, edges,
		merge.Options{OverlapThreshold: settings.Merge.OverlapThreshold},
		merge.WithLogger(r.moduleLogger(ctx, "merge")))
	result, err := engine.Run(store)
	if err != nil {
		return nil, err
	}
	report.Result = result
	r.observe(metrics.PhaseMerge, phase)

	// write
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	phase = time.Now()
	if err := labelme.WriteDocuments(docs, store, settings.Output.Path, labelme.WriteOptions{
		Overwrite: settings.Output.Overwrite,
		Logger:    r.moduleLogger(ctx, "labelme"),
	}); err != nil {
		return nil, err
	}
	report.FinishedAt = r.now()

	if settings.Output.Log.Enabled {
		report.LogPath = MergeLogPath(settings)
		format, err := auditlog.ParseFormat(settings.Output.Log.Format)
		if err != nil {
			return nil, err
		}
		if err := auditlog.WriteFile(report.LogPath, format, auditlog.NewReport(r.runID, report.FinishedAt, result)); err != nil {
			return nil, err
		}
		log.Debug("merge log written", logger.String("path", report.LogPath))
	}
	r.observe(metrics.PhaseWrite, phase)

	if settings.Output.Database.Enabled {
		phase = time.Now()
		if err := r.persist(ctx, report); err != nil {
			return nil, err
		}
		r.observe(metrics.PhasePersist, phase)
	}

	if r.metrics != nil {
		if err := r.exportMetrics(result, report.FinishedAt); err != nil {
			return nil, err
		}
	}

	log.Info("merge run finished",
		logger.Int("documents", report.Documents),
		logger.Int("detections", result.Summary.DetectionsLoaded),
		logger.Int("kept", result.Summary.DetectionsKept),
		logger.Int("merges", result.Summary.TotalMerges),
		logger.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))

	return report, nil
}

// MergeLogPath resolves the merge log location; a relative path is placed in
// the output directory.
func MergeLogPath(settings *conf.Settings) string {
	p := settings.Output.Log.Path
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(settings.Output.Path, p)
}

// mergeLogNames lists the merge log file name so a directory written by an
// earlier run can be merged again.
func mergeLogNames(settings *conf.Settings) []string {
	if settings.Output.Log.Path == "" {
		return nil
	}
	return []string{filepath.Base(settings.Output.Log.Path)}
}

// checkTiles rejects any document whose tile id lies outside the grid, even
// one without shapes, since it means the grid dimensions do not match the
// mosaic.
func checkTiles(topology *grid.Topology, docs []*labelme.Document) error {
	for _, doc := range docs {
		if _, err := topology.PositionOf(doc.TileID); err != nil {
			return errors.New(err).
				Component("analysis").
				Category(errors.CategoryOutOfRange).
				FileContext(doc.Path).
				Context("tile_id", doc.TileID).
				Context("rows", topology.Rows()).
				Context("cols", topology.Cols()).
				Build()
		}
	}
	return nil
}

func (r *runner) observe(phase string, start time.Time) {
	if r.metrics != nil {
		r.metrics.Merge.ObservePhase(phase, time.Since(start))
	}
}

func (r *runner) persist(ctx context.Context, report *Report) error {
	s := r.settings
	store, err := datastore.Open(&s.Output.Database, r.moduleLogger(ctx, "datastore"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			r.moduleLogger(ctx, "datastore").Warn("failed to close audit database", logger.Error(cerr))
		}
	}()

	run := &datastore.Run{
		ID:               report.RunID,
		StartedAt:        report.StartedAt,
		FinishedAt:       report.FinishedAt,
		InputPath:        s.Input.Path,
		OutputPath:       s.Output.Path,
		Rows:             s.Grid.Rows,
		Cols:             s.Grid.Cols,
		ImageWidth:       s.Image.Width,
		ImageHeight:      s.Image.Height,
		EdgeTolerance:    s.Merge.EdgeTolerance,
		OverlapThreshold: s.Merge.OverlapThreshold,
	}
	run.ApplySummary(report.Result.Summary)

	return store.SaveRun(ctx, run, datastore.EventsFromMerge(report.RunID, report.Result.Events))
}

func (r *runner) exportMetrics(result *merge.Result, finished time.Time) error {
	r.metrics.Merge.RecordResult(result)
	r.metrics.Merge.MarkFinished(finished)

	if path := r.settings.Metrics.Path; path != "" {
		if err := r.metrics.WriteTextfile(path); err != nil {
			return err
		}
	}
	if url := r.settings.Metrics.PushURL; url != "" {
		if err := r.metrics.Push(url, r.runID); err != nil {
			return err
		}
	}
	return nil
}

func cancelled(err error) error {
	return errors.New(err).
		Component("analysis").
		Category(errors.CategoryCancellation).
		Build()
}
