package labelme

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Stennix/tilemerge/internal/detection"
	"github.com/Stennix/tilemerge/internal/errors"
	"github.com/Stennix/tilemerge/internal/logger"
)

// DefaultWorkers is the number of documents parsed concurrently when unset.
const DefaultWorkers = 4

// TileFile is a discovered tile document.
type TileFile struct {
	Path   string
	TileID int
}

// Discover lists the *.json files directly inside dir, sorted by file name,
// and resolves their tile ids. Files whose base name is in skip are not tile
// documents and are ignored. It fails when dir holds no documents, when a
// name has no tile suffix, or when two files claim the same tile.
func Discover(dir string, skip ...string) ([]TileFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.New(err).
			Component("labelme").
			Category(errors.CategoryFileIO).
			Context("input_dir", dir).
			Build()
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") || slices.Contains(skip, e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, errors.Newf("no JSON tile documents found in %s", dir).
			Component("labelme").
			Category(errors.CategoryNotFound).
			Context("input_dir", dir).
			Build()
	}
	slices.Sort(names)

	files := make([]TileFile, 0, len(names))
	owner := make(map[int]string, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		id, err := TileIDFromName(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := owner[id]; dup {
			return nil, errors.Newf("tile %d is claimed by both %s and %s", id, prev, name).
				Component("labelme").
				Category(errors.CategoryConflict).
				Context("tile_id", id).
				Build()
		}
		owner[id] = name
		files = append(files, TileFile{Path: path, TileID: id})
	}
	return files, nil
}

// ReadFile opens and decodes one tile document.
func ReadFile(f TileFile) (*Document, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, errors.New(err).
			Component("labelme").
			Category(errors.CategoryFileIO).
			FileContext(f.Path).
			Context("tile_id", f.TileID).
			Build()
	}
	defer fh.Close()

	return Decode(fh, f.Path, f.TileID)
}

// LoadOptions controls LoadDirectory.
type LoadOptions struct {
	// Workers bounds concurrent parsing; values below one use DefaultWorkers.
	Workers int
	Logger  logger.Logger
	// Skip names files in the directory that are not tile documents, such
	// as a merge log left by an earlier run.
	Skip []string
}

// Load parses files concurrently. The returned documents are in the order of
// files regardless of which finished first. The first failure cancels the
// remaining work and is returned.
func Load(ctx context.Context, files []TileFile, opts LoadOptions) ([]*Document, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	log := opts.Logger
	if log == nil {
		log = GetLogger()
	}

	docs := make([]*Document, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, f := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := ReadFile(f)
			if err != nil {
				return err
			}
			docs[i] = doc
			log.Trace("tile document parsed",
				logger.String("file", f.Path),
				logger.Int("tile_id", f.TileID),
				logger.Int("shapes", len(doc.Shapes)))
			return nil
		})
	}

	err := g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.New(ctxErr).
			Component("labelme").
			Category(errors.CategoryCancellation).
			Context("files", len(files)).
			Build()
	}
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// LoadDirectory discovers and parses every tile document in dir and fills a
// new store in file name order.
func LoadDirectory(ctx context.Context, dir string, opts LoadOptions) ([]*Document, *detection.Store, error) {
	start := time.Now()

	files, err := Discover(dir, opts.Skip...)
	if err != nil {
		return nil, nil, err
	}
	docs, err := Load(ctx, files, opts)
	if err != nil {
		return nil, nil, err
	}

	store := detection.NewStore()
	for _, doc := range docs {
		doc.AddTo(store)
	}

	log := opts.Logger
	if log == nil {
		log = GetLogger()
	}
	log.Info("tile documents loaded",
		logger.String("input_dir", dir),
		logger.Int("documents", len(docs)),
		logger.Int("detections", store.Len()),
		logger.Duration("elapsed", time.Since(start)))

	return docs, store, nil
}
