package labelme

import (
	"os"
	"path/filepath"

	"github.com/Stennix/tilemerge/internal/detection"
	"github.com/Stennix/tilemerge/internal/errors"
	"github.com/Stennix/tilemerge/internal/logger"
)

// File permissions for written documents
const (
	OutputDirPermissions  = 0o755
	OutputFilePermissions = 0o644
)

// WriteOptions controls WriteDocuments.
type WriteOptions struct {
	// Overwrite allows the output directory to be the input directory.
	Overwrite bool
	Logger    logger.Logger
}

// SameDir reports whether a and b resolve to the same directory.
func SameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	if absA == absB {
		return true
	}
	infoA, errA := os.Stat(absA)
	infoB, errB := os.Stat(absB)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}

// WriteDocuments writes every document to outDir under its original name with
// only the detections still kept in store.
func WriteDocuments(docs []*Document, store *detection.Store, outDir string, opts WriteOptions) error {
	log := opts.Logger
	if log == nil {
		log = GetLogger()
	}

	if !opts.Overwrite {
		for _, doc := range docs {
			if SameDir(filepath.Dir(doc.Path), outDir) {
				return errors.Newf("output directory %s is the input directory; enable overwrite to replace the input documents", outDir).
					Component("labelme").
					Category(errors.CategoryValidation).
					Context("output_dir", outDir).
					Build()
			}
		}
	}

	if err := os.MkdirAll(outDir, OutputDirPermissions); err != nil {
		return errors.New(err).
			Component("labelme").
			Category(errors.CategoryFileIO).
			Context("output_dir", outDir).
			Build()
	}

	written := 0
	for _, doc := range docs {
		data, err := doc.Encode(KeptShapes(store, doc.TileID))
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, doc.Name)
		if err := os.WriteFile(path, data, OutputFilePermissions); err != nil {
			return errors.New(err).
				Component("labelme").
				Category(errors.CategoryFileIO).
				FileContext(path).
				Context("tile_id", doc.TileID).
				Build()
		}
		written++
	}

	log.Info("tile documents written",
		logger.String("output_dir", outDir),
		logger.Int("documents", written),
		logger.Int("detections", store.KeptLen()))
	return nil
}
