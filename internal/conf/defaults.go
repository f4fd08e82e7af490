package conf

import (
	"github.com/spf13/viper"

	"github.com/Stennix/tilemerge/internal/logger"
)

// Default grid and image geometry of the microscope mosaic.
const (
	DefaultRows             = 49
	DefaultCols             = 16
	DefaultImageWidth       = 2736
	DefaultImageHeight      = 1824
	DefaultEdgeTolerance    = 25.0
	DefaultOverlapThreshold = 0.30
)

// setDefaultConfig registers the default value of every setting.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("grid.rows", DefaultRows)
	v.SetDefault("grid.cols", DefaultCols)

	v.SetDefault("image.width", DefaultImageWidth)
	v.SetDefault("image.height", DefaultImageHeight)

	v.SetDefault("merge.edgetolerance", DefaultEdgeTolerance)
	v.SetDefault("merge.overlapthreshold", DefaultOverlapThreshold)

	v.SetDefault("input.path", "")
	v.SetDefault("input.workers", 4)

	v.SetDefault("output.path", "merged")
	v.SetDefault("output.overwrite", false)
	v.SetDefault("output.log.enabled", true)
	v.SetDefault("output.log.path", "merge_log.json")
	v.SetDefault("output.log.format", "json")

	v.SetDefault("output.database.enabled", false)
	v.SetDefault("output.database.type", "sqlite")
	v.SetDefault("output.database.sqlite.path", "tilemerge.db")
	v.SetDefault("output.database.mysql.host", "localhost")
	v.SetDefault("output.database.mysql.port", "3306")
	v.SetDefault("output.database.mysql.username", "")
	v.SetDefault("output.database.mysql.password", "")
	v.SetDefault("output.database.mysql.database", "tilemerge")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "tilemerge.prom")
	v.SetDefault("metrics.pushurl", "")

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/tilemerge.log")
	v.SetDefault("logging.file_output.level", "debug")
	v.SetDefault("logging.file_output.buffer_size", logger.DefaultBufferSize)
	v.SetDefault("logging.file_output.flush_interval", logger.DefaultFlushInterval)
}
