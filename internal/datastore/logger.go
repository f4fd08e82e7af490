package datastore

import (
	"time"

	gorm_logger "gorm.io/gorm/logger"

	"github.com/Stennix/tilemerge/internal/logger"
)

// slowQueryThreshold marks queries logged as slow
const slowQueryThreshold = 200 * time.Millisecond

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

func createGormLogger(log logger.Logger) gorm_logger.Interface {
	return logger.NewGormLoggerAdapter(log, slowQueryThreshold)
}
