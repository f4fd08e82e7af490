package labelme

import "github.com/Stennix/tilemerge/internal/logger"

// GetLogger returns the labelme module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("labelme")
}
