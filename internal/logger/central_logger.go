package logger

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Stennix/tilemerge/internal/errors"
)

// traceLevelValue sits below slog.LevelDebug (-4)
const traceLevelValue = slog.Level(-8)

const logDirPermissions = 0o750

var (
	globalMu sync.Mutex
	global   *CentralLogger
)

// SetGlobal installs the process-wide CentralLogger. Call once after loading configuration.
func SetGlobal(cl *CentralLogger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = cl
}

// Global returns the CentralLogger installed with SetGlobal, or a console
// logger at info level when none was installed.
func Global() *CentralLogger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global == nil {
		global = &CentralLogger{
			cfg:  &LoggingConfig{DefaultLevel: DefaultLogLevel},
			tz:   time.Local,
			base: newTextHandler(os.Stderr, slog.LevelInfo, time.Local),
		}
	}
	return global
}

// CentralLogger owns the configured log outputs and hands out module loggers.
// Modules listed under ModuleOutputs write to their own file; every other
// module shares the console and main file handlers.
type CentralLogger struct {
	mu      sync.RWMutex
	cfg     *LoggingConfig
	tz      *time.Location
	base    slog.Handler
	modules map[string]slog.Handler
	levels  map[string]slog.Level
	files   []*BufferedFileWriter
}

// NewCentralLogger opens every configured output. On failure the files
// already opened are closed again.
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	if cfg == nil {
		return nil, errors.NewStd("logging config is nil")
	}
	applyConfigDefaults(cfg)

	tz, err := loadTimezone(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	cl := &CentralLogger{
		cfg:     cfg,
		tz:      tz,
		modules: make(map[string]slog.Handler),
		levels:  make(map[string]slog.Level, len(cfg.ModuleLevels)),
	}
	for module, level := range cfg.ModuleLevels {
		cl.levels[module] = parseLogLevel(level)
	}

	if err := cl.open(); err != nil {
		_ = cl.closeFiles()
		return nil, err
	}
	return cl, nil
}

func loadTimezone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", name, err)
	}
	return tz, nil
}

func (cl *CentralLogger) open() error {
	var base []slog.Handler
	if c := cl.cfg.Console; c.Enabled {
		base = append(base, newTextHandler(os.Stderr, parseLogLevel(c.Level), cl.tz))
	}
	if f := cl.cfg.FileOutput; f.Enabled {
		w, err := cl.openFile(f.Path)
		if err != nil {
			return err
		}
		base = append(base, newJSONHandler(w, parseLogLevel(f.Level), cl.tz))
	}
	if len(base) == 0 {
		base = append(base, newTextHandler(os.Stderr, parseLogLevel(cl.cfg.DefaultLevel), cl.tz))
	}
	cl.base = combineHandlers(base)

	for name, out := range cl.cfg.ModuleOutputs {
		if !out.Enabled {
			continue
		}
		w, err := cl.openFile(out.FilePath)
		if err != nil {
			return fmt.Errorf("module %s: %w", name, err)
		}
		level := cl.levelFor(name)
		handlers := []slog.Handler{newJSONHandler(w, level, cl.tz)}
		if out.ConsoleAlso && cl.cfg.Console.Enabled {
			handlers = append(handlers, newTextHandler(os.Stderr, level, cl.tz))
		}
		cl.modules[name] = combineHandlers(handlers)
	}
	return nil
}

// openFile creates the parent directory and a buffered writer tuned by the
// file output settings.
func (cl *CentralLogger) openFile(path string) (*BufferedFileWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, logDirPermissions); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}
	w, err := NewBufferedFileWriter(path,
		WithBufferSize(cl.cfg.FileOutput.BufferSize),
		WithFlushInterval(cl.cfg.FileOutput.FlushInterval))
	if err != nil {
		return nil, err
	}
	cl.files = append(cl.files, w)
	return w, nil
}

func combineHandlers(handlers []slog.Handler) slog.Handler {
	if len(handlers) == 1 {
		return handlers[0]
	}
	return newMultiWriterHandler(handlers...)
}

// levelFor resolves a module's level: its output level, then module_levels,
// then the default level.
func (cl *CentralLogger) levelFor(module string) slog.Level {
	if out, ok := cl.cfg.ModuleOutputs[module]; ok && out.Level != "" {
		return parseLogLevel(out.Level)
	}
	if level, ok := cl.levels[module]; ok {
		return level
	}
	return parseLogLevel(cl.cfg.DefaultLevel)
}

// Module returns a logger scoped to a specific module
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}

	cl.mu.RLock()
	defer cl.mu.RUnlock()

	handler, ok := cl.modules[name]
	if !ok {
		handler = cl.base
	}
	return &moduleLogger{
		module:   name,
		logger:   slog.New(handler),
		level:    cl.levelFor(name),
		timezone: cl.tz,
	}
}

// Flush writes buffered records to the OS without syncing to disk.
func (cl *CentralLogger) Flush() error {
	if cl == nil {
		return nil
	}

	cl.mu.RLock()
	defer cl.mu.RUnlock()

	var errs []error
	for _, w := range cl.files {
		if err := w.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", w.FilePath(), err))
		}
	}
	return errors.Join(errs...)
}

// Close flushes, syncs and closes every log file.
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	return cl.closeFiles()
}

func (cl *CentralLogger) closeFiles() error {
	var errs []error
	for _, w := range cl.files {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", w.FilePath(), err))
		}
	}
	cl.files = nil
	return errors.Join(errs...)
}

// parseLogLevel converts string level to slog.Level, defaulting to info
func parseLogLevel(level string) slog.Level {
	switch LogLevel(level) {
	case LogLevelTrace:
		return traceLevelValue
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
