// Package errors provides centralized error handling with categories and structured context
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

// CategorizedError is implemented by errors that know their own category
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryFileParsing   ErrorCategory = "file-parsing"
	CategoryOutOfRange    ErrorCategory = "out-of-range"
	CategoryDatabase      ErrorCategory = "database"
	CategoryProcessing    ErrorCategory = "processing"
	CategoryConflict      ErrorCategory = "conflict"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryNetwork       ErrorCategory = "network"
	CategorySystem        ErrorCategory = "system-resource"
	CategoryCancellation  ErrorCategory = "cancellation"
	CategoryGeneric       ErrorCategory = "generic"
)

// ComponentUnknown is reported when no registered package is on the stack.
const ComponentUnknown = "unknown"

const ownPackage = "github.com/Stennix/tilemerge/internal/errors"

// EnhancedError wraps an error with a component, a category and context
// values for reporting.
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time

	component  string
	detectOnce sync.Once
	callers    []uintptr
}

func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches another EnhancedError by category, anything else through the
// wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return Is(ee.Err, target)
}

// ErrorCategory lets an EnhancedError satisfy CategorizedError
func (ee *EnhancedError) ErrorCategory() ErrorCategory {
	return ee.Category
}

// GetComponent returns the explicit component or the first registered
// package found on the stack captured by Build.
func (ee *EnhancedError) GetComponent() string {
	ee.detectOnce.Do(func() {
		if ee.component == "" {
			ee.component = componentFromStack(ee.callers)
		}
		ee.callers = nil
	})
	return ee.component
}

// GetCategory returns the error category
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetContext returns a copy of the error context
func (ee *EnhancedError) GetContext() map[string]any {
	return maps.Clone(ee.Context)
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts an EnhancedError wrapping err
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts an EnhancedError from a formatted message
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name (auto-detected if not set)
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category; Build derives one when unset.
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// FileContext records the offending file and its extension
func (eb *ErrorBuilder) FileContext(filePath string) *ErrorBuilder {
	if filePath == "" {
		return eb
	}
	return eb.Context("file", filePath).Context("file_extension", fileExtension(filePath))
}

// Timing records the failed operation and how long it ran
func (eb *ErrorBuilder) Timing(operation string, duration time.Duration) *ErrorBuilder {
	return eb.Context("operation", operation).Context("duration_ms", duration.Milliseconds())
}

// Build creates the EnhancedError
func (eb *ErrorBuilder) Build() *EnhancedError {
	ee := &EnhancedError{
		Err:       eb.err,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
		component: eb.component,
	}
	if ee.Category == "" {
		ee.Category = detectCategory(eb.err)
	}
	if ee.component == "" {
		pcs := make([]uintptr, 32)
		ee.callers = pcs[:runtime.Callers(2, pcs)]
	}
	return ee
}

// registry maps package path fragments to component names
var registry = map[string]string{
	"internal/grid":         "grid",
	"internal/geometry":     "geometry",
	"internal/detection":    "detection",
	"internal/merge":        "merge",
	"internal/labelme":      "labelme",
	"internal/auditlog":     "auditlog",
	"internal/datastore":    "datastore",
	"internal/analysis":     "analysis",
	"internal/conf":         "configuration",
	"observability/metrics": "metrics",
}

func componentFromStack(pcs []uintptr) string {
	frames := runtime.CallersFrames(pcs)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, ownPackage) {
			for pattern, component := range registry {
				if strings.Contains(frame.Function, pattern) {
					return component
				}
			}
		}
		if !more {
			return ComponentUnknown
		}
	}
}

// detectCategory derives a category from the wrapped error when none was set
func detectCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryGeneric
	}

	var catErr CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr.ErrorCategory()
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "out of range"):
		return CategoryOutOfRange
	case strings.Contains(msg, "parse") || strings.Contains(msg, "unmarshal"):
		return CategoryFileParsing
	case strings.Contains(msg, "file") || strings.Contains(msg, "read") || strings.Contains(msg, "open"):
		return CategoryFileIO
	case strings.Contains(msg, "validation") || strings.Contains(msg, "invalid"):
		return CategoryValidation
	}
	return CategoryGeneric
}

func fileExtension(path string) string {
	if i := strings.LastIndex(path, "."); i > 0 && i < len(path)-1 {
		return strings.ToLower(path[i+1:])
	}
	return "none"
}

// FileError creates a file I/O error with appropriate context
func FileError(err error, filePath string) *EnhancedError {
	return New(err).
		Category(CategoryFileIO).
		FileContext(filePath).
		Build()
}

// ValidationError creates a validation error
func ValidationError(message string) *EnhancedError {
	return New(NewStd(message)).
		Category(CategoryValidation).
		Build()
}

// NewStd creates a new standard error (passthrough to standard library)
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is reports whether any error in err's tree matches target (passthrough to standard library)
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target (passthrough to standard library)
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join returns an error that wraps the given errors (passthrough to standard library)
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsCategory checks if an error is an EnhancedError with the specified category.
func IsCategory(err error, category ErrorCategory) bool {
	var enhancedErr *EnhancedError
	return As(err, &enhancedErr) && enhancedErr.Category == category
}

// IsNotFound checks if an error is an EnhancedError with CategoryNotFound.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}
