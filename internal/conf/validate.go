package conf

import (
	"fmt"
	"net/url"
	"slices"
)

// Accepted values of enumerated settings.
var (
	LogFormats    = []string{"json", "yaml", "csv"}
	DatabaseTypes = []string{"sqlite", "mysql"}
	logLevels     = []string{"", "trace", "debug", "info", "warn", "error"}
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings checks every section and reports all problems at once.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateGeometry(settings)...)
	ve.Errors = append(ve.Errors, validateMerge(settings)...)
	ve.Errors = append(ve.Errors, validateOutput(&settings.Output)...)

	if settings.Input.Workers < 1 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("input.workers must be at least 1, got %d", settings.Input.Workers))
	}
	if settings.Metrics.Enabled && settings.Metrics.Path == "" && settings.Metrics.PushURL == "" {
		ve.Errors = append(ve.Errors, "metrics.path or metrics.pushurl is required when metrics are enabled")
	}
	if settings.Metrics.PushURL != "" {
		if u, err := url.Parse(settings.Metrics.PushURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("metrics.pushurl %q is not an http(s) URL", settings.Metrics.PushURL))
		}
	}
	if !slices.Contains(logLevels, settings.Logging.DefaultLevel) {
		ve.Errors = append(ve.Errors, fmt.Sprintf("logging.default_level %q is not a log level", settings.Logging.DefaultLevel))
	}
	if fo := settings.Logging.FileOutput; fo != nil && fo.FlushInterval < 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("logging.file_output.flush_interval must not be negative, got %s", fo.FlushInterval))
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// ValidateForMerge adds the checks that only apply when a merge run is about to start.
func ValidateForMerge(settings *Settings) error {
	if err := ValidateSettings(settings); err != nil {
		return err
	}
	if settings.Input.Path == "" {
		return ValidationError{Errors: []string{"input.path is required"}}
	}
	return nil
}

func validateGeometry(settings *Settings) []string {
	var errs []string
	if settings.Grid.Rows < 1 {
		errs = append(errs, fmt.Sprintf("grid.rows must be at least 1, got %d", settings.Grid.Rows))
	}
	if settings.Grid.Cols < 1 {
		errs = append(errs, fmt.Sprintf("grid.cols must be at least 1, got %d", settings.Grid.Cols))
	}
	if settings.Image.Width <= 0 {
		errs = append(errs, fmt.Sprintf("image.width must be positive, got %d", settings.Image.Width))
	}
	if settings.Image.Height <= 0 {
		errs = append(errs, fmt.Sprintf("image.height must be positive, got %d", settings.Image.Height))
	}
	return errs
}

func validateMerge(settings *Settings) []string {
	var errs []string
	if settings.Merge.EdgeTolerance < 0 {
		errs = append(errs, fmt.Sprintf("merge.edgetolerance must not be negative, got %g", settings.Merge.EdgeTolerance))
	}
	if settings.Merge.OverlapThreshold < 0 || settings.Merge.OverlapThreshold > 1 {
		errs = append(errs, fmt.Sprintf("merge.overlapthreshold must be between 0 and 1, got %g", settings.Merge.OverlapThreshold))
	}
	return errs
}

func validateOutput(output *OutputSettings) []string {
	var errs []string
	if output.Path == "" {
		errs = append(errs, "output.path is required")
	}
	if output.Log.Enabled {
		if !slices.Contains(LogFormats, output.Log.Format) {
			errs = append(errs, fmt.Sprintf("output.log.format must be one of %v, got %q", LogFormats, output.Log.Format))
		}
		if output.Log.Path == "" {
			errs = append(errs, "output.log.path is required when the merge log is enabled")
		}
	}
	if output.Database.Enabled {
		switch output.Database.Type {
		case "sqlite":
			if output.Database.SQLite.Path == "" {
				errs = append(errs, "output.database.sqlite.path is required")
			}
		case "mysql":
			if output.Database.MySQL.Host == "" || output.Database.MySQL.Database == "" {
				errs = append(errs, "output.database.mysql.host and output.database.mysql.database are required")
			}
		default:
			errs = append(errs, fmt.Sprintf("output.database.type must be one of %v, got %q", DatabaseTypes, output.Database.Type))
		}
	}
	return errs
}
