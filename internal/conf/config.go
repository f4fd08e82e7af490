// Package conf loads tilemerge settings from defaults, an optional YAML file,
// TILEMERGE_* environment variables and command line flags, in increasing order
// of precedence.
package conf

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Stennix/tilemerge/internal/errors"
	"github.com/Stennix/tilemerge/internal/logger"
)

//go:embed config.yaml
var defaultConfigYAML []byte

// EnvPrefix is prepended to every environment override, e.g. TILEMERGE_GRID_ROWS.
const EnvPrefix = "TILEMERGE"

// Settings is the complete configuration of a merge run.
type Settings struct {
	Debug bool `yaml:"debug"` // true to enable debug logging

	Grid struct {
		Rows int `yaml:"rows"` // tiles per column
		Cols int `yaml:"cols"` // tiles per row
	} `yaml:"grid"`

	Image struct {
		Width  int `yaml:"width"`  // tile width in pixels
		Height int `yaml:"height"` // tile height in pixels
	} `yaml:"image"`

	Merge struct {
		EdgeTolerance    float64 `yaml:"edgetolerance"`    // pixels from a boundary that still count as "near"
		OverlapThreshold float64 `yaml:"overlapthreshold"` // minimum cross-boundary overlap fraction
	} `yaml:"merge"`

	Input struct {
		Path    string `yaml:"path"`    // directory holding one LabelMe document per tile
		Workers int    `yaml:"workers"` // concurrent document loaders
	} `yaml:"input"`

	Output OutputSettings `yaml:"output"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"` // write a Prometheus textfile after the run
		Path    string `yaml:"path"`    // textfile destination
		PushURL string `yaml:"pushurl"` // optional Pushgateway URL
	} `yaml:"metrics"`

	Logging logger.LoggingConfig `yaml:"logging"`
}

// OutputSettings controls where merge results go.
type OutputSettings struct {
	Path      string `yaml:"path"`      // directory receiving the filtered documents
	Overwrite bool   `yaml:"overwrite"` // allow writing into the input directory

	Log struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
		Format  string `yaml:"format"` // json, yaml or csv
	} `yaml:"log"`

	Database DatabaseSettings `yaml:"database"`
}

// DatabaseSettings selects and configures the optional run audit database.
type DatabaseSettings struct {
	Enabled bool   `yaml:"enabled"`
	Type    string `yaml:"type"` // sqlite or mysql

	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`

	MySQL struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
	} `yaml:"mysql"`
}

// NewViper returns a viper instance carrying defaults and environment bindings.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaultConfig(v)
	configureEnvironmentVariables(v)
	return v
}

// Load reads configFile, or the first config.yaml found in the default
// search paths, into v and returns validated settings. A missing config file
// is not an error.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if err := readConfig(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if settings.Debug && settings.Logging.DefaultLevel != "trace" {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	return settings, nil
}

func readConfig(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, path := range GetDefaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}

	builder := errors.New(fmt.Errorf("error reading config file: %w", err)).
		Component("configuration").
		Category(errors.CategoryConfiguration)
	if configFile != "" {
		builder = builder.FileContext(configFile)
	}
	return builder.Build()
}

// GetDefaultConfigPaths lists the directories searched for config.yaml.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "tilemerge"))
	}
	return append(paths, "/etc/tilemerge")
}

// DefaultConfig returns the annotated configuration template.
func DefaultConfig() []byte {
	return defaultConfigYAML
}

// WriteDefaultConfig writes the configuration template to path. An existing
// file is left untouched unless force is set.
func WriteDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.Newf("config file %s already exists", path).
				Component("configuration").
				Category(errors.CategoryConflict).
				FileContext(path).
				Build()
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.FileError(fmt.Errorf("error creating config directory: %w", err), path)
		}
	}

	return writeFileAtomic(path, defaultConfigYAML)
}

// SaveYAMLConfig writes settings to configPath. Comments are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return writeFileAtomic(configPath, yamlData)
}

// writeFileAtomic writes through a temporary file in the target directory and renames it.
func writeFileAtomic(path string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), "config-*.yaml")
	if err != nil {
		return errors.FileError(fmt.Errorf("error creating temporary file: %w", err), path)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return errors.FileError(fmt.Errorf("error writing to temporary file: %w", err), path)
	}
	if err := tempFile.Close(); err != nil {
		return errors.FileError(fmt.Errorf("error closing temporary file: %w", err), path)
	}

	if err := os.Rename(tempFileName, path); err != nil {
		return errors.FileError(fmt.Errorf("error replacing config file: %w", err), path)
	}
	return nil
}
