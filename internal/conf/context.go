package conf

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Stennix/tilemerge/internal/buildinfo"
	"github.com/Stennix/tilemerge/internal/errors"
	"github.com/Stennix/tilemerge/internal/logger"
)

// ConfigKeyAnnotation is the pflag annotation naming the setting a flag overrides.
const ConfigKeyAnnotation = "tilemerge_config_key"

// Context is shared by every command of one invocation.
type Context struct {
	Viper      *viper.Viper
	ConfigFile string
	Settings   *Settings
	BuildInfo  *buildinfo.Context

	logger *logger.CentralLogger
}

// NewContext returns a context with defaults loaded but no config file read.
func NewContext(build *buildinfo.Context) *Context {
	return &Context{
		Viper:     NewViper(),
		Settings:  &Settings{},
		BuildInfo: build,
	}
}

// AnnotateFlag marks flag name as an override of the setting key.
func AnnotateFlag(flags *pflag.FlagSet, name, key string) error {
	return flags.SetAnnotation(name, ConfigKeyAnnotation, []string{key})
}

// AnnotateFlags annotates every flag named in keys with its setting and
// reports all flags that do not exist.
func AnnotateFlags(flags *pflag.FlagSet, keys map[string]string) error {
	var errs []error
	for name, key := range keys {
		if err := AnnotateFlag(flags, name, key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "annotate_flags").
			Build()
	}
	return nil
}

// BindFlags binds every annotated flag in flags to its setting. Binding
// happens per invocation so commands sharing a key do not shadow each other.
func (c *Context) BindFlags(flags *pflag.FlagSet) error {
	var errs []error
	flags.VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[ConfigKeyAnnotation]
		if len(keys) == 0 {
			return
		}
		if err := c.Viper.BindPFlag(keys[0], f); err != nil {
			errs = append(errs, err)
		}
	})
	if err := errors.Join(errs...); err != nil {
		return errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "bind_flags").
			Build()
	}
	return nil
}

// Initialize loads the settings and installs the global logger.
func (c *Context) Initialize() error {
	settings, err := Load(c.Viper, c.ConfigFile)
	if err != nil {
		return err
	}
	c.Settings = settings

	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_logger").
			Build()
	}
	if c.logger != nil {
		_ = c.logger.Close()
	}
	c.logger = cl
	logger.SetGlobal(cl)

	return nil
}

// Close flushes and closes the logger installed by Initialize.
func (c *Context) Close() error {
	if c.logger == nil {
		return nil
	}
	err := c.logger.Close()
	c.logger = nil
	return err
}
