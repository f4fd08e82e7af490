package conf

import (
	"strings"

	"github.com/spf13/viper"
)

// configureEnvironmentVariables maps TILEMERGE_<SECTION>_<KEY> onto section.key.
// Every key with a default is eligible, so TILEMERGE_OUTPUT_DATABASE_TYPE=mysql works.
func configureEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}
