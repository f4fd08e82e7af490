package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stennix/tilemerge/internal/buildinfo"
	"github.com/Stennix/tilemerge/internal/conf"
)

func TestFlagsCarrySettingKeys(t *testing.T) {
	t.Parallel()

	cmd := Command(conf.NewContext(buildinfo.NewContext("test", "", "")))
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		require.NotNil(t, f, "flag %s", name)
		assert.Equal(t, []string{key}, f.Annotations[conf.ConfigKeyAnnotation], "flag %s", name)
	}
	assert.Empty(t, cmd.Flags().Lookup("run-id").Annotations[conf.ConfigKeyAnnotation])
}
