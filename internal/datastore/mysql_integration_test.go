//go:build integration

package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/Stennix/tilemerge/internal/conf"
	"github.com/Stennix/tilemerge/internal/merge"
)

func TestMySQLSaveRun(t *testing.T) {
	ctx := t.Context()

	container, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("tilemerge"),
		tcmysql.WithUsername("tilemerge"),
		tcmysql.WithPassword("secret"),
	)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	settings := &conf.DatabaseSettings{Enabled: true, Type: TypeMySQL}
	settings.MySQL.Host = host
	settings.MySQL.Port = port.Port()
	settings.MySQL.Username = "tilemerge"
	settings.MySQL.Password = "secret"
	settings.MySQL.Database = "tilemerge"

	s, err := Open(settings, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.Equal(t, TypeMySQL, s.Type())

	events := sampleEvents()
	run := &Run{ID: "0d7f3c8e-5b0e-4c57-9d39-4f7f7a1c2b11", StartedAt: time.Now().UTC().Truncate(time.Second)}
	run.ApplySummary(merge.Summarize(events, 10, 7))
	require.NoError(t, s.SaveRun(ctx, run, EventsFromMerge(run.ID, events)))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Merges)

	stored, err := s.ListEvents(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "Pin", stored[2].Label)
}
