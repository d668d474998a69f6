package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/scenestore/internal/buildinfo"
	"github.com/tphakala/scenestore/internal/conf"
	"github.com/tphakala/scenestore/internal/datastore"
	"github.com/tphakala/scenestore/internal/datastore/entities"
)

func loadSettings(t *testing.T) *conf.Settings {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
database:
  sqlite:
    path: %s
logging:
  default_level: error
  console:
    enabled: false
`, filepath.Join(dir, "scenes.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	settings, err := conf.Load(path)
	require.NoError(t, err)
	return settings
}

func TestStartWiresStoreAndPartitions(t *testing.T) {
	settings := loadSettings(t)
	ctx := context.Background()

	a, err := Start(ctx, settings, buildinfo.NewContext("1.2.3", "2026-01-01", "test"))
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Metrics, "metrics are enabled by default")

	scene, err := a.Store.CreateScene(ctx, datastore.NewScene{
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		CameraID:  "cam-1",
		MediaPath: "/media/1.jpg",
	})
	require.NoError(t, err)

	_, err = a.Partitions.AssignSplit(ctx, scene.ID, entities.DatasetTrain)
	require.NoError(t, err)

	stats, err := a.Store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Splits[entities.DatasetTrain])

	var buf bytes.Buffer
	require.NoError(t, a.Metrics.WriteText(&buf))
	assert.Contains(t, buf.String(), "scenestore_")
}

func TestStartWithoutMetrics(t *testing.T) {
	settings := loadSettings(t)
	settings.Metrics.Enabled = false

	a, err := Start(context.Background(), settings, buildinfo.NewContext("dev", "", ""))
	require.NoError(t, err)
	assert.Nil(t, a.Metrics)
	a.Close()
}

func TestStartFailsOnUnwritableDatabase(t *testing.T) {
	settings := loadSettings(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	settings.Database.SQLite.Path = filepath.Join(blocker, "scenes.db")

	a, err := Start(context.Background(), settings, buildinfo.NewContext("dev", "", ""))
	require.Error(t, err)
	assert.Nil(t, a)
}
