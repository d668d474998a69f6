package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/scenestore/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "debug: false\n")

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DatabaseSQLite, settings.Database.Type)
	assert.Equal(t, DefaultSQLitePath, settings.Database.SQLite.Path)
	assert.Equal(t, DefaultOperationTimeout, settings.Database.OperationTimeout)
	assert.Equal(t, DefaultSlowQuery, settings.Database.SlowQueryThreshold)
	assert.InDelta(t, DefaultTrainRatio, settings.Partition.Ratios.Train, 1e-12)
	assert.InDelta(t, DefaultValRatio, settings.Partition.Ratios.Val, 1e-12)
	assert.InDelta(t, DefaultTestRatio, settings.Partition.Ratios.Test, 1e-12)
	assert.Equal(t, DefaultEventBufferSize, settings.Events.BufferSize)
	assert.Equal(t, DefaultMQTTTopic, settings.Events.MQTT.Topic)
	assert.Equal(t, byte(1), settings.Events.MQTT.QoS)
	assert.True(t, settings.Metrics.Enabled)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  type: mysql
  mysql:
    host: db.internal
    database: scenes
  operationtimeout: 5s
partition:
  seed: 42
  ratios:
    train: 0.8
    val: 0.1
    test: 0.1
logging:
  default_level: debug
  module_levels:
    datastore: trace
`)

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DatabaseMySQL, settings.Database.Type)
	assert.Equal(t, "db.internal", settings.Database.MySQL.Host)
	assert.Equal(t, "3306", settings.Database.MySQL.Port)
	assert.Equal(t, 5*time.Second, settings.Database.OperationTimeout)
	assert.Equal(t, int64(42), settings.Partition.Seed)
	assert.InDelta(t, 0.8, settings.Partition.Ratios.Train, 1e-12)
	assert.Equal(t, "debug", settings.Logging.DefaultLevel)
	assert.Equal(t, "trace", settings.Logging.ModuleLevels["datastore"])
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("SCENESTORE_DATABASE_SQLITE_PATH", "/var/lib/scenestore/env.db")
	t.Setenv("SCENESTORE_PARTITION_SEED", "7")

	settings, err := Load(writeConfig(t, "debug: true\n"))
	require.NoError(t, err)

	assert.True(t, settings.Debug)
	assert.Equal(t, "/var/lib/scenestore/env.db", settings.Database.SQLite.Path)
	assert.Equal(t, int64(7), settings.Partition.Seed)
}

func TestLoadWithFlagsOverridesEnvironment(t *testing.T) {
	t.Setenv("SCENESTORE_DATABASE_SQLITE_PATH", "/var/lib/scenestore/env.db")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("sqlite-path", "", "")
	fs.Int64("seed", 0, "")
	require.NoError(t, fs.Parse([]string{"--sqlite-path", "/tmp/flag.db"}))

	settings, err := LoadWithFlags(writeConfig(t, "partition:\n  seed: 3\n"), map[string]*pflag.Flag{
		"database.sqlite.path": fs.Lookup("sqlite-path"),
		"partition.seed":       fs.Lookup("seed"),
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/flag.db", settings.Database.SQLite.Path)
	assert.Equal(t, int64(3), settings.Partition.Seed, "unset flag keeps the file value")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	path := writeConfig(t, `
database:
  type: postgres
partition:
  ratios:
    train: 0.5
    val: 0.1
    test: 0.1
events:
  mqtt:
    enabled: true
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
	assert.Contains(t, err.Error(), "unknown database type")
	assert.Contains(t, err.Error(), "sum to 1")
	assert.Contains(t, err.Error(), "broker")
}

func TestValidateRatios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ratios  SplitRatios
		wantErr bool
	}{
		{"default split", SplitRatios{0.7, 0.15, 0.15}, false},
		{"all train", SplitRatios{1, 0, 0}, false},
		{"thirds", SplitRatios{1.0 / 3, 1.0 / 3, 1.0 / 3}, false},
		{"negative", SplitRatios{1.2, -0.1, -0.1}, true},
		{"short", SplitRatios{0.5, 0.2, 0.2}, true},
		{"over", SplitRatios{0.7, 0.2, 0.2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateRatios(tt.ratios)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
