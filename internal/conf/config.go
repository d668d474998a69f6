// Package conf loads scenestore settings from config.yaml and SCENESTORE_*
// environment variables.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tphakala/scenestore/internal/errors"
	"github.com/tphakala/scenestore/internal/logger"
)

// Database backends
const (
	DatabaseSQLite = "sqlite"
	DatabaseMySQL  = "mysql"
)

// EnvPrefix is prepended to every environment override, for example
// SCENESTORE_DATABASE_SQLITE_PATH.
const EnvPrefix = "SCENESTORE"

// SQLiteSettings configures the embedded backend
type SQLiteSettings struct {
	Path string // database file path
}

// MySQLSettings configures the networked backend
type MySQLSettings struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DatabaseSettings contains storage backend settings
type DatabaseSettings struct {
	Type               string        // sqlite or mysql
	SQLite             SQLiteSettings
	MySQL              MySQLSettings
	SlowQueryThreshold time.Duration // 0 disables slow query warnings
	OperationTimeout   time.Duration // applied when the caller sets no deadline
}

// SplitRatios are the train/val/test fractions used by batch partitioning
type SplitRatios struct {
	Train float64
	Val   float64
	Test  float64
}

// Sum returns the total of all three fractions
func (r SplitRatios) Sum() float64 {
	return r.Train + r.Val + r.Test
}

// PartitionSettings contains dataset split settings
type PartitionSettings struct {
	Seed   int64       // seed for reproducible batch assignment
	Ratios SplitRatios // default ratios for AssignSplitBatch
}

// MQTTSettings configures the lifecycle event publisher
type MQTTSettings struct {
	Enabled  bool
	Broker   string // tcp://host:1883
	Topic    string // base topic, event type is appended
	ClientID string
	Username string
	Password string
	QoS      byte
}

// EventsSettings configures the post-commit event bus
type EventsSettings struct {
	BufferSize int
	Workers    int
	MQTT       MQTTSettings
}

// MetricsSettings toggles Prometheus instrumentation
type MetricsSettings struct {
	Enabled bool
}

// TelemetrySettings configures Sentry error reporting
type TelemetrySettings struct {
	Enabled bool
	DSN     string
}

// Settings contains all configuration options for scenestore.
type Settings struct {
	Debug     bool
	Database  DatabaseSettings
	Logging   logger.LoggingConfig
	Partition PartitionSettings
	Events    EventsSettings
	Metrics   MetricsSettings
	Telemetry TelemetrySettings
}

// Load reads configuration from configFile, or from config.yaml in the
// default search paths when configFile is empty. A missing config.yaml is not
// an error; defaults and environment variables still apply.
func Load(configFile string) (*Settings, error) {
	return LoadWithFlags(configFile, nil)
}

// LoadWithFlags is Load with command line overrides. Each flag is bound to
// the settings key it maps to, for example "database.sqlite.path", and takes
// precedence over the environment and the config file when set explicitly.
func LoadWithFlags(configFile string, flags map[string]*pflag.Flag) (*Settings, error) {
	v := viper.New()
	if err := initViper(v, configFile); err != nil {
		return nil, err
	}

	for key, flag := range flags {
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, errors.New(fmt.Errorf("error binding flag %s: %w", flag.Name, err)).
				Component("configuration").
				Category(errors.CategoryConfiguration).
				Context("key", key).
				Build()
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// initViper registers defaults and environment bindings, then reads the
// configuration file.
func initViper(v *viper.Viper, configFile string) error {
	setDefaultConfig(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.New(fmt.Errorf("error reading config file %s: %w", configFile, err)).
				Component("configuration").
				Category(errors.CategoryConfiguration).
				Context("config_file", configFile).
				Build()
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range DefaultConfigPaths() {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.New(fmt.Errorf("fatal error reading config file: %w", err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// DefaultConfigPaths returns the config.yaml search path in lookup order.
func DefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "scenestore"))
	}
	return append(paths, "/etc/scenestore")
}
