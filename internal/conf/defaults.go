package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/scenestore/internal/logger"
)

// Default values shared with callers that build Settings by hand.
const (
	DefaultSQLitePath       = "scenestore.db"
	DefaultOperationTimeout = 30 * time.Second
	DefaultSlowQuery        = 200 * time.Millisecond
	DefaultTrainRatio       = 0.70
	DefaultValRatio         = 0.15
	DefaultTestRatio        = 0.15
	DefaultEventBufferSize  = 1000
	DefaultEventWorkers     = 2
	DefaultMQTTTopic        = "scenestore/events"
)

// setDefaultConfig sets default values for every configuration key. Every
// key needs a default so AutomaticEnv can override it during Unmarshal.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	// Database
	v.SetDefault("database.type", DatabaseSQLite)
	v.SetDefault("database.sqlite.path", DefaultSQLitePath)
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", "3306")
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.database", "scenestore")
	v.SetDefault("database.slowquerythreshold", DefaultSlowQuery)
	v.SetDefault("database.operationtimeout", DefaultOperationTimeout)

	// Logging
	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	// Partition
	v.SetDefault("partition.seed", 0)
	v.SetDefault("partition.ratios.train", DefaultTrainRatio)
	v.SetDefault("partition.ratios.val", DefaultValRatio)
	v.SetDefault("partition.ratios.test", DefaultTestRatio)

	// Events
	v.SetDefault("events.buffersize", DefaultEventBufferSize)
	v.SetDefault("events.workers", DefaultEventWorkers)
	v.SetDefault("events.mqtt.enabled", false)
	v.SetDefault("events.mqtt.broker", "")
	v.SetDefault("events.mqtt.topic", DefaultMQTTTopic)
	v.SetDefault("events.mqtt.clientid", "")
	v.SetDefault("events.mqtt.username", "")
	v.SetDefault("events.mqtt.password", "")
	v.SetDefault("events.mqtt.qos", 1)

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")
}
