package conf

import (
	"fmt"
	"math"
	"strings"

	"github.com/tphakala/scenestore/internal/errors"
)

// ratioTolerance absorbs float rounding in values such as 0.7+0.15+0.15
const ratioTolerance = 1e-9

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// Validate checks the settings for values the stores cannot run with.
func (s *Settings) Validate() error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateDatabaseSettings(&s.Database)...)
	if err := ValidateRatios(s.Partition.Ratios); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	ve.Errors = append(ve.Errors, validateEventsSettings(&s.Events)...)

	if s.Telemetry.Enabled && s.Telemetry.DSN == "" {
		ve.Errors = append(ve.Errors, "telemetry is enabled but no DSN is set")
	}

	if len(ve.Errors) > 0 {
		return errors.New(ve).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

func validateDatabaseSettings(settings *DatabaseSettings) []string {
	var errs []string

	switch settings.Type {
	case DatabaseSQLite:
		if settings.SQLite.Path == "" {
			errs = append(errs, "database.sqlite.path must not be empty")
		}
	case DatabaseMySQL:
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" {
			errs = append(errs, "database.mysql host and database must be set")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown database type %q, must be %s or %s", settings.Type, DatabaseSQLite, DatabaseMySQL))
	}

	if settings.OperationTimeout < 0 {
		errs = append(errs, "database.operationtimeout must not be negative")
	}

	return errs
}

// ValidateRatios checks that all ratios are finite, non-negative and sum to 1.
func ValidateRatios(r SplitRatios) error {
	for _, value := range []float64{r.Train, r.Val, r.Test} {
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
			return fmt.Errorf("split ratios must be finite and non-negative, got %v/%v/%v", r.Train, r.Val, r.Test)
		}
	}
	if math.Abs(r.Sum()-1) > ratioTolerance {
		return fmt.Errorf("split ratios must sum to 1, got %v", r.Sum())
	}
	return nil
}

func validateEventsSettings(settings *EventsSettings) []string {
	var errs []string

	if settings.BufferSize <= 0 {
		errs = append(errs, "events.buffersize must be positive")
	}
	if settings.Workers <= 0 {
		errs = append(errs, "events.workers must be positive")
	}

	if settings.MQTT.Enabled {
		if settings.MQTT.Broker == "" {
			errs = append(errs, "events.mqtt.broker must be set when MQTT is enabled")
		}
		if settings.MQTT.Topic == "" {
			errs = append(errs, "events.mqtt.topic must be set when MQTT is enabled")
		}
		if settings.MQTT.QoS > 2 {
			errs = append(errs, "events.mqtt.qos must be 0, 1 or 2")
		}
	}

	return errs
}
