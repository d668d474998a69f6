// Package app wires configuration, logging, telemetry, metrics, the event
// bus and the stores into one runtime for the command line tools.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/tphakala/scenestore/internal/buildinfo"
	"github.com/tphakala/scenestore/internal/conf"
	"github.com/tphakala/scenestore/internal/datastore"
	"github.com/tphakala/scenestore/internal/errors"
	"github.com/tphakala/scenestore/internal/events"
	"github.com/tphakala/scenestore/internal/logger"
	"github.com/tphakala/scenestore/internal/mqtt"
	"github.com/tphakala/scenestore/internal/observability"
	"github.com/tphakala/scenestore/internal/observability/metrics"
	"github.com/tphakala/scenestore/internal/partition"
)

// Shutdown timeouts
const (
	eventBusShutdownTimeout  = 5 * time.Second
	telemetryShutdownTimeout = 2 * time.Second
)

// App is a running scenestore instance.
type App struct {
	Settings   *conf.Settings
	Build      *buildinfo.Context
	Log        logger.Logger
	Metrics    *observability.Metrics
	Store      *datastore.Store
	Partitions *partition.Manager

	central *logger.CentralLogger
	bus     *events.EventBus
	mqtt    mqtt.Client
}

// Start initializes every subsystem in dependency order. On failure the
// subsystems already started are shut down again.
func Start(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) (a *App, err error) {
	a = &App{Settings: settings, Build: build}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	if err := a.initLogging(); err != nil {
		return a, err
	}
	a.Log.Info("starting scenestore",
		logger.String("version", build.GetVersion()),
		logger.String("instance_id", build.InstanceID))

	if err := a.initTelemetry(); err != nil {
		return a, err
	}
	if err := a.initMetrics(); err != nil {
		return a, err
	}
	publisher, err := a.initEvents(ctx)
	if err != nil {
		return a, err
	}

	opts := []datastore.Option{datastore.WithPublisher(publisher)}
	partitionOpts := []partition.Option{
		partition.WithDefaults(settings.Partition),
		partition.WithLogger(a.central.Module("partition")),
	}
	if a.Metrics != nil {
		opts = append(opts, datastore.WithMetrics(a.Metrics.Datastore))
		partitionOpts = append(partitionOpts, partition.WithMetrics(a.Metrics.Partition))
	}

	a.Store, err = datastore.OpenFromSettings(ctx, settings, a.central.Module("datastore"), opts...)
	if err != nil {
		return a, err
	}
	a.Partitions = partition.NewManager(a.Store, partitionOpts...)
	return a, nil
}

func (a *App) initLogging() error {
	cfg := a.Settings.Logging
	if a.Settings.Debug {
		cfg.DefaultLevel = "debug"
	}
	cl, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(cl)
	a.central = cl
	a.Log = cl.Module("app")
	return nil
}

func (a *App) initTelemetry() error {
	if !a.Settings.Telemetry.Enabled {
		return nil
	}
	if err := errors.InitSentry(a.Settings.Telemetry.DSN, a.Build.Release()); err != nil {
		return err
	}
	a.Log.Info("error telemetry enabled")
	return nil
}

func (a *App) initMetrics() error {
	if !a.Settings.Metrics.Enabled {
		return nil
	}
	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	a.Metrics = m
	return nil
}

// initEvents starts the event bus and, when configured, the MQTT consumer.
// Without consumers the bus drops events, so the returned publisher is
// always safe to use.
func (a *App) initEvents(ctx context.Context) (events.Publisher, error) {
	bus, err := events.NewEventBus(&events.Config{
		BufferSize: a.Settings.Events.BufferSize,
		Workers:    a.Settings.Events.Workers,
	}, a.central.Module("events"))
	if err != nil {
		return nil, err
	}
	a.bus = bus

	if a.Metrics != nil {
		if err := a.Metrics.RegisterEventBus(bus.StatsSource()); err != nil {
			return nil, err
		}
	}

	mqttSettings := a.Settings.Events.MQTT
	if !mqttSettings.Enabled {
		return bus, nil
	}

	cfg := mqtt.ConfigFromSettings(mqttSettings)
	client, err := mqtt.NewClient(cfg, a.mqttMetrics(), a.central.Module("mqtt"))
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		// the client keeps retrying in the background
		a.Log.Warn("mqtt broker unreachable, retrying in background",
			logger.Error(err))
	}
	a.mqtt = client

	if err := bus.RegisterConsumer(mqtt.NewPublisher(client, cfg.Topic, a.mqttMetrics(), a.central.Module("mqtt"))); err != nil {
		return nil, err
	}
	return bus, nil
}

func (a *App) mqttMetrics() *metrics.MQTTMetrics {
	if a.Metrics == nil {
		return nil
	}
	return a.Metrics.MQTT
}

// Close drains pending events and releases every subsystem. It is safe to
// call on a partially started App.
func (a *App) Close() {
	if a.bus != nil {
		if err := a.bus.Shutdown(eventBusShutdownTimeout); err != nil && a.Log != nil {
			a.Log.Warn("event bus shutdown incomplete", logger.Error(err))
		}
	}
	if a.mqtt != nil {
		a.mqtt.Disconnect()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil && a.Log != nil {
			a.Log.Error("failed to close datastore", logger.Error(err))
		}
	}
	errors.FlushTelemetry(telemetryShutdownTimeout)
	if a.central != nil {
		_ = a.central.Close()
	}
}

// Run starts an App, passes it to fn and closes it when fn returns.
func Run(ctx context.Context, settings *conf.Settings, build *buildinfo.Context, fn func(ctx context.Context, a *App) error) error {
	a, err := Start(ctx, settings, build)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
