package mqtt

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/tphakala/scenestore/internal/errors"
	"github.com/tphakala/scenestore/internal/logger"
	"github.com/tphakala/scenestore/internal/observability/metrics"
)

// client implements the Client interface on top of paho.
type client struct {
	config         Config
	internalClient paho.Client
	mu             sync.Mutex
	metrics        *metrics.MQTTMetrics
	logger         logger.Logger
}

// NewClient creates a new MQTT client. A nil metrics disables instrumentation.
func NewClient(cfg Config, m *metrics.MQTTMetrics, log logger.Logger) (Client, error) {
	if cfg.Broker == "" {
		return nil, mqttError(fmt.Errorf("mqtt broker is not configured"), errors.CategoryConfiguration)
	}
	u, err := url.Parse(cfg.Broker)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, mqttError(fmt.Errorf("invalid broker URL %q", cfg.Broker), errors.CategoryConfiguration)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "scenestore"
	}
	// brokers drop the older session when two clients share an id
	cfg.ClientID = cfg.ClientID + "-" + uuid.NewString()[:8]

	if log == nil {
		log = logger.Global().Module("mqtt")
	}

	return &client{
		config:  cfg,
		metrics: m,
		logger:  log.With(logger.String("broker", u.Redacted())),
	}, nil
}

// Connect attempts to establish a connection to the MQTT broker.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internalClient != nil && c.internalClient.IsConnected() {
		return nil
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	// keep retrying the first connection after Connect gives up waiting
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(c.config.ConnectRetryDelay)
	opts.SetMaxReconnectInterval(c.config.MaxReconnectDelay)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.internalClient = paho.NewClient(opts)

	token := c.internalClient.Connect()
	if err := waitToken(ctx, token, c.config.ConnectTimeout); err != nil {
		c.metrics.RecordTransportError(metrics.MQTTStageConnect)
		return mqttError(fmt.Errorf("connection error: %w", err), errors.CategoryMQTTConnection)
	}

	c.metrics.RecordConnection(true)
	return nil
}

// Publish sends a message to the specified topic on the MQTT broker.
func (c *client) Publish(ctx context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnectedLocked() {
		return mqttError(fmt.Errorf("not connected to MQTT broker"), errors.CategoryMQTTPublish)
	}

	start := time.Now()
	token := c.internalClient.Publish(topic, c.config.QoS, c.config.Retain, payload)
	if err := waitToken(ctx, token, c.config.PublishTimeout); err != nil {
		c.metrics.RecordTransportError(metrics.MQTTStagePublish)
		return mqttError(fmt.Errorf("publish to %s failed: %w", topic, err), errors.CategoryMQTTPublish)
	}

	c.metrics.ObservePublish(len(payload), time.Since(start))

	c.logger.Trace("published event", logger.String("topic", topic), logger.Int("bytes", len(payload)))
	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnectedLocked()
}

func (c *client) isConnectedLocked() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internalClient == nil {
		return
	}
	c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
	c.metrics.RecordConnection(false)
	c.internalClient = nil
}

func (c *client) onConnect(paho.Client) {
	c.logger.Info("connected to MQTT broker")
	c.metrics.RecordConnection(true)
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	c.logger.Warn("connection to MQTT broker lost", logger.Error(err))
	c.metrics.RecordConnection(false)
	c.metrics.RecordTransportError(metrics.MQTTStageConnectionLost)
}

func (c *client) onReconnecting(paho.Client, *paho.ClientOptions) {
	c.logger.Debug("reconnecting to MQTT broker")
	c.metrics.RecordReconnect()
}

// waitToken blocks until token completes, timeout elapses or ctx is done.
func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func mqttError(err error, category errors.ErrorCategory) error {
	return errors.New(err).
		Component("mqtt").
		Category(category).
		Build()
}
