package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tphakala/scenestore/internal/events"
	"github.com/tphakala/scenestore/internal/logger"
	"github.com/tphakala/scenestore/internal/observability/metrics"
)

// Publisher forwards lifecycle events from the event bus to a broker. It
// implements events.EventConsumer.
type Publisher struct {
	client  Client
	topic   string
	metrics *metrics.MQTTMetrics
	logger  logger.Logger
}

var _ events.EventConsumer = (*Publisher)(nil)

// NewPublisher returns a consumer publishing to baseTopic/<event type>. A nil
// metrics disables per-event counting.
func NewPublisher(c Client, baseTopic string, m *metrics.MQTTMetrics, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.Global().Module("mqtt")
	}
	return &Publisher{
		client: c,
		topic:   strings.TrimSuffix(baseTopic, "/"),
		metrics: m,
		logger:  log,
	}
}

// Name identifies the consumer on the event bus.
func (p *Publisher) Name() string { return "mqtt" }

// TopicFor returns the topic an event type is published to.
func (p *Publisher) TopicFor(t events.EventType) string {
	return p.topic + "/" + string(t)
}

// ProcessEvent publishes one event as JSON.
func (p *Publisher) ProcessEvent(event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}

	// the client applies its own publish timeout
	err = p.client.Publish(context.Background(), p.TopicFor(event.Type), payload)
	p.metrics.RecordEvent(string(event.Type), err)
	if err != nil {
		p.logger.Warn("failed to publish event",
			logger.String("event_type", string(event.Type)),
			logger.Uint64("scene_id", event.SceneID),
			logger.String("trace_id", event.TraceID),
			logger.Error(err))
		return err
	}
	return nil
}
