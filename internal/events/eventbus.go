package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/scenestore/internal/logger"
)

// Default event bus sizing.
const (
	DefaultBufferSize = 1000
	DefaultWorkers    = 2
)

// Config holds event bus configuration
type Config struct {
	BufferSize int
	Workers    int
}

// DefaultConfig returns the default event bus configuration
func DefaultConfig() *Config {
	return &Config{
		BufferSize: DefaultBufferSize,
		Workers:    DefaultWorkers,
	}
}

// EventBus provides asynchronous event processing with non-blocking guarantees
type EventBus struct {
	eventChan chan Event

	bufferSize int
	workers    int

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool

	// mu guards consumers and closed. TryPublish holds the read lock while
	// sending so Shutdown never closes the channel under a sender.
	mu        sync.RWMutex
	consumers []EventConsumer
	closed    bool

	stats EventBusStats

	logger logger.Logger
}

// NewEventBus creates an event bus. Workers start when the first consumer
// registers.
func NewEventBus(config *Config, log logger.Logger) (*EventBus, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BufferSize <= 0 {
		return nil, fmt.Errorf("event bus buffer size must be positive, got %d", config.BufferSize)
	}
	if config.Workers <= 0 {
		return nil, fmt.Errorf("event bus worker count must be positive, got %d", config.Workers)
	}
	if log == nil {
		log = logger.Global().Module("events")
	}

	ctx, cancel := context.WithCancel(context.Background())
	eb := &EventBus{
		eventChan:  make(chan Event, config.BufferSize),
		bufferSize: config.BufferSize,
		workers:    config.Workers,
		ctx:        ctx,
		cancel:     cancel,
		logger:     log,
	}

	eb.logger.Info("event bus initialized",
		logger.Int("buffer_size", config.BufferSize),
		logger.Int("workers", config.Workers))

	return eb, nil
}

// RegisterConsumer adds a new event consumer
func (eb *EventBus) RegisterConsumer(consumer EventConsumer) error {
	if eb == nil {
		return fmt.Errorf("event bus not initialized")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return fmt.Errorf("event bus is shut down")
	}

	for _, existing := range eb.consumers {
		if existing.Name() == consumer.Name() {
			return fmt.Errorf("consumer %s already registered", consumer.Name())
		}
	}

	eb.consumers = append(eb.consumers, consumer)
	eb.logger.Info("registered event consumer", logger.String("consumer", consumer.Name()))

	if len(eb.consumers) == 1 {
		eb.start()
	}

	return nil
}

// TryPublish attempts to publish an event without blocking.
// Returns true if the event was accepted, false if dropped.
func (eb *EventBus) TryPublish(event Event) bool {
	if eb == nil || !eb.running.Load() {
		return false
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed || len(eb.consumers) == 0 {
		return false
	}

	select {
	case eb.eventChan <- event:
		atomic.AddUint64(&eb.stats.EventsReceived, 1)
		return true
	default:
		atomic.AddUint64(&eb.stats.EventsDropped, 1)
		eb.logger.Debug("event dropped due to full buffer",
			logger.String("event_type", string(event.Type)),
			logger.Uint64("scene_id", event.SceneID))
		return false
	}
}

// start launches the worker goroutines. Callers hold eb.mu.
func (eb *EventBus) start() {
	if eb.running.Swap(true) {
		return
	}

	eb.logger.Debug("starting event bus workers", logger.Int("count", eb.workers))

	for i := range eb.workers {
		eb.wg.Add(1)
		go eb.worker(i)
	}
}

func (eb *EventBus) worker(id int) {
	defer eb.wg.Done()

	log := eb.logger.With(logger.Int("worker_id", id))

	for {
		if eb.ctx.Err() != nil {
			log.Debug("worker stopping due to context cancellation")
			return
		}

		select {
		case <-eb.ctx.Done():
			log.Debug("worker stopping due to context cancellation")
			return

		case event, ok := <-eb.eventChan:
			if !ok {
				log.Debug("worker stopping due to channel closure")
				return
			}
			eb.processEvent(event, log)
		}
	}
}

// processEvent sends the event to all registered consumers
func (eb *EventBus) processEvent(event Event, log logger.Logger) {
	eb.mu.RLock()
	consumers := make([]EventConsumer, len(eb.consumers))
	copy(consumers, eb.consumers)
	eb.mu.RUnlock()

	for _, consumer := range consumers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					atomic.AddUint64(&eb.stats.ConsumerErrors, 1)
					log.Error("consumer panicked",
						logger.String("consumer", consumer.Name()),
						logger.Any("panic", r),
						logger.String("event_type", string(event.Type)))
				}
			}()

			if err := consumer.ProcessEvent(event); err != nil {
				atomic.AddUint64(&eb.stats.ConsumerErrors, 1)
				log.Error("consumer error",
					logger.String("consumer", consumer.Name()),
					logger.Error(err),
					logger.String("event_type", string(event.Type)))
				return
			}
			atomic.AddUint64(&eb.stats.EventsProcessed, 1)
		}()
	}
}

// Shutdown stops accepting events and lets the workers drain the buffer.
// Events still queued when timeout expires are discarded.
func (eb *EventBus) Shutdown(timeout time.Duration) error {
	if eb == nil {
		return nil
	}

	eb.mu.Lock()
	if eb.closed {
		eb.mu.Unlock()
		return nil
	}
	eb.closed = true
	eb.running.Store(false)
	close(eb.eventChan)
	eb.mu.Unlock()

	eb.logger.Info("shutting down event bus", logger.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		eb.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		eb.cancel()
		eb.logger.Info("event bus shutdown complete")
		return nil
	case <-timer.C:
		eb.cancel()
		eb.logger.Warn("event bus shutdown timeout exceeded",
			logger.Int("pending", len(eb.eventChan)))
		return fmt.Errorf("event bus shutdown timeout exceeded")
	}
}

// GetStats returns current event bus statistics
func (eb *EventBus) GetStats() EventBusStats {
	if eb == nil {
		return EventBusStats{}
	}

	return EventBusStats{
		EventsReceived:  atomic.LoadUint64(&eb.stats.EventsReceived),
		EventsProcessed: atomic.LoadUint64(&eb.stats.EventsProcessed),
		EventsDropped:   atomic.LoadUint64(&eb.stats.EventsDropped),
		ConsumerErrors:  atomic.LoadUint64(&eb.stats.ConsumerErrors),
	}
}

// StatsSource adapts GetStats to the metrics collector signature.
func (eb *EventBus) StatsSource() func() (published, dropped, processed, failed uint64) {
	return func() (uint64, uint64, uint64, uint64) {
		s := eb.GetStats()
		return s.EventsReceived, s.EventsDropped, s.EventsProcessed, s.ConsumerErrors
	}
}
