package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/scenestore/internal/conf"
	"github.com/tphakala/scenestore/internal/datastore/ids"
	"github.com/tphakala/scenestore/internal/datastore/repository"
	"github.com/tphakala/scenestore/internal/events"
	"github.com/tphakala/scenestore/internal/logger"
	"github.com/tphakala/scenestore/internal/observability/metrics"
)

// DefaultPageSize is the number of rows fetched per query by the lazy
// listing sequences.
const DefaultPageSize = 500

// Store is the entry point for all scenestore operations. It is safe for
// concurrent use.
type Store struct {
	manager Manager
	db      *gorm.DB
	repos   *repository.Set

	allocator ids.Allocator
	publisher events.Publisher
	metrics   *metrics.DatastoreMetrics
	logger    logger.Logger

	opTimeout time.Duration
	pageSize  int
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithAllocator replaces the in-process identifier sequence, for example
// with an allocator coordinating several processes.
func WithAllocator(a ids.Allocator) Option {
	return func(s *Store) { s.allocator = a }
}

// WithPublisher sets the destination of post-commit lifecycle events.
func WithPublisher(p events.Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.DatastoreMetrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithOperationTimeout bounds operations whose context carries no deadline.
// Zero disables the bound.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Store) { s.opTimeout = d }
}

// WithPageSize sets the page size of the listing sequences.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithClock overrides the time source for default timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open initializes the schema on m and returns a ready Store. The default
// allocator is seeded from the persisted high-water marks so identifiers
// keep increasing across restarts.
func Open(ctx context.Context, m Manager, opts ...Option) (*Store, error) {
	s := &Store{
		manager:   m,
		db:        m.DB(),
		repos:     repository.NewSet(m.DB()),
		opTimeout: conf.DefaultOperationTimeout,
		pageSize:  DefaultPageSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Global().Module("datastore")
	}

	if err := m.Initialize(); err != nil {
		return nil, classifyError("initialize", err)
	}

	if s.allocator == nil {
		seq := ids.NewSequence()
		if err := s.seedSequence(ctx, seq); err != nil {
			return nil, err
		}
		s.allocator = seq
	}

	s.logger.Info("datastore opened",
		logger.String("path", m.Path()),
		logger.Bool("mysql", m.IsMySQL()))

	return s, nil
}

// OpenFromSettings creates the configured backend and opens a Store on it.
func OpenFromSettings(ctx context.Context, settings *conf.Settings, log logger.Logger, opts ...Option) (*Store, error) {
	m, err := NewManager(settings.Database, log)
	if err != nil {
		return nil, classifyError("open", err)
	}
	opts = append([]Option{
		WithLogger(log),
		WithOperationTimeout(settings.Database.OperationTimeout),
	}, opts...)

	s, err := Open(ctx, m, opts...)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return s, nil
}

// seedSequence raises each counter to the larger of the persisted
// high-water mark and the current table maximum.
func (s *Store) seedSequence(ctx context.Context, seq *ids.Sequence) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	maxima := map[ids.Kind]func(context.Context) (uint64, error){
		ids.KindScene:       s.repos.Scenes.MaxID,
		ids.KindDetection:   s.repos.Detections.MaxID,
		ids.KindDescription: s.repos.Descriptions.MaxID,
		ids.KindAnnotation:  s.repos.Annotations.MaxID,
		ids.KindMembership:  s.repos.Memberships.MaxID,
	}

	for _, kind := range ids.Kinds() {
		highWater, err := s.repos.Sequences.HighWater(ctx, kind.String())
		if err != nil {
			return classifyError("seed_sequence", err)
		}
		tableMax, err := maxima[kind](ctx)
		if err != nil {
			return classifyError("seed_sequence", err)
		}
		seq.Seed(kind, max(highWater, tableMax))
		s.logger.Debug("identifier sequence seeded",
			logger.String("kind", kind.String()),
			logger.Uint64("next_after", seq.Current(kind)))
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if err := s.manager.Close(); err != nil {
		return fmt.Errorf("failed to close datastore: %w", err)
	}
	return nil
}

// Manager returns the backend manager.
func (s *Store) Manager() Manager {
	return s.manager
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// PageSize returns the page size used by the listing sequences.
func (s *Store) PageSize() int {
	return s.pageSize
}

// Logger returns the store logger.
func (s *Store) Logger() logger.Logger {
	return s.logger
}

// opContext applies the operation timeout when ctx has no deadline.
func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// Read runs fn against the non-transactional repositories under the
// operation timeout and records the outcome.
func (s *Store) Read(ctx context.Context, operation string, fn func(ctx context.Context, repos *repository.Set) error) error {
	start := time.Now()
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	err := classifyError(operation, fn(ctx, s.repos))
	s.observe(operation, start, err)
	return err
}

// observe records metrics for a finished operation.
func (s *Store) observe(operation string, start time.Time, err error) {
	s.metrics.RecordOperation(operation, categoryLabel(err), time.Since(start).Seconds())
}

// publish hands committed events to the publisher. It never blocks.
func (s *Store) publish(evs []events.Event) {
	if s.publisher == nil {
		return
	}
	for _, ev := range evs {
		if !s.publisher.TryPublish(ev) {
			s.logger.Debug("lifecycle event not published",
				logger.String("event_type", string(ev.Type)),
				logger.Uint64("scene_id", ev.SceneID))
		}
	}
}
