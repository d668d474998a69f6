package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/scenestore/internal/datastore/ids"
	"github.com/tphakala/scenestore/internal/datastore/repository"
	"github.com/tphakala/scenestore/internal/events"
	"github.com/tphakala/scenestore/internal/logger"
)

// Tx is the unit of work handed to a transaction body. Its repositories see
// the transaction's own writes; nothing is visible to other callers until
// the body returns nil and the commit succeeds.
type Tx struct {
	ctx     context.Context
	repos   *repository.Set
	store   *Store
	traceID string

	allocated map[ids.Kind]uint64
	events    []events.Event
}

// Context returns the transaction context, carrying the trace id and the
// operation deadline.
func (tx *Tx) Context() context.Context { return tx.ctx }

// Repos returns repositories bound to the transaction.
func (tx *Tx) Repos() *repository.Set { return tx.repos }

// TraceID returns the trace id of the unit of work.
func (tx *Tx) TraceID() string { return tx.traceID }

// Now returns the store clock's current time.
func (tx *Tx) Now() time.Time { return tx.store.now() }

// NextID allocates an identifier. The persisted high-water mark is raised
// before commit so identifiers are never reissued after a restart.
func (tx *Tx) NextID(kind ids.Kind) (uint64, error) {
	id, err := tx.store.allocator.Next(kind)
	if err != nil {
		return 0, err
	}
	if id > tx.allocated[kind] {
		tx.allocated[kind] = id
	}
	return id, nil
}

// Emit queues an event for publication after commit. Events of a rolled
// back transaction are discarded.
func (tx *Tx) Emit(ev events.Event) {
	ev.TraceID = tx.traceID
	tx.events = append(tx.events, ev)
}

func (tx *Tx) raiseSequences() error {
	for kind, id := range tx.allocated {
		if err := tx.repos.Sequences.Raise(tx.ctx, kind.String(), id); err != nil {
			return err
		}
	}
	return nil
}

// WithTransaction runs fn in one database transaction. All writes made
// through tx.Repos() commit together or not at all.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *Tx) error) error {
	return s.Transaction(ctx, "transaction", fn)
}

// Transaction is WithTransaction with an operation name used for metrics
// and logging.
func (s *Store) Transaction(ctx context.Context, operation string, fn func(tx *Tx) error) error {
	start := time.Now()
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	ctx, traceID := logger.EnsureTraceID(ctx)

	log := s.logger.WithContext(ctx).With(logger.String("operation", operation))

	tx := &Tx{
		ctx:       ctx,
		store:     s,
		traceID:   traceID,
		allocated: make(map[ids.Kind]uint64),
	}

	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		tx.repos = repository.NewSet(gtx)
		if err := fn(tx); err != nil {
			return err
		}
		return tx.raiseSequences()
	})

	elapsed := time.Since(start)
	s.metrics.RecordTransaction(operation, err == nil, elapsed.Seconds())

	if err != nil {
		err = classifyError(operation, err)
		s.observe(operation, start, err)
		log.Debug("transaction rolled back",
			logger.Duration("duration", elapsed),
			logger.Error(err))
		return err
	}

	s.observe(operation, start, nil)
	log.Trace("transaction committed",
		logger.Duration("duration", elapsed),
		logger.Int("events", len(tx.events)))

	s.publish(tx.events)
	return nil
}

// View runs fn in a read-only transaction so multi-table reads observe one
// consistent snapshot.
func (s *Store) View(ctx context.Context, operation string, fn func(ctx context.Context, repos *repository.Set) error) error {
	start := time.Now()
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(ctx, repository.NewSet(gtx))
	})
	err = classifyError(operation, err)
	s.observe(operation, start, err)
	return err
}
