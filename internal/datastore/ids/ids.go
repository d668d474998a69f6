// Package ids allocates record identifiers.
//
// Each entity kind has its own namespace. Identifiers start at 1 and are
// strictly increasing within a kind; the value space ends at math.MaxInt64 so
// every identifier fits a signed BIGINT column.
package ids

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/tphakala/scenestore/internal/errors"
)

// Kind identifies an identifier namespace.
type Kind uint8

const (
	KindScene Kind = iota
	KindDetection
	KindDescription
	KindAnnotation
	KindMembership

	kindCount
)

// MaxID is the largest identifier ever issued.
const MaxID = uint64(math.MaxInt64)

var kindNames = [kindCount]string{
	KindScene:       "scene",
	KindDetection:   "detection",
	KindDescription: "description",
	KindAnnotation:  "annotation",
	KindMembership:  "membership",
}

// String returns the persisted name of the kind.
func (k Kind) String() string {
	if k >= kindCount {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k < kindCount
}

// Kinds returns all declared kinds in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := range kindCount {
		kinds = append(kinds, k)
	}
	return kinds
}

// ErrExhausted is returned once a namespace has issued MaxID.
var ErrExhausted = errors.New(errors.NewStd("identifier space exhausted")).
	Component("datastore.ids").
	Category(errors.CategoryLimit).
	Priority(errors.PriorityCritical).
	Build()

// Allocator issues identifiers. Implementations must be safe for concurrent
// use and never return the same value twice for a kind.
type Allocator interface {
	Next(kind Kind) (uint64, error)
}

// Sequence is an in-process Allocator backed by one atomic counter per kind.
// The zero value is ready to use and starts every kind at 1.
type Sequence struct {
	counters [kindCount]atomic.Uint64
}

// NewSequence returns an empty Sequence.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next identifier for kind.
func (s *Sequence) Next(kind Kind) (uint64, error) {
	if !kind.Valid() {
		return 0, errors.Newf("unknown identifier kind %d", uint8(kind)).
			Component("datastore.ids").
			Category(errors.CategoryValidation).
			Build()
	}

	counter := &s.counters[kind]
	for {
		current := counter.Load()
		if current >= MaxID {
			return 0, ErrExhausted
		}
		if counter.CompareAndSwap(current, current+1) {
			return current + 1, nil
		}
	}
}

// Seed raises the counter for kind so the next identifier is above floor.
// Seeding with a lower value than the current one has no effect.
func (s *Sequence) Seed(kind Kind, floor uint64) {
	if !kind.Valid() {
		return
	}
	counter := &s.counters[kind]
	for {
		current := counter.Load()
		if floor <= current {
			return
		}
		if counter.CompareAndSwap(current, floor) {
			return
		}
	}
}

// Current returns the last identifier issued for kind, or the seeded floor.
func (s *Sequence) Current(kind Kind) uint64 {
	if !kind.Valid() {
		return 0
	}
	return s.counters[kind].Load()
}

var _ Allocator = (*Sequence)(nil)
