package datastore

import (
	"context"
	"iter"

	"github.com/tphakala/scenestore/internal/datastore/repository"
)

// PageFetcher returns up to limit rows after the cursor. A nil cursor starts
// from the beginning.
type PageFetcher[T, C any] = func(ctx context.Context, repos *repository.Set, after *C, limit int) ([]T, error)

// Paginate turns a keyset page query into a lazy sequence. Each page runs as
// its own bounded query, and ranging over the sequence again restarts it
// from the first row. Iteration stops at the first error, which is yielded
// with a zero value.
func Paginate[T, C any](ctx context.Context, s *Store, operation string, fetch PageFetcher[T, C], cursorOf func(T) *C) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var after *C
		for {
			var page []T
			err := s.Read(ctx, operation, func(ctx context.Context, repos *repository.Set) error {
				var err error
				page, err = fetch(ctx, repos, after, s.pageSize)
				return err
			})
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}

			for _, row := range page {
				if !yield(row, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			after = cursorOf(page[len(page)-1])
		}
	}
}

// failed returns a sequence yielding only err.
func failed[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}
