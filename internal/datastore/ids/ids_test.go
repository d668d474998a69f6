package ids

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/scenestore/internal/errors"
)

func TestSequenceStartsAtOne(t *testing.T) {
	t.Parallel()

	var seq Sequence
	for _, kind := range Kinds() {
		id, err := seq.Next(kind)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), id, kind.String())
	}
}

func TestSequenceKindsAreIndependent(t *testing.T) {
	t.Parallel()

	seq := NewSequence()
	for range 3 {
		_, err := seq.Next(KindScene)
		require.NoError(t, err)
	}

	id, err := seq.Next(KindDetection)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, uint64(3), seq.Current(KindScene))
}

func TestSequenceConcurrentCallersGetUniqueIDs(t *testing.T) {
	t.Parallel()

	const (
		workers   = 16
		perWorker = 500
	)

	seq := NewSequence()
	var (
		mu   sync.Mutex
		seen = make(map[uint64]struct{}, workers*perWorker)
	)

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			local := make([]uint64, 0, perWorker)
			var last uint64
			for range perWorker {
				id, err := seq.Next(KindAnnotation)
				if err != nil {
					return err
				}
				if id <= last {
					return errors.Newf("identifier %d not above %d", id, last).Build()
				}
				last = id
				local = append(local, id)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, uint64(workers*perWorker), seq.Current(KindAnnotation))
}

func TestSequenceSeedOnlyRaises(t *testing.T) {
	t.Parallel()

	seq := NewSequence()
	seq.Seed(KindScene, 100)
	seq.Seed(KindScene, 10)

	id, err := seq.Next(KindScene)
	require.NoError(t, err)
	assert.Equal(t, uint64(101), id)
}

func TestSequenceExhaustion(t *testing.T) {
	t.Parallel()

	seq := NewSequence()
	seq.Seed(KindDetection, MaxID-1)

	id, err := seq.Next(KindDetection)
	require.NoError(t, err)
	assert.Equal(t, MaxID, id)

	_, err = seq.Next(KindDetection)
	require.ErrorIs(t, err, ErrExhausted)
	assert.True(t, errors.IsCategory(err, errors.CategoryLimit))

	// no wraparound on repeated calls
	_, err = seq.Next(KindDetection)
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, MaxID, seq.Current(KindDetection))
}

func TestSequenceRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	seq := NewSequence()
	_, err := seq.Next(kindCount)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, "kind(5)", kindCount.String())
}
