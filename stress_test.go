package strdict_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/theflywheel/strdict"
)

// TestConcurrentStress runs parallel workers performing random insert,
// duplicate and remove sequences over an overlapping key set. Every worker
// balances its own references, so after all workers finish the pool must be
// empty and the counters must net out.
func TestConcurrentStress(t *testing.T) {
	const (
		workers = 8
		keys    = 50
		ops     = 2000
	)

	pool := newQuietPool(strdict.WithCapacity(16))
	defer pool.Close()

	values := make([]string, keys)
	for i := range values {
		values[i] = fmt.Sprintf("shared-key-%d", i)
	}

	var group errgroup.Group
	for w := 0; w < workers; w++ {
		seed := int64(w)
		group.Go(func() error {
			rng := rand.New(rand.NewSource(seed))
			held := make([]strdict.Handle, 0, ops)
			for i := 0; i < ops; i++ {
				switch {
				case len(held) > 0 && rng.Intn(3) == 0:
					h, err := pool.Duplicate(held[rng.Intn(len(held))])
					if err != nil {
						return fmt.Errorf("duplicate: %w", err)
					}
					held = append(held, h)
				case len(held) > 0 && rng.Intn(2) == 0:
					last := len(held) - 1
					if err := pool.Remove(held[last]); err != nil {
						return fmt.Errorf("remove: %w", err)
					}
					held = held[:last]
				default:
					h, err := pool.Insert(values[rng.Intn(keys)])
					if err != nil {
						return fmt.Errorf("insert: %w", err)
					}
					held = append(held, h)
				}
			}
			for _, h := range held {
				if err := pool.Remove(h); err != nil {
					return fmt.Errorf("final remove: %w", err)
				}
			}
			return nil
		})
	}
	require.NoError(t, group.Wait())

	st := pool.Stats()
	assert.Equal(t, 0, st.Entries)
	assert.Equal(t, st.Inserts, st.Released, "all records released")
	assert.Equal(t, st.Inserts+st.Hits, st.Removes, "owners balanced")
	assert.Equal(t, uint64(0), st.NotFound)
}

// TestConcurrentDedup checks that racing inserts of the same value never
// produce more than one record per distinct string.
func TestConcurrentDedup(t *testing.T) {
	pool := newQuietPool()
	defer pool.Close()

	const workers = 16
	handles := make([]strdict.Handle, workers)

	var group errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		group.Go(func() error {
			h, err := pool.Insert("contended")
			if err != nil {
				return err
			}
			handles[w] = h
			return nil
		})
	}
	require.NoError(t, group.Wait())

	assert.Equal(t, 1, pool.Len())
	for _, h := range handles[1:] {
		assert.True(t, h == handles[0])
	}
	for _, h := range handles {
		require.NoError(t, pool.Remove(h))
	}
	assert.Equal(t, 0, pool.Len())
}
