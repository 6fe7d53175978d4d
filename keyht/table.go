// Package keyht provides a generic open-addressing hash table with a
// pluggable, per-call equality callback.
//
// The table stores records by value and relocates them on resize, so record
// pointers returned by Find and Insert are only stable until the next
// structural change. Callers that hand out long-lived references must keep
// any pointed-to payload in a separate allocation.
//
// Equality is supplied per call rather than held as table state. The same
// callback is invoked in two modes: content mode when deduplicating incoming
// records, and identity mode when the table re-validates records it moves
// during a resize, so that a relocated record is only ever matched against
// itself and never content-compared with unrelated entries.
//
// The table performs no locking of its own; the owner is expected to
// serialize access.
package keyht

import (
	"math/bits"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// DefaultCapacity is the slot count used when the requested capacity is zero.
const DefaultCapacity = 1024

const (
	minCapacity = 16

	// Resize thresholds, in slots per 10: grow above 7/10 occupancy
	// (live records plus tombstones), shrink below 2/10 live records.
	growNumerator   = 7
	shrinkNumerator = 2
	loadDenominator = 10
)

// ErrTableFull is returned when probing cannot locate a free slot. With
// growth enabled this indicates a corrupted table rather than exhaustion.
var ErrTableFull = errors.New("keyht: no free slot")

// EqualFn reports whether two records are equal. When identity is true the
// comparison must hold only if a and b are the same underlying record
// (payload address equality); when false it must compare record content.
// aux carries caller data for content comparisons, such as a probe length
// bound, and is nil in identity mode.
type EqualFn[R any] func(a, b *R, identity bool, aux any) bool

// Hash returns the table hash of a byte sequence.
func Hash(b []byte) uint64 { return xxhash.Sum64(b) }

// HashString returns the table hash of a string without copying it.
func HashString(s string) uint64 { return xxhash.Sum64String(s) }

type slotState uint8

const (
	slotEmpty slotState = iota
	slotOccupied
	slotDeleted
)

type slot[R any] struct {
	state slotState
	hash  uint64
	rec   R
}

// Table is an open-addressing hash table over records of type R.
type Table[R any] struct {
	slots []slot[R]
	used  int // occupied slots
	tombs int // deleted slots still blocking probe chains
	min   int // capacity floor for shrinking
}

// New returns a table with at least the requested slot capacity, rounded up
// to a power of two. A capacity of zero selects DefaultCapacity.
func New[R any](capacity int) *Table[R] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	capacity = ceilPow2(capacity)
	return &Table[R]{
		slots: make([]slot[R], capacity),
		min:   capacity,
	}
}

func ceilPow2(n int) int {
	if n < minCapacity {
		return minCapacity
	}
	return 1 << uint(bits.Len(uint(n-1)))
}

// Len returns the number of live records.
func (t *Table[R]) Len() int { return t.used }

// Cap returns the current slot capacity.
func (t *Table[R]) Cap() int { return len(t.slots) }

// Find locates a record equal to probe under content comparison. The
// returned pointer is valid until the next Insert or Remove.
func (t *Table[R]) Find(probe *R, hash uint64, eq EqualFn[R], aux any) (*R, bool) {
	mask := uint64(len(t.slots) - 1)
	idx := hash & mask
	for i := 0; i < len(t.slots); i++ {
		s := &t.slots[idx]
		switch s.state {
		case slotEmpty:
			return nil, false
		case slotOccupied:
			if s.hash == hash && eq(probe, &s.rec, false, aux) {
				return &s.rec, true
			}
		}
		idx = (idx + 1) & mask
	}
	return nil, false
}

// Insert deduplicates probe against the table under content comparison. If
// an equal record exists it is returned with existed true and the table is
// unchanged. Otherwise probe is copied into a free slot and the new record
// is returned with existed false. Growth may occur before placement; the
// supplied eq is then also used in identity mode to re-validate relocated
// records, so it must support both modes.
func (t *Table[R]) Insert(probe *R, hash uint64, eq EqualFn[R], aux any) (*R, bool, error) {
	if rec, ok := t.Find(probe, hash, eq, aux); ok {
		return rec, true, nil
	}

	if (t.used+t.tombs+1)*loadDenominator > len(t.slots)*growNumerator {
		if err := t.rehash(len(t.slots)*2, eq); err != nil {
			return nil, false, err
		}
	}

	idx, err := t.freeSlot(hash)
	if err != nil {
		return nil, false, err
	}
	s := &t.slots[idx]
	if s.state == slotDeleted {
		t.tombs--
	}
	s.state = slotOccupied
	s.hash = hash
	s.rec = *probe
	t.used++
	return &s.rec, false, nil
}

// Remove deletes the record equal to probe under content comparison. The
// table may shrink as part of the call; relocated records are re-validated
// in identity mode through eq, so it must support both modes.
func (t *Table[R]) Remove(probe *R, hash uint64, eq EqualFn[R], aux any) error {
	mask := uint64(len(t.slots) - 1)
	idx := hash & mask
	for i := 0; i < len(t.slots); i++ {
		s := &t.slots[idx]
		switch s.state {
		case slotEmpty:
			return errors.New("keyht: record not present")
		case slotOccupied:
			if s.hash == hash && eq(probe, &s.rec, false, aux) {
				var zero R
				s.state = slotDeleted
				s.rec = zero
				t.used--
				t.tombs++
				return t.maybeShrink(eq)
			}
		}
		idx = (idx + 1) & mask
	}
	return errors.New("keyht: record not present")
}

func (t *Table[R]) maybeShrink(eq EqualFn[R]) error {
	if len(t.slots) > t.min && t.used*loadDenominator < len(t.slots)*shrinkNumerator {
		return t.rehash(len(t.slots)/2, eq)
	}
	// Rebuild in place once tombstones dominate, so probe chains stay short.
	if t.tombs*2 > len(t.slots) {
		return t.rehash(len(t.slots), eq)
	}
	return nil
}

// rehash moves every live record into a fresh slot array. While probing for
// a destination it compares the moving record against already-placed ones in
// identity mode only: during relocation a record may match itself and
// nothing else.
func (t *Table[R]) rehash(capacity int, eq EqualFn[R]) error {
	if capacity < t.min {
		capacity = t.min
	}
	old := t.slots
	t.slots = make([]slot[R], capacity)
	t.used = 0
	t.tombs = 0
	for i := range old {
		if old[i].state != slotOccupied {
			continue
		}
		if err := t.place(&old[i].rec, old[i].hash, eq); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table[R]) place(rec *R, hash uint64, eq EqualFn[R]) error {
	mask := uint64(len(t.slots) - 1)
	idx := hash & mask
	for i := 0; i < len(t.slots); i++ {
		s := &t.slots[idx]
		if s.state != slotOccupied {
			s.state = slotOccupied
			s.hash = hash
			s.rec = *rec
			t.used++
			return nil
		}
		if s.hash == hash && eq(rec, &s.rec, true, nil) {
			return errors.New("keyht: record moved twice during rehash")
		}
		idx = (idx + 1) & mask
	}
	return errors.WithStack(ErrTableFull)
}

// freeSlot returns the index of the first reusable slot on the probe chain.
func (t *Table[R]) freeSlot(hash uint64) (uint64, error) {
	mask := uint64(len(t.slots) - 1)
	idx := hash & mask
	for i := 0; i < len(t.slots); i++ {
		if t.slots[idx].state != slotOccupied {
			return idx, nil
		}
		idx = (idx + 1) & mask
	}
	return 0, errors.WithStack(ErrTableFull)
}

// Range calls fn for every live record until fn returns false. The table
// must not be modified during iteration.
func (t *Table[R]) Range(fn func(rec *R) bool) {
	for i := range t.slots {
		if t.slots[i].state != slotOccupied {
			continue
		}
		if !fn(&t.slots[i].rec) {
			return
		}
	}
}
