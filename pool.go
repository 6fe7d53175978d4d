package strdict

import (
	"strings"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/theflywheel/strdict/keyht"
)

var (
	// ErrNotFound is returned when a removed or duplicated value is not
	// present in the pool.
	ErrNotFound = errors.New("strdict: not found")
	// ErrInternal is returned on invariant violations such as a refcount
	// underflow or a lookup that succeeds without yielding a record.
	ErrInternal = errors.New("strdict: internal error")
)

// Handle is a stable reference to an interned string. Handles to the same
// content compare equal with ==, so holders can use identity comparison
// instead of comparing bytes. Dereference to read the value. A handle stays
// valid for as long as the holder's reference is outstanding, that is until
// the holder's matching Remove call.
type Handle *string

// entry is the unit of storage: a separately allocated payload plus the
// number of logical owners. Entries move between slots on rehash; the
// payload allocation does not, which is what keeps handles stable.
type entry struct {
	value *string
	refs  uint32
}

// entryEqual is the content-mode comparison for pool records. aux, when an
// int, bounds the probe: equality requires the stored value to be exactly
// the probe's first aux bytes, so a stored prefix never matches a longer
// probe and vice versa. In identity mode only the payload address counts,
// which lets the table relocate entries during a rehash without comparing
// them against unrelated content.
func entryEqual(a, b *entry, identity bool, aux any) bool {
	if identity {
		return a.value == b.value
	}
	if n, ok := aux.(int); ok {
		return *b.value == (*a.value)[:n]
	}
	return *a.value == *b.value
}

// entryIdentity matches a record only against itself, regardless of content.
func entryIdentity(a, b *entry, _ bool, _ any) bool {
	return a.value == b.value
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Entries  int    // live interned strings
	Inserts  uint64 // records created
	Hits     uint64 // lookups resolved to an existing record
	Removes  uint64 // reference releases
	Released uint64 // records freed on last release
	NotFound uint64 // remove/duplicate misses
	Leaked   uint64 // records still referenced at Close
}

// Pool is a thread-safe interning store. Each distinct string is held at
// most once; every Insert or Duplicate adds a logical owner and every
// Remove drops one, and the backing storage is released exactly when the
// last owner releases it.
//
// A single mutex serializes all operations. Interning traffic is fully
// serialized by design; correctness of the shared table state is preferred
// over lookup parallelism.
type Pool struct {
	mu       sync.Mutex
	table    *keyht.Table[entry]
	log      logrus.FieldLogger
	capacity int
	closed   bool

	inserts  uint64
	hits     uint64
	removes  uint64
	released uint64
	notFound uint64
	leaked   uint64
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger routes pool diagnostics to log instead of the standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Pool) { p.log = log }
}

// WithCapacity sets the initial table capacity, for callers that know their
// working set up front.
func WithCapacity(n int) Option {
	return func(p *Pool) { p.capacity = n }
}

// NewPool returns an empty interning pool.
func NewPool(opts ...Option) *Pool {
	p := &Pool{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(p)
	}
	p.table = keyht.New[entry](p.capacity)
	return p
}

// Insert interns s and returns a handle to the canonical copy. If equal
// content is already present its refcount is incremented and the existing
// handle returned; otherwise a private copy of s is stored with refcount 1,
// so the caller's backing array is never retained.
func (p *Pool) Insert(s string) (Handle, error) {
	return p.insert(s, len(s), false)
}

// InsertBytes interns the byte sequence b. The lookup runs against a
// zero-copy view of b, so the hit path allocates nothing; on a miss the
// bytes are cloned before being retained. A nil slice returns a nil handle
// with no error.
func (p *Pool) InsertBytes(b []byte) (Handle, error) {
	if b == nil {
		return nil, nil
	}
	return p.insert(bytesToString(b), len(b), false)
}

// InsertNoCopy interns s, taking ownership of its backing array. On a miss
// s itself becomes the stored payload with no copy made; on a hit s is
// simply dropped and the existing handle returned. Callers must not reuse
// the backing array afterwards. This avoids the double allocation when s
// was built only to be interned.
func (p *Pool) InsertNoCopy(s string) (Handle, error) {
	return p.insert(s, len(s), true)
}

func (p *Pool) insert(val string, n int, nocopy bool) (Handle, error) {
	if n > len(val) {
		n = len(val)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.log.Error("strdict: insert on closed pool")
		return nil, errors.WithStack(ErrInternal)
	}
	p.log.Debugf("interning %q", val[:n])

	hash := keyht.HashString(val[:n])
	probe := entry{value: &val, refs: 1}
	rec, existed, err := p.table.Insert(&probe, hash, entryEqual, n)
	if err != nil {
		return nil, errors.Wrapf(ErrInternal, "inserting %q: %v", val[:n], err)
	}
	if existed {
		if rec == nil {
			p.log.Errorf("strdict: lookup of %q yielded no record", val[:n])
			return nil, errors.WithStack(ErrInternal)
		}
		rec.refs++
		p.hits++
		return Handle(rec.value), nil
	}

	// The new slot still borrows the caller's string; give the record its
	// own payload before the lock is released.
	if nocopy {
		owned := val[:n]
		rec.value = &owned
	} else {
		owned := strings.Clone(val[:n])
		rec.value = &owned
	}
	p.inserts++
	return Handle(rec.value), nil
}

// Duplicate registers an additional owner for a handle previously returned
// by this pool and returns the same handle. The lookup is by identity, not
// content: a handle with equal content that was not issued by this pool is
// rejected with ErrNotFound, which indicates caller misuse.
func (p *Pool) Duplicate(h Handle) (Handle, error) {
	if h == nil {
		return nil, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log.Debugf("duplicating %q", *h)

	hash := keyht.HashString(*h)
	probe := entry{value: (*string)(h)}
	rec, ok := p.table.Find(&probe, hash, entryIdentity, nil)
	if !ok {
		p.notFound++
		p.log.Errorf("strdict: handle for %q is not owned by this pool", *h)
		return nil, errors.WithStack(ErrNotFound)
	}
	if rec == nil {
		p.log.Errorf("strdict: lookup of %q yielded no record", *h)
		return nil, errors.WithStack(ErrInternal)
	}
	rec.refs++
	p.hits++
	return Handle(rec.value), nil
}

// Remove releases one reference to the value behind h. When the last
// reference is released the record is removed from the table and its
// payload dropped. Removing a value that is not present returns ErrNotFound
// and mutates nothing. A nil handle is a no-op.
func (p *Pool) Remove(h Handle) error {
	if h == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	val := *h
	p.log.Debugf("removing %q", val)

	hash := keyht.HashString(val)
	probe := entry{value: (*string)(h)}
	rec, ok := p.table.Find(&probe, hash, entryEqual, nil)
	if !ok {
		p.notFound++
		p.log.Errorf("strdict: value %q was not found in the pool", val)
		return errors.WithStack(ErrNotFound)
	}
	if rec == nil {
		p.log.Errorf("strdict: lookup of %q yielded no record", val)
		return errors.WithStack(ErrInternal)
	}
	if rec.refs == 0 {
		p.log.Errorf("strdict: refcount underflow for %q", val)
		return errors.WithStack(ErrInternal)
	}
	rec.refs--
	p.removes++
	if rec.refs == 0 {
		if err := p.table.Remove(&probe, hash, entryEqual, nil); err != nil {
			p.log.Errorf("strdict: removing %q: %v", val, err)
			return errors.WithStack(ErrInternal)
		}
		p.released++
	}
	return nil
}

// Close logs one warning per record whose references were never balanced,
// then drops all remaining storage. Leaks are diagnostics of caller-side
// refcounting bugs, not errors; the pool reclaims them regardless.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.table.Range(func(e *entry) bool {
		p.log.Warnf("strdict: string %q not released from the pool, refcount %d", *e.value, e.refs)
		p.leaked++
		return true
	})
	p.table = keyht.New[entry](p.capacity)
	p.closed = true
}

// Len returns the number of live interned strings.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.table.Len()
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Entries:  p.table.Len(),
		Inserts:  p.inserts,
		Hits:     p.hits,
		Removes:  p.removes,
		Released: p.released,
		NotFound: p.notFound,
		Leaked:   p.leaked,
	}
}

// bytesToString views b as a string without copying. The view must not
// outlive b; insert paths clone before retaining anything.
func bytesToString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}
