package strdict

import (
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// Transient deduplicates strings without tracking ownership. It is backed
// by an LRU so only the most recently interned strings are kept, which
// bounds memory for callers that want dedup but cannot balance references.
// Returned strings are clones, so they never pin the caller's backing
// array.
type Transient struct {
	cache *lru.Cache
}

// NewTransient returns a transient interner keeping at most size strings.
func NewTransient(size int) (*Transient, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Transient{cache: cache}, nil
}

// Intern returns the cached copy of s, adding one if absent. Under
// concurrent misses for the same value two clones may race; the loser's
// clone is merely garbage, the cache stays consistent.
func (t *Transient) Intern(s string) string {
	if existing, ok := t.cache.Peek(s); ok {
		return existing.(string)
	}
	owned := strings.Clone(s)
	t.cache.Add(owned, owned)
	return owned
}

// Len returns the number of cached strings.
func (t *Transient) Len() int {
	return t.cache.Len()
}
