/*
Package strdict provides a thread-safe, reference-counted string interning
pool.

A Pool guarantees each distinct string value is stored at most once,
tracks how many logical owners reference it, and releases the backing
storage exactly when the last owner releases it. Callers receive a stable
Handle to the canonical copy instead of allocating their own duplicate, so
unrelated components can compare strings by identity rather than content.

Basic usage:

	import "github.com/theflywheel/strdict"

	pool := strdict.NewPool()
	defer pool.Close()

	h1, err := pool.Insert("hello")
	if err != nil {
		log.Fatal(err)
	}
	h2, _ := pool.Insert("hello")

	// Both inserts produced the same handle; equality is identity.
	fmt.Println(h1 == h2) // true
	fmt.Println(*h1)      // "hello"

	// Each insert added an owner; balance them.
	pool.Remove(h1)
	pool.Remove(h2) // storage released here

Features:

  - One canonical copy per distinct string, with refcount-driven lifetime
  - Zero-copy insert variant for strings built only to be interned
  - Duplicate registers an additional owner of an existing handle by
    identity, without re-hashing content
  - Host contexts with an embedded pool or a registry-located snapshot pool
  - Leak diagnostics at Close for unbalanced references
  - LRU-bounded Transient interner for dedup without lifetime management
  - prometheus Collector over pool counters

Implementation Details:

Records live inside a resizable open-addressing hash table (package keyht)
guarded by one mutex per pool. Table slots move on rehash but each payload
is a separate allocation, so handles stay valid across resizes. A two-mode
equality callback compares records by content when deduplicating inserts
and by payload address when the table re-validates relocated records during
a resize or when an owner is duplicated.
*/
package strdict
