package strdict

import "sync"

// Ctx is a host context owning one interning pool. In the default mode the
// pool is embedded in the context. A snapshot context keeps its pool in a
// package registry instead and locates it per operation, so the context
// value itself can stay immutable; operation semantics are identical once
// the pool is located.
type Ctx struct {
	pool     *Pool
	snapshot bool
}

// CtxOption configures a Ctx.
type CtxOption func(*ctxConfig)

type ctxConfig struct {
	snapshot bool
	poolOpts []Option
}

// WithSnapshot places the context's pool behind the registry indirection.
func WithSnapshot() CtxOption {
	return func(c *ctxConfig) { c.snapshot = true }
}

// WithPoolOptions forwards options to the context's pool.
func WithPoolOptions(opts ...Option) CtxOption {
	return func(c *ctxConfig) { c.poolOpts = append(c.poolOpts, opts...) }
}

// registry holds the pools of snapshot contexts, keyed by context.
var registry = struct {
	mu    sync.Mutex
	pools map[*Ctx]*Pool
}{pools: make(map[*Ctx]*Pool)}

// NewCtx returns a context with a fresh pool. The context must be closed at
// teardown to reclaim the pool and report leaked references.
func NewCtx(opts ...CtxOption) *Ctx {
	var cfg ctxConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &Ctx{snapshot: cfg.snapshot}
	pool := NewPool(cfg.poolOpts...)
	if cfg.snapshot {
		registry.mu.Lock()
		registry.pools[c] = pool
		registry.mu.Unlock()
	} else {
		c.pool = pool
	}
	return c
}

// Pool returns the store backing the context, or nil after Close on a
// snapshot context.
func (c *Ctx) Pool() *Pool {
	if !c.snapshot {
		return c.pool
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return registry.pools[c]
}

// Close shuts down the context's pool and, for snapshot contexts, drops the
// registry entry.
func (c *Ctx) Close() {
	if p := c.Pool(); p != nil {
		p.Close()
	}
	if c.snapshot {
		registry.mu.Lock()
		delete(registry.pools, c)
		registry.mu.Unlock()
	}
}

// Insert interns s in the context's pool. See Pool.Insert.
func Insert(ctx *Ctx, s string) (Handle, error) {
	return ctx.Pool().Insert(s)
}

// InsertBytes interns the byte sequence b in the context's pool. See
// Pool.InsertBytes.
func InsertBytes(ctx *Ctx, b []byte) (Handle, error) {
	return ctx.Pool().InsertBytes(b)
}

// InsertNoCopy interns s in the context's pool, taking ownership of its
// backing array. See Pool.InsertNoCopy.
func InsertNoCopy(ctx *Ctx, s string) (Handle, error) {
	return ctx.Pool().InsertNoCopy(s)
}

// Duplicate registers an additional owner for h in the context's pool. See
// Pool.Duplicate.
func Duplicate(ctx *Ctx, h Handle) (Handle, error) {
	return ctx.Pool().Duplicate(h)
}

// Remove releases one reference to h in the context's pool. See Pool.Remove.
func Remove(ctx *Ctx, h Handle) error {
	return ctx.Pool().Remove(h)
}
