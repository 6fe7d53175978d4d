package strdict_test

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theflywheel/strdict"
)

func newQuietCtx(opts ...strdict.CtxOption) *strdict.Ctx {
	logger, _ := test.NewNullLogger()
	return strdict.NewCtx(append([]strdict.CtxOption{
		strdict.WithPoolOptions(strdict.WithLogger(logger)),
	}, opts...)...)
}

func TestCtxSharedMode(t *testing.T) {
	ctx := newQuietCtx()
	defer ctx.Close()

	h1, err := strdict.Insert(ctx, "shared")
	require.NoError(t, err)
	h2, err := strdict.Insert(ctx, "shared")
	require.NoError(t, err)
	assert.True(t, h1 == h2)

	h3, err := strdict.Duplicate(ctx, h1)
	require.NoError(t, err)
	assert.True(t, h3 == h1)

	require.NoError(t, strdict.Remove(ctx, h1))
	require.NoError(t, strdict.Remove(ctx, h2))
	require.NoError(t, strdict.Remove(ctx, h3))
	assert.Equal(t, 0, ctx.Pool().Len())
}

func TestCtxSnapshotMode(t *testing.T) {
	ctx := newQuietCtx(strdict.WithSnapshot())

	require.NotNil(t, ctx.Pool())

	h, err := strdict.Insert(ctx, "isolated")
	require.NoError(t, err)
	assert.Equal(t, "isolated", *h)
	assert.Equal(t, 1, ctx.Pool().Len())

	require.NoError(t, strdict.Remove(ctx, h))

	// Close drops the registry entry; the pool is no longer locatable.
	ctx.Close()
	assert.Nil(t, ctx.Pool())
}

func TestCtxPoolsAreIndependent(t *testing.T) {
	a := newQuietCtx()
	defer a.Close()
	b := newQuietCtx(strdict.WithSnapshot())
	defer b.Close()

	ha, err := strdict.Insert(a, "same-content")
	require.NoError(t, err)
	hb, err := strdict.Insert(b, "same-content")
	require.NoError(t, err)

	// Distinct stores, distinct canonical copies.
	assert.False(t, ha == hb)

	// A handle issued by one context is not owned by the other.
	_, err = strdict.Duplicate(b, ha)
	require.ErrorIs(t, err, strdict.ErrNotFound)

	require.NoError(t, strdict.Remove(a, ha))
	require.NoError(t, strdict.Remove(b, hb))
}

func TestCtxInsertVariants(t *testing.T) {
	ctx := newQuietCtx()
	defer ctx.Close()

	h1, err := strdict.InsertBytes(ctx, []byte("bytes"))
	require.NoError(t, err)
	assert.Equal(t, "bytes", *h1)

	h2, err := strdict.InsertNoCopy(ctx, "owned")
	require.NoError(t, err)
	assert.Equal(t, "owned", *h2)

	require.NoError(t, strdict.Remove(ctx, h1))
	require.NoError(t, strdict.Remove(ctx, h2))
}
