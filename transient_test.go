package strdict_test

import (
	"fmt"
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theflywheel/strdict"
)

func TestTransientDeduplicates(t *testing.T) {
	interner, err := strdict.NewTransient(100)
	require.NoError(t, err)

	a := interner.Intern(strings.Repeat("x", 16))
	b := interner.Intern(strings.Repeat("x", 16))
	assert.Equal(t, unsafe.StringData(a), unsafe.StringData(b))
	assert.Equal(t, 1, interner.Len())
}

func TestTransientClonesInput(t *testing.T) {
	interner, err := strdict.NewTransient(100)
	require.NoError(t, err)

	input := strings.Repeat("y", 16)
	got := interner.Intern(input)
	assert.Equal(t, input, got)
	assert.NotSame(t, unsafe.StringData(input), unsafe.StringData(got))
}

func TestTransientEvicts(t *testing.T) {
	interner, err := strdict.NewTransient(10)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		interner.Intern(fmt.Sprintf("value-%d", i))
	}
	assert.Equal(t, 10, interner.Len())
}

func TestTransientRejectsBadSize(t *testing.T) {
	_, err := strdict.NewTransient(0)
	require.Error(t, err)
}
