package balance

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	b := New(100)

	part, err := b.Split(30)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), part.Value())
	assert.Equal(t, uint64(70), b.Value())

	_, err = b.Split(71)
	assert.True(t, errors.Is(err, ErrInsufficientBalance))
	assert.Equal(t, uint64(70), b.Value())

	part, err = b.Split(70)
	require.NoError(t, err)
	assert.Equal(t, uint64(70), part.Value())
	assert.True(t, b.IsZero())
}

func TestJoinConserves(t *testing.T) {
	a := New(10)
	b := New(5)

	require.NoError(t, a.Join(b))
	assert.Equal(t, uint64(15), a.Value())
	assert.True(t, b.IsZero())

	assert.NoError(t, a.Join(nil))
	assert.Equal(t, uint64(15), a.Value())
}

func TestJoinOverflow(t *testing.T) {
	a := New(math.MaxUint64)
	b := New(1)

	assert.Equal(t, ErrOverflow, a.Join(b))
	assert.Equal(t, uint64(math.MaxUint64), a.Value())
	assert.Equal(t, uint64(1), b.Value())
}

func TestWithdraw(t *testing.T) {
	b := New(42)
	out := b.Withdraw()
	assert.Equal(t, uint64(42), out.Value())
	assert.True(t, b.IsZero())

	var nilBalance *Balance
	assert.Equal(t, uint64(0), nilBalance.Value())
}
