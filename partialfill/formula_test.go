package partialfill

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkedScenario(t *testing.T) {
	// total=100, parts=3
	idx, ok := RequiredIndex(100, 100, 34, 3)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), idx)

	idx, ok = RequiredIndex(100, 66, 33, 3)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), idx)

	// the completing fill skips index 3
	idx, ok = RequiredIndex(100, 33, 33, 3)
	assert.True(t, ok)
	assert.Equal(t, uint64(4), idx)

	assert.True(t, IsValidPartialFill(100, 100, 34, 3, 1))
	assert.False(t, IsValidPartialFill(100, 100, 34, 3, 2))
	assert.True(t, IsValidPartialFill(100, 66, 33, 3, 2))
	assert.True(t, IsValidPartialFill(100, 33, 33, 3, 4))
	assert.False(t, IsValidPartialFill(100, 33, 33, 3, 3))
}

func TestBucketReuse(t *testing.T) {
	// 10 then 10 out of 100 in 3 parts both land in the first bucket
	idx, ok := RequiredIndex(100, 100, 10, 3)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), idx)

	_, ok = RequiredIndex(100, 90, 10, 3)
	assert.False(t, ok)
	assert.False(t, IsValidPartialFill(100, 90, 10, 3, 1))
	assert.False(t, IsValidPartialFill(100, 90, 10, 3, 2))

	// crossing into the next bucket is fine
	idx, ok = RequiredIndex(100, 90, 30, 3)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), idx)
}

func TestSingleFillCompletion(t *testing.T) {
	idx, ok := RequiredIndex(100, 100, 100, 4)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), idx)
}

func TestRequiredIndexRejectsInconsistentInput(t *testing.T) {
	_, ok := RequiredIndex(0, 0, 0, 3)
	assert.False(t, ok)
	_, ok = RequiredIndex(100, 100, 0, 3)
	assert.False(t, ok)
	_, ok = RequiredIndex(100, 50, 51, 3)
	assert.False(t, ok)
	_, ok = RequiredIndex(100, 101, 1, 3)
	assert.False(t, ok)
}

func TestRequiredIndexLargeAmounts(t *testing.T) {
	const total = ^uint64(0)
	idx, ok := RequiredIndex(total, total, total/2, 10)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), idx)

	idx, ok = RequiredIndex(total, total, total, 10)
	assert.True(t, ok)
	assert.Equal(t, uint64(11), idx)
}
