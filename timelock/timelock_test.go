package timelock

import (
	"errors"
	"math"
	"testing"

	"github.com/TEENet-io/escrow-go/agreement"
	"github.com/aptos-labs/aptos-go-sdk/bcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOffsets() Offsets {
	return Offsets{
		SrcWithdrawal:         3600,
		SrcPublicWithdrawal:   7200,
		SrcCancellation:       86400,
		SrcPublicCancellation: 90000,
		DstWithdrawal:         1800,
		DstPublicWithdrawal:   5400,
		DstCancellation:       43200,
		DstPublicCancellation: 50000,
	}
}

func TestScheduleRequiresDeployment(t *testing.T) {
	tl := New(testOffsets())
	assert.False(t, tl.IsDeployed())

	_, err := tl.Schedule()
	assert.Equal(t, ErrNotDeployed, err)

	deployed, err := tl.WithDeployedAt(1000)
	require.NoError(t, err)
	assert.True(t, deployed.IsDeployed())

	// the original value is untouched
	assert.False(t, tl.IsDeployed())

	_, err = deployed.WithDeployedAt(2000)
	assert.Equal(t, ErrAlreadyDeployed, err)

	s, err := deployed.Schedule()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), s.DeployedAt())
	assert.Equal(t, testOffsets(), s.Offsets())
}

func TestStageStart(t *testing.T) {
	tl, err := New(testOffsets()).WithDeployedAt(1000)
	require.NoError(t, err)
	s, err := tl.Schedule()
	require.NoError(t, err)

	offsets := testOffsets().Array()
	for i := range offsets {
		stage := Stage(i)
		assert.Equal(t, 1000+uint64(offsets[i]), s.Start(stage), stage.String())
	}
	assert.Equal(t, uint64(4600), s.RescueStart(3600))
}

func TestStartSaturates(t *testing.T) {
	tl, err := New(testOffsets()).WithDeployedAt(math.MaxUint64 - 100)
	require.NoError(t, err)
	s, err := tl.Schedule()
	require.NoError(t, err)

	// a delay meant as "never" must not wrap around to the past
	assert.Equal(t, uint64(math.MaxUint64), s.RescueStart(math.MaxUint64))
	assert.Error(t, OnlyAfter(s.RescueStart(math.MaxUint64), math.MaxUint64-1))
	assert.Equal(t, uint64(math.MaxUint64-50), s.RescueStart(50))

	assert.Equal(t, uint64(math.MaxUint64), s.Start(SrcWithdrawal))
	assert.ErrorIs(t, s.OnlyAfter(SrcCancellation, 0), agreement.ErrOutOfWindow)

	small, err := New(testOffsets()).WithDeployedAt(1000)
	require.NoError(t, err)
	ss, err := small.Schedule()
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), ss.RescueStart(math.MaxUint64))
}

func TestWithdrawalWindow(t *testing.T) {
	tl, _ := New(testOffsets()).WithDeployedAt(1000)
	s, _ := tl.Schedule()

	cases := []struct {
		now uint64
		ok  bool
	}{
		{1000, false},
		{4599, false},
		{4600, true},
		{4601, true},
		{87399, true},
		{87400, false},
		{87401, false},
	}
	for _, c := range cases {
		err := s.Window(SrcWithdrawal, SrcCancellation, c.now)
		if c.ok {
			assert.NoError(t, err, "now=%d", c.now)
		} else {
			assert.True(t, errors.Is(err, agreement.ErrOutOfWindow), "now=%d", c.now)
		}
	}
}

func TestOnlyAfterOnlyBefore(t *testing.T) {
	assert.NoError(t, OnlyAfter(10, 10))
	assert.Error(t, OnlyAfter(10, 9))
	assert.NoError(t, OnlyBefore(10, 9))
	assert.Error(t, OnlyBefore(10, 10))
}

func TestOffsetsArrayRoundTrip(t *testing.T) {
	o := testOffsets()
	assert.Equal(t, o, OffsetsFromArray(o.Array()))
	assert.Panics(t, func() { o.Get(Stage(8)) })
}

func TestMarshalBCSDependsOnDeployment(t *testing.T) {
	tl := New(testOffsets())
	undeployed, err := bcs.Serialize(&tl)
	require.NoError(t, err)

	deployed, _ := tl.WithDeployedAt(1000)
	b1, err := bcs.Serialize(&deployed)
	require.NoError(t, err)
	assert.NotEqual(t, undeployed, b1)

	other, _ := tl.WithDeployedAt(1001)
	b2, err := bcs.Serialize(&other)
	require.NoError(t, err)
	assert.NotEqual(t, b1, b2)
}
