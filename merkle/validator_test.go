package merkle

import (
	"sync"
	"testing"

	"github.com/TEENet-io/escrow-go/agreement"
	"github.com/TEENet-io/escrow-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	orderID ethcommon.Hash
	secrets []Secret
	tree    *Tree
	v       *Validator
}

func newFixture(t *testing.T, parts uint32) *fixture {
	secrets := NewSecrets(parts)
	tree, err := SecretTree(secrets)
	require.NoError(t, err)
	return &fixture{
		orderID: common.RandHash(),
		secrets: secrets,
		tree:    tree,
		v:       NewValidator(NewMemStore()),
	}
}

func (f *fixture) proof(t *testing.T, index uint32) []ethcommon.Hash {
	p, err := f.tree.ProofFor(index)
	require.NoError(t, err)
	return p
}

func TestValidate(t *testing.T) {
	f := newFixture(t, 3)
	root := f.tree.TruncatedRoot()
	s := f.secrets[1]

	last, err := f.v.LastValidated(f.orderID, root)
	require.NoError(t, err)
	assert.Nil(t, last)

	val, err := f.v.Validate(f.orderID, root, s.Index, s.Hash(), f.proof(t, s.Index))
	require.NoError(t, err)
	assert.Equal(t, Validation{Index: 2, SecretHash: s.Hash()}, val)

	last, err = f.v.LastValidated(f.orderID, root)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, val, *last)

	revealed, err := f.v.IsRevealed(f.orderID, 2)
	require.NoError(t, err)
	assert.True(t, revealed)

	// replay
	_, err = f.v.Validate(f.orderID, root, s.Index, s.Hash(), f.proof(t, s.Index))
	assert.ErrorIs(t, err, agreement.ErrReplayedIndex)
}

func TestVerifyDoesNotCommit(t *testing.T) {
	f := newFixture(t, 2)
	root := f.tree.TruncatedRoot()
	s := f.secrets[0]

	_, err := f.v.Verify(f.orderID, root, s.Index, s.Hash(), f.proof(t, s.Index))
	require.NoError(t, err)

	revealed, err := f.v.IsRevealed(f.orderID, s.Index)
	require.NoError(t, err)
	assert.False(t, revealed)
	last, err := f.v.LastValidated(f.orderID, root)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestValidateRejects(t *testing.T) {
	f := newFixture(t, 3)
	root := f.tree.TruncatedRoot()
	s := f.secrets[2]
	proof := f.proof(t, s.Index)

	// wrong secret
	_, err := f.v.Validate(f.orderID, root, s.Index, common.RandHash(), proof)
	assert.ErrorIs(t, err, agreement.ErrInvalidProof)

	// wrong index for the secret
	_, err = f.v.Validate(f.orderID, root, s.Index+1, s.Hash(), proof)
	assert.ErrorIs(t, err, agreement.ErrInvalidProof)

	// index 0 has no leaf
	_, err = f.v.Validate(f.orderID, root, 0, s.Hash(), proof)
	assert.ErrorIs(t, err, agreement.ErrInvalidProof)

	// tampered proof
	bad := append([]ethcommon.Hash{}, proof...)
	bad[0][0] ^= 0x01
	_, err = f.v.Validate(f.orderID, root, s.Index, s.Hash(), bad)
	assert.ErrorIs(t, err, agreement.ErrInvalidProof)

	// another root
	other := newFixture(t, 3)
	_, err = f.v.Validate(f.orderID, other.tree.TruncatedRoot(), s.Index, s.Hash(), proof)
	assert.ErrorIs(t, err, agreement.ErrInvalidProof)

	// nothing was recorded by the failures
	revealed, err := f.v.IsRevealed(f.orderID, s.Index)
	require.NoError(t, err)
	assert.False(t, revealed)
}

func TestReplaySetIsPerOrder(t *testing.T) {
	f := newFixture(t, 2)
	root := f.tree.TruncatedRoot()
	s := f.secrets[0]

	_, err := f.v.Validate(f.orderID, root, s.Index, s.Hash(), f.proof(t, s.Index))
	require.NoError(t, err)

	// the same tree used for another order is independent
	_, err = f.v.Validate(common.RandHash(), root, s.Index, s.Hash(), f.proof(t, s.Index))
	assert.NoError(t, err)
}

func TestConcurrentCommitSingleWinner(t *testing.T) {
	f := newFixture(t, 2)
	root := f.tree.TruncatedRoot()
	s := f.secrets[0]
	proof := f.proof(t, s.Index)

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.v.Validate(f.orderID, root, s.Index, s.Hash(), proof); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, agreement.ErrReplayedIndex)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, success)
}

func TestKeysAreDistinct(t *testing.T) {
	id := common.RandHash()
	assert.NotEqual(t, RevealKey(id, 1), RevealKey(id, 2))
	assert.NotEqual(t, RevealKey(id, 1), RevealKey(common.RandHash(), 1))

	var r1, r2 TruncatedRoot
	r2[0] = 1
	assert.NotEqual(t, ValidationKey(id, r1), ValidationKey(id, r2))
}
