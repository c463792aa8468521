package redisstore

import (
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TEENet-io/escrow-go/agreement"
	"github.com/TEENet-io/escrow-go/common"
	"github.com/TEENet-io/escrow-go/merkle"
)

// Tests that talk to redis need REDIS_ADDR, eg. 127.0.0.1:6379
func newTestStore(t *testing.T) *Store {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	// a fresh namespace per test keeps runs independent
	s, err := New(&Config{Addr: addr, Prefix: "test:" + common.RandHash().Hex()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestValidationEncoding(t *testing.T) {
	v := merkle.Validation{Index: 7, SecretHash: common.RandHash()}
	data, err := encodeValidation(v)
	require.NoError(t, err)

	got, err := decodeValidation(data)
	require.NoError(t, err)
	assert.Equal(t, v, *got)

	_, err = decodeValidation([]byte("not json"))
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	s := &Store{prefix: "p"}
	key := common.RandHash()
	assert.Equal(t, "p:revealed:"+key.Hex(), s.revealedKey(key))
	assert.Equal(t, "p:validated:"+key.Hex(), s.validatedKey(key))
	assert.NotEqual(t, s.revealedKey(key), s.validatedKey(key))
}

func TestBadAddress(t *testing.T) {
	_, err := New(&Config{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestCommit(t *testing.T) {
	s := newTestStore(t)
	revealKey, validationKey := common.RandHash(), common.RandHash()

	ok, err := s.IsRevealed(revealKey)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := s.LastValidated(validationKey)
	require.NoError(t, err)
	assert.Nil(t, v)

	first := merkle.Validation{Index: 1, SecretHash: common.RandHash()}
	ok, err = s.Commit(revealKey, validationKey, first)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsRevealed(revealKey)
	require.NoError(t, err)
	assert.True(t, ok)

	// second commit of the same reveal key must not overwrite the validation
	ok, err = s.Commit(revealKey, validationKey, merkle.Validation{Index: 2})
	require.NoError(t, err)
	assert.False(t, ok)

	v, err = s.LastValidated(validationKey)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, first, *v)
}

func TestConcurrentCommit(t *testing.T) {
	s := newTestStore(t)
	revealKey, validationKey := common.RandHash(), common.RandHash()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := s.Commit(revealKey, validationKey, merkle.Validation{Index: uint32(i)})
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestValidatorOverRedis(t *testing.T) {
	s := newTestStore(t)
	v := merkle.NewValidator(s)

	secrets := merkle.NewSecrets(3)
	tree, err := merkle.SecretTree(secrets)
	require.NoError(t, err)
	root := tree.TruncatedRoot()
	orderID := common.RandHash()

	proof, err := tree.ProofFor(2)
	require.NoError(t, err)
	_, err = v.Validate(orderID, root, 2, secrets[1].Hash(), proof)
	require.NoError(t, err)

	_, err = v.Validate(orderID, root, 2, secrets[1].Hash(), proof)
	assert.ErrorIs(t, err, agreement.ErrReplayedIndex)
}
