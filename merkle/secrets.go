package merkle

import (
	"errors"
	"fmt"

	"github.com/TEENet-io/escrow-go/common"
	"github.com/TEENet-io/escrow-go/hashlock"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

var ErrSecretIndex = errors.New("secret indices must be contiguous and start at 1")

// Secret is one of the secrets an order can be filled against. Indices start
// at 1; the leaf of index i sits at tree position i-1.
type Secret struct {
	Index uint32
	Value [32]byte
}

func (s Secret) Hash() ethcommon.Hash {
	return hashlock.Hash(s.Value[:])
}

func (s Secret) Leaf() ethcommon.Hash {
	return Leaf(s.Index, s.Hash())
}

// Position maps a secret index to its leaf position.
func Position(index uint32) (uint64, bool) {
	if index == 0 {
		return 0, false
	}
	return uint64(index - 1), true
}

// NewSecrets draws parts+1 random secrets. The extra one is reserved for the
// fill that completes the order.
func NewSecrets(parts uint32) []Secret {
	secrets := make([]Secret, 0, parts+1)
	for i := uint32(1); i <= parts+1; i++ {
		secrets = append(secrets, Secret{Index: i, Value: common.RandBytes32()})
	}
	return secrets
}

// SecretTree builds the tree whose leaves commit to the given secrets.
func SecretTree(secrets []Secret) (*Tree, error) {
	leaves := make([]ethcommon.Hash, 0, len(secrets))
	for i, s := range secrets {
		if s.Index != uint32(i+1) {
			return nil, fmt.Errorf("%w: position=%d index=%d", ErrSecretIndex, i, s.Index)
		}
		leaves = append(leaves, s.Leaf())
	}
	return BuildTree(leaves)
}

// ProofFor returns the proof of the secret with the given index.
func (t *Tree) ProofFor(index uint32) ([]ethcommon.Hash, error) {
	pos, ok := Position(index)
	if !ok {
		return nil, fmt.Errorf("%w: index=0", ErrPositionOutRange)
	}
	return t.Proof(int(pos))
}
