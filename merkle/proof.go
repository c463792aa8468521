// Package merkle builds and verifies the secret trees used for partial fills
// and keeps the bookkeeping that prevents a secret index from being revealed
// twice.
package merkle

import (
	"github.com/TEENet-io/escrow-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TruncatedRootSize is the number of root bytes kept for comparison.
const TruncatedRootSize = 30

// TruncatedRoot is the first 30 bytes of a merkle root.
type TruncatedRoot [TruncatedRootSize]byte

func Truncate(root ethcommon.Hash) TruncatedRoot {
	var t TruncatedRoot
	copy(t[:], root[:TruncatedRootSize])
	return t
}

func (t TruncatedRoot) String() string {
	return common.Prepend0xPrefix(common.ByteSliceToPureHexStr(t[:]))
}

// Leaf returns keccak256(BE32(index) || secretHash).
func Leaf(index uint32, secretHash ethcommon.Hash) ethcommon.Hash {
	return crypto.Keccak256Hash(common.EncodePacked(index, secretHash))
}

func hashPair(left, right ethcommon.Hash) ethcommon.Hash {
	return crypto.Keccak256Hash(left[:], right[:])
}

// ProcessProof walks from the leaf at the given position up to the root.
// An even position is a left child, an odd one a right child.
func ProcessProof(leaf ethcommon.Hash, position uint64, proof []ethcommon.Hash) ethcommon.Hash {
	current := leaf
	for _, sibling := range proof {
		if position%2 == 0 {
			current = hashPair(current, sibling)
		} else {
			current = hashPair(sibling, current)
		}
		position /= 2
	}
	return current
}
