package merkle

import (
	"errors"
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

var (
	ErrEmptyTree        = errors.New("cannot build a tree without leaves")
	ErrPositionOutRange = errors.New("leaf position out of range")
)

// Tree keeps every level, each padded to an even length by duplicating its
// last node, so that proofs can be read off directly.
type Tree struct {
	levels [][]ethcommon.Hash
	leaves int
}

func BuildTree(leaves []ethcommon.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}

	level := make([]ethcommon.Hash, len(leaves))
	copy(level, leaves)

	t := &Tree{leaves: len(leaves)}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		t.levels = append(t.levels, level)

		next := make([]ethcommon.Hash, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, hashPair(level[i], level[i+1]))
		}
		level = next
	}
	t.levels = append(t.levels, level)

	return t, nil
}

func (t *Tree) Root() ethcommon.Hash {
	return t.levels[len(t.levels)-1][0]
}

func (t *Tree) TruncatedRoot() TruncatedRoot {
	return Truncate(t.Root())
}

func (t *Tree) NumLeaves() int {
	return t.leaves
}

// Proof returns the sibling path of the leaf at position, bottom up.
func (t *Tree) Proof(position int) ([]ethcommon.Hash, error) {
	if position < 0 || position >= t.leaves {
		return nil, fmt.Errorf("%w: position=%d leaves=%d", ErrPositionOutRange, position, t.leaves)
	}

	proof := make([]ethcommon.Hash, 0, len(t.levels)-1)
	for _, level := range t.levels[:len(t.levels)-1] {
		proof = append(proof, level[position^1])
		position /= 2
	}
	return proof, nil
}
