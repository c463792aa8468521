package merkle

import (
	"fmt"

	"github.com/TEENet-io/escrow-go/agreement"
	"github.com/TEENet-io/escrow-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	logger "github.com/sirupsen/logrus"
)

// Validation is the most recently accepted (index, secret hash) pair of an
// order.
type Validation struct {
	Index      uint32
	SecretHash ethcommon.Hash
}

// Store is the shared replay set together with the last-validated map.
// Commit must check and insert the reveal key atomically: it returns false
// and writes nothing when the key is already present.
type Store interface {
	IsRevealed(revealKey ethcommon.Hash) (bool, error)
	Commit(revealKey, validationKey ethcommon.Hash, v Validation) (bool, error)
	LastValidated(validationKey ethcommon.Hash) (*Validation, error)
}

// RevealKey is keccak256(orderID || BE32(index)).
func RevealKey(orderID ethcommon.Hash, index uint32) ethcommon.Hash {
	return crypto.Keccak256Hash(common.EncodePacked(orderID, index))
}

// ValidationKey is keccak256(orderID || root).
func ValidationKey(orderID ethcommon.Hash, root TruncatedRoot) ethcommon.Hash {
	return crypto.Keccak256Hash(common.EncodePacked(orderID, [30]byte(root)))
}

type Validator struct {
	store Store
}

func NewValidator(store Store) *Validator {
	return &Validator{store: store}
}

// Verify checks the proof without recording anything.
func (v *Validator) Verify(
	orderID ethcommon.Hash,
	root TruncatedRoot,
	index uint32,
	secretHash ethcommon.Hash,
	proof []ethcommon.Hash,
) (Validation, error) {
	revealed, err := v.store.IsRevealed(RevealKey(orderID, index))
	if err != nil {
		return Validation{}, err
	}
	if revealed {
		return Validation{}, fmt.Errorf("%w: order=%s index=%d", agreement.ErrReplayedIndex, orderID.String(), index)
	}

	pos, ok := Position(index)
	if !ok {
		return Validation{}, fmt.Errorf("%w: index=0", agreement.ErrInvalidProof)
	}

	computed := ProcessProof(Leaf(index, secretHash), pos, proof)
	if Truncate(computed) != root {
		return Validation{}, fmt.Errorf("%w: order=%s index=%d", agreement.ErrInvalidProof, orderID.String(), index)
	}

	return Validation{Index: index, SecretHash: secretHash}, nil
}

// Commit marks the index revealed and records it as the last validation of
// the (order, root) pair. It fails with ErrReplayedIndex if another caller
// committed the same index first.
func (v *Validator) Commit(orderID ethcommon.Hash, root TruncatedRoot, val Validation) error {
	ok, err := v.store.Commit(RevealKey(orderID, val.Index), ValidationKey(orderID, root), val)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: order=%s index=%d", agreement.ErrReplayedIndex, orderID.String(), val.Index)
	}

	logger.WithFields(logger.Fields{
		"order": common.Shorten(orderID.String(), 8),
		"index": val.Index,
	}).Debug("secret index committed")

	return nil
}

// Validate is Verify followed by Commit.
func (v *Validator) Validate(
	orderID ethcommon.Hash,
	root TruncatedRoot,
	index uint32,
	secretHash ethcommon.Hash,
	proof []ethcommon.Hash,
) (Validation, error) {
	val, err := v.Verify(orderID, root, index, secretHash, proof)
	if err != nil {
		return Validation{}, err
	}
	if err := v.Commit(orderID, root, val); err != nil {
		return Validation{}, err
	}
	return val, nil
}

// LastValidated returns nil if nothing has been validated for the pair yet.
func (v *Validator) LastValidated(orderID ethcommon.Hash, root TruncatedRoot) (*Validation, error) {
	return v.store.LastValidated(ValidationKey(orderID, root))
}

func (v *Validator) IsRevealed(orderID ethcommon.Hash, index uint32) (bool, error) {
	return v.store.IsRevealed(RevealKey(orderID, index))
}
