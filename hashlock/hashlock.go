// Package hashlock verifies revealed secrets against a stored commitment.
package hashlock

import (
	"crypto/subtle"
	"fmt"

	"github.com/TEENet-io/escrow-go/agreement"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Hash returns the keccak256 digest of the secret.
func Hash(secret []byte) ethcommon.Hash {
	return crypto.Keccak256Hash(secret)
}

// Verify reports whether the secret hashes to the commitment.
func Verify(secret []byte, commitment ethcommon.Hash) bool {
	digest := Hash(secret)
	return subtle.ConstantTimeCompare(digest[:], commitment[:]) == 1
}

// Check is Verify returning agreement.ErrInvalidSecret on mismatch.
func Check(secret []byte, commitment ethcommon.Hash) error {
	if !Verify(secret, commitment) {
		return fmt.Errorf("%w: commitment=%s", agreement.ErrInvalidSecret, commitment.String())
	}
	return nil
}
