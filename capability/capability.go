// Package capability implements the two ways an escrow action can be
// authorized: the caller being a named party, or the caller presenting a
// bearer credential.
package capability

import (
	"fmt"

	"github.com/TEENet-io/escrow-go/agreement"
	"github.com/TEENet-io/escrow-go/balance"
	"github.com/TEENet-io/escrow-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// OwnerCap is created together with an escrow and handed to its creator.
// Whoever holds it may perform the escrow's administrative actions.
type OwnerCap struct {
	id       ethcommon.Hash
	escrowID ethcommon.Hash
}

func NewOwnerCap(escrowID ethcommon.Hash) *OwnerCap {
	return &OwnerCap{id: common.RandHash(), escrowID: escrowID}
}

func (c *OwnerCap) ID() ethcommon.Hash       { return c.id }
func (c *OwnerCap) EscrowID() ethcommon.Hash { return c.escrowID }

// AccessToken is a transferable credential for the public withdraw and
// cancel paths. Only a token holding a non-empty balance grants access.
type AccessToken struct {
	balance *balance.Balance
}

func NewAccessToken(b *balance.Balance) *AccessToken {
	return &AccessToken{balance: b}
}

func (t *AccessToken) Value() uint64 {
	if t == nil {
		return 0
	}
	return t.balance.Value()
}

// CheckCaller requires the transaction sender to be the expected party.
func CheckCaller(ctx agreement.TxContext, expected agreement.Address) error {
	if ctx.Sender != expected {
		return fmt.Errorf("%w: sender=%s expected=%s", agreement.ErrUnauthorized, ctx.Sender, expected)
	}
	return nil
}

// CheckAccess requires a present, non-empty access token.
func CheckAccess(token *AccessToken) error {
	if token.Value() == 0 {
		return fmt.Errorf("%w: missing or empty access token", agreement.ErrUnauthorized)
	}
	return nil
}

// CheckOwner requires the owner capability of the given escrow.
func CheckOwner(c *OwnerCap, escrowID ethcommon.Hash) error {
	if c == nil || c.escrowID != escrowID {
		return fmt.Errorf("%w: owner capability does not belong to escrow %s", agreement.ErrUnauthorized, escrowID.String())
	}
	return nil
}
