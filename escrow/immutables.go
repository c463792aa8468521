package escrow

import (
	"fmt"

	"github.com/TEENet-io/escrow-go/agreement"
	"github.com/TEENet-io/escrow-go/timelock"
	"github.com/aptos-labs/aptos-go-sdk/bcs"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ImmutablesParams is the unchecked input of NewImmutables.
type ImmutablesParams struct {
	OrderHash     []byte
	Hashlock      []byte
	Maker         agreement.Address
	Taker         agreement.Address
	Token         agreement.Address
	Amount        uint64
	SafetyDeposit uint64
	Timelocks     timelock.Timelocks
}

// Immutables binds one leg of a swap to its order. Values are never modified
// in place; WithDeployedAt returns a new value.
type Immutables struct {
	OrderHash     ethcommon.Hash
	Hashlock      ethcommon.Hash
	Maker         agreement.Address
	Taker         agreement.Address
	Token         agreement.Address
	Amount        uint64
	SafetyDeposit uint64
	Timelocks     timelock.Timelocks
}

func NewImmutables(p ImmutablesParams) (Immutables, error) {
	if len(p.OrderHash) != ethcommon.HashLength {
		return Immutables{}, fmt.Errorf("%w: order hash is %d bytes", agreement.ErrMalformedImmutables, len(p.OrderHash))
	}
	if len(p.Hashlock) != ethcommon.HashLength {
		return Immutables{}, fmt.Errorf("%w: hashlock is %d bytes", agreement.ErrMalformedImmutables, len(p.Hashlock))
	}
	if p.Amount == 0 {
		return Immutables{}, fmt.Errorf("%w: zero amount", agreement.ErrMalformedImmutables)
	}

	return Immutables{
		OrderHash:     ethcommon.BytesToHash(p.OrderHash),
		Hashlock:      ethcommon.BytesToHash(p.Hashlock),
		Maker:         p.Maker,
		Taker:         p.Taker,
		Token:         p.Token,
		Amount:        p.Amount,
		SafetyDeposit: p.SafetyDeposit,
		Timelocks:     p.Timelocks,
	}, nil
}

// WithDeployedAt stamps the embedded timelocks. It fails if they were already
// stamped.
func (imm Immutables) WithDeployedAt(at uint64) (Immutables, error) {
	tl, err := imm.Timelocks.WithDeployedAt(at)
	if err != nil {
		return Immutables{}, err
	}
	imm.Timelocks = tl
	return imm, nil
}

func (imm *Immutables) MarshalBCS(ser *bcs.Serializer) {
	ser.FixedBytes(imm.OrderHash[:])
	ser.FixedBytes(imm.Hashlock[:])
	imm.Maker.MarshalBCS(ser)
	imm.Taker.MarshalBCS(ser)
	imm.Token.MarshalBCS(ser)
	ser.U64(imm.Amount)
	ser.U64(imm.SafetyDeposit)
	imm.Timelocks.MarshalBCS(ser)
}

// Hash is the canonical digest: SHA3-256 over the BCS encoding.
func (imm Immutables) Hash() ethcommon.Hash {
	ser := &bcs.Serializer{}
	imm.MarshalBCS(ser)
	return ethcommon.Hash(sha3.Sum256(ser.ToBytes()))
}
