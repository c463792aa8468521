// Golbal agreement on the types shared by the escrow core and its collaborators.

package agreement

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aptos-labs/aptos-go-sdk"
	"github.com/aptos-labs/aptos-go-sdk/bcs"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

var ErrAddressFormat = errors.New("address must be formatted as <chainId>:<hex>")

// Address identifies an account on a specific chain. EVM addresses (20 bytes)
// are left padded into the 32-byte account space.
type Address struct {
	ChainID uint64
	Account aptos.AccountAddress
}

func NewAddress(chainID uint64, hexStr string) (Address, error) {
	var account aptos.AccountAddress
	if err := account.ParseStringRelaxed(hexStr); err != nil {
		return Address{}, err
	}
	return Address{ChainID: chainID, Account: account}, nil
}

// AddressFromEth tags an ethereum address with the chain it lives on.
func AddressFromEth(chainID uint64, addr ethcommon.Address) Address {
	var account aptos.AccountAddress
	copy(account[:], ethcommon.LeftPadBytes(addr.Bytes(), 32))
	return Address{ChainID: chainID, Account: account}
}

func (a Address) IsZero() bool {
	return a.Account == aptos.AccountAddress{}
}

// String returns "<chainId>:0x<64 hex chars>".
func (a Address) String() string {
	return strconv.FormatUint(a.ChainID, 10) + ":0x" + ethcommon.Bytes2Hex(a.Account[:])
}

func ParseAddress(s string) (Address, error) {
	chain, hexStr, ok := strings.Cut(s, ":")
	if !ok {
		return Address{}, ErrAddressFormat
	}
	chainID, err := strconv.ParseUint(chain, 10, 64)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrAddressFormat, err)
	}
	return NewAddress(chainID, hexStr)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalBCS writes the chain id followed by the raw 32 account bytes.
func (a *Address) MarshalBCS(ser *bcs.Serializer) {
	ser.U64(a.ChainID)
	ser.FixedBytes(a.Account[:])
}

// TxContext carries what the host ledger knows about the current call: who
// signed it and the ledger time (unix seconds) it executes at.
type TxContext struct {
	Sender    Address
	Timestamp uint64
}

type AssetKind uint8

const (
	AssetToken AssetKind = iota
	AssetNative
)

func (k AssetKind) String() string {
	switch k {
	case AssetToken:
		return "token"
	case AssetNative:
		return "native"
	default:
		return "unknown"
	}
}
