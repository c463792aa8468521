// Package balance implements an owned amount that can only be moved, never
// duplicated: value leaves a Balance through Split and enters through Join.
package balance

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/math"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOverflow            = errors.New("balance overflow")
)

type Balance struct {
	value uint64
}

// New funds a fresh balance. It is meant for the initial deposit only.
func New(value uint64) *Balance {
	return &Balance{value: value}
}

func Zero() *Balance {
	return &Balance{}
}

func (b *Balance) Value() uint64 {
	if b == nil {
		return 0
	}
	return b.value
}

func (b *Balance) IsZero() bool {
	return b.Value() == 0
}

// Split moves amount out of b into a new balance.
func (b *Balance) Split(amount uint64) (*Balance, error) {
	if b.Value() < amount {
		return nil, fmt.Errorf("%w: have=%d want=%d", ErrInsufficientBalance, b.Value(), amount)
	}
	b.value -= amount
	return &Balance{value: amount}, nil
}

// Withdraw moves everything out of b.
func (b *Balance) Withdraw() *Balance {
	out := &Balance{value: b.value}
	b.value = 0
	return out
}

// Join moves all of other into b. other is left empty.
func (b *Balance) Join(other *Balance) error {
	if other == nil {
		return nil
	}
	sum, overflow := math.SafeAdd(b.value, other.value)
	if overflow {
		return ErrOverflow
	}
	b.value = sum
	other.value = 0
	return nil
}

func (b *Balance) String() string {
	return fmt.Sprintf("Balance{%d}", b.Value())
}
