// Package timelock holds the stage offsets of a swap and answers whether a
// stage window is open at a given ledger time.
package timelock

import (
	"errors"
	"fmt"

	"github.com/TEENet-io/escrow-go/agreement"
	"github.com/aptos-labs/aptos-go-sdk/bcs"
	"github.com/ethereum/go-ethereum/common/math"
)

var (
	ErrAlreadyDeployed = errors.New("deployed_at already set")
	ErrNotDeployed     = errors.New("deployed_at not set")
)

type Stage uint8

const (
	SrcWithdrawal Stage = iota
	SrcPublicWithdrawal
	SrcCancellation
	SrcPublicCancellation
	DstWithdrawal
	DstPublicWithdrawal
	DstCancellation
	DstPublicCancellation
)

func (s Stage) String() string {
	switch s {
	case SrcWithdrawal:
		return "src_withdrawal"
	case SrcPublicWithdrawal:
		return "src_public_withdrawal"
	case SrcCancellation:
		return "src_cancellation"
	case SrcPublicCancellation:
		return "src_public_cancellation"
	case DstWithdrawal:
		return "dst_withdrawal"
	case DstPublicWithdrawal:
		return "dst_public_withdrawal"
	case DstCancellation:
		return "dst_cancellation"
	case DstPublicCancellation:
		return "dst_public_cancellation"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// Offsets are seconds relative to deployment. They are taken as given: the
// caller is responsible for supplying non-decreasing values per leg.
type Offsets struct {
	SrcWithdrawal         uint32
	SrcPublicWithdrawal   uint32
	SrcCancellation       uint32
	SrcPublicCancellation uint32
	DstWithdrawal         uint32
	DstPublicWithdrawal   uint32
	DstCancellation       uint32
	DstPublicCancellation uint32
}

func (o Offsets) Get(s Stage) uint32 {
	switch s {
	case SrcWithdrawal:
		return o.SrcWithdrawal
	case SrcPublicWithdrawal:
		return o.SrcPublicWithdrawal
	case SrcCancellation:
		return o.SrcCancellation
	case SrcPublicCancellation:
		return o.SrcPublicCancellation
	case DstWithdrawal:
		return o.DstWithdrawal
	case DstPublicWithdrawal:
		return o.DstPublicWithdrawal
	case DstCancellation:
		return o.DstCancellation
	case DstPublicCancellation:
		return o.DstPublicCancellation
	}
	panic(fmt.Sprintf("unknown timelock stage %d", uint8(s)))
}

// Array returns the offsets in Stage order.
func (o Offsets) Array() [8]uint32 {
	return [8]uint32{
		o.SrcWithdrawal, o.SrcPublicWithdrawal, o.SrcCancellation, o.SrcPublicCancellation,
		o.DstWithdrawal, o.DstPublicWithdrawal, o.DstCancellation, o.DstPublicCancellation,
	}
}

func OffsetsFromArray(a [8]uint32) Offsets {
	return Offsets{
		SrcWithdrawal:         a[0],
		SrcPublicWithdrawal:   a[1],
		SrcCancellation:       a[2],
		SrcPublicCancellation: a[3],
		DstWithdrawal:         a[4],
		DstPublicWithdrawal:   a[5],
		DstCancellation:       a[6],
		DstPublicCancellation: a[7],
	}
}

// Timelocks is the value carried inside the swap immutables. deployedAt can
// only be set once and the stage times can only be read through a Schedule,
// which does not exist before deployment.
type Timelocks struct {
	offsets    Offsets
	deployedAt uint64
	deployed   bool
}

func New(offsets Offsets) Timelocks {
	return Timelocks{offsets: offsets}
}

func (t Timelocks) Offsets() Offsets { return t.offsets }

func (t Timelocks) IsDeployed() bool { return t.deployed }

// WithDeployedAt returns a copy stamped with the deployment time.
func (t Timelocks) WithDeployedAt(at uint64) (Timelocks, error) {
	if t.deployed {
		return t, ErrAlreadyDeployed
	}
	t.deployedAt = at
	t.deployed = true
	return t, nil
}

func (t Timelocks) Schedule() (Schedule, error) {
	if !t.deployed {
		return Schedule{}, ErrNotDeployed
	}
	return Schedule{offsets: t.offsets, deployedAt: t.deployedAt}, nil
}

// MarshalBCS encodes the eight offsets followed by an optional deployedAt.
func (t *Timelocks) MarshalBCS(ser *bcs.Serializer) {
	for _, o := range t.offsets.Array() {
		ser.U32(o)
	}
	ser.Bool(t.deployed)
	if t.deployed {
		ser.U64(t.deployedAt)
	}
}

// Schedule is a deployed set of timelocks.
type Schedule struct {
	offsets    Offsets
	deployedAt uint64
}

func (s Schedule) DeployedAt() uint64 { return s.deployedAt }

func (s Schedule) Offsets() Offsets { return s.offsets }

// Start returns the absolute time the stage begins at.
func (s Schedule) Start(stage Stage) uint64 {
	return saturatingAdd(s.deployedAt, uint64(s.offsets.Get(stage)))
}

// RescueStart returns the time from which funds can be rescued. A delay that
// runs past the end of time yields math.MaxUint64.
func (s Schedule) RescueStart(delay uint64) uint64 {
	return saturatingAdd(s.deployedAt, delay)
}

func saturatingAdd(a, b uint64) uint64 {
	sum, overflow := math.SafeAdd(a, b)
	if overflow {
		return math.MaxUint64
	}
	return sum
}

// OnlyAfter requires now >= start of the stage.
func (s Schedule) OnlyAfter(stage Stage, now uint64) error {
	if err := OnlyAfter(s.Start(stage), now); err != nil {
		return fmt.Errorf("%w: %s", err, stage)
	}
	return nil
}

// OnlyBefore requires now < start of the stage.
func (s Schedule) OnlyBefore(stage Stage, now uint64) error {
	if err := OnlyBefore(s.Start(stage), now); err != nil {
		return fmt.Errorf("%w: %s", err, stage)
	}
	return nil
}

// Window requires now to fall into [start(from), start(until)).
func (s Schedule) Window(from, until Stage, now uint64) error {
	if err := s.OnlyAfter(from, now); err != nil {
		return err
	}
	return s.OnlyBefore(until, now)
}

func OnlyAfter(t, now uint64) error {
	if now < t {
		return fmt.Errorf("%w: now=%d < start=%d", agreement.ErrOutOfWindow, now, t)
	}
	return nil
}

func OnlyBefore(t, now uint64) error {
	if now >= t {
		return fmt.Errorf("%w: now=%d >= end=%d", agreement.ErrOutOfWindow, now, t)
	}
	return nil
}
