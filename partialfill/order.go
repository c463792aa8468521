// Package partialfill tracks an order that is released in several fills,
// each one authorized by a different secret of the order's merkle tree.
package partialfill

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/TEENet-io/escrow-go/agreement"
	"github.com/TEENet-io/escrow-go/balance"
	"github.com/TEENet-io/escrow-go/common"
	"github.com/TEENet-io/escrow-go/hashlock"
	"github.com/TEENet-io/escrow-go/merkle"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

var (
	ErrTooFewParts = errors.New("an order must be split into at least 2 parts")
	ErrEmptyOrder  = errors.New("order has no funds")
	ErrBadSnapshot = errors.New("inconsistent order snapshot")
)

// MinParts is the smallest number of parts an order can be split into.
const MinParts = 2

// Fill records one accepted fill. Cumulative is the total filled amount
// including this fill.
type Fill struct {
	Index      uint32            `json:"index"`
	Amount     uint64            `json:"amount"`
	Timestamp  uint64            `json:"timestamp"`
	Filler     agreement.Address `json:"filler"`
	Cumulative uint64            `json:"cumulative"`
}

type Order struct {
	mu sync.Mutex

	id        ethcommon.Hash
	total     uint64
	remaining *balance.Balance
	parts     uint32
	root      merkle.TruncatedRoot

	fills     map[uint32]Fill
	used      map[uint32]struct{}
	fillCount uint32
	completed bool

	validator *merkle.Validator
	sink      agreement.EventSink
}

func New(
	id ethcommon.Hash,
	funds *balance.Balance,
	parts uint32,
	root merkle.TruncatedRoot,
	validator *merkle.Validator,
	sink agreement.EventSink,
) (*Order, error) {
	if parts < MinParts {
		return nil, fmt.Errorf("%w: parts=%d", ErrTooFewParts, parts)
	}
	if funds.IsZero() {
		return nil, ErrEmptyOrder
	}
	if sink == nil {
		sink = agreement.NopSink{}
	}

	return &Order{
		id:        id,
		total:     funds.Value(),
		remaining: funds,
		parts:     parts,
		root:      root,
		fills:     make(map[uint32]Fill),
		used:      make(map[uint32]struct{}),
		validator: validator,
		sink:      sink,
	}, nil
}

// Restore rebuilds an order from a snapshot. The fills must add up to what
// has been released and the completed flag must match the remaining funds.
func Restore(snap Snapshot, validator *merkle.Validator, sink agreement.EventSink) (*Order, error) {
	if snap.Remaining > snap.Total {
		return nil, fmt.Errorf("%w: remaining=%d > total=%d", ErrBadSnapshot, snap.Remaining, snap.Total)
	}
	if snap.Completed != (snap.Remaining == 0) {
		return nil, fmt.Errorf("%w: completed=%t remaining=%d", ErrBadSnapshot, snap.Completed, snap.Remaining)
	}
	if int(snap.FillCount) != len(snap.Fills) {
		return nil, fmt.Errorf("%w: fill count=%d fills=%d", ErrBadSnapshot, snap.FillCount, len(snap.Fills))
	}

	o, err := New(snap.ID, balance.New(snap.Total), snap.Parts, snap.Root, validator, sink)
	if err != nil {
		return nil, err
	}

	var filled uint64
	for _, f := range snap.Fills {
		if _, ok := o.used[f.Index]; ok {
			return nil, fmt.Errorf("%w: index %d filled twice", ErrBadSnapshot, f.Index)
		}
		filled += f.Amount
		if filled < f.Amount || filled > snap.Total {
			return nil, fmt.Errorf("%w: fills exceed total", ErrBadSnapshot)
		}
		o.fills[f.Index] = f
		o.used[f.Index] = struct{}{}
	}
	if filled != snap.Total-snap.Remaining {
		return nil, fmt.Errorf("%w: filled=%d released=%d", ErrBadSnapshot, filled, snap.Total-snap.Remaining)
	}

	// the released funds left with the fills
	if _, err := o.remaining.Split(filled); err != nil {
		return nil, err
	}
	o.fillCount = snap.FillCount
	o.completed = snap.Completed
	return o, nil
}

// ExecuteFill releases making out of the order against the secret with the
// given index. The secret must be proven against the order root and its
// index must match the cumulative share filled so far. A rejected fill
// leaves both the order and the validator untouched.
func (o *Order) ExecuteFill(
	ctx agreement.TxContext,
	making uint64,
	index uint32,
	secret []byte,
	proof []ethcommon.Hash,
) (*balance.Balance, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.completed {
		return nil, o.reject(index, fmt.Errorf("%w: order %s is completed", agreement.ErrAlreadyFinalized, o.id.String()))
	}
	remaining := o.remaining.Value()
	if making == 0 || making > remaining {
		return nil, o.reject(index, fmt.Errorf("%w: making=%d remaining=%d", agreement.ErrInvalidFillAmount, making, remaining))
	}
	if _, ok := o.used[index]; ok {
		return nil, o.reject(index, fmt.Errorf("%w: index=%d", agreement.ErrReplayedIndex, index))
	}

	val, err := o.validator.Verify(o.id, o.root, index, hashlock.Hash(secret), proof)
	if err != nil {
		return nil, o.reject(index, err)
	}
	// val becomes the last validated pair of the order once committed
	if !IsValidPartialFill(o.total, remaining, making, o.parts, val.Index) {
		return nil, o.reject(index, fmt.Errorf("%w: index=%d does not match making=%d remaining=%d",
			agreement.ErrInvalidFillAmount, index, making, remaining))
	}
	if err := o.validator.Commit(o.id, o.root, val); err != nil {
		return nil, o.reject(index, err)
	}

	out, err := o.remaining.Split(making)
	if err != nil {
		// unreachable: making <= remaining was checked under the lock
		return nil, o.reject(index, err)
	}

	fill := Fill{
		Index:      index,
		Amount:     making,
		Timestamp:  ctx.Timestamp,
		Filler:     ctx.Sender,
		Cumulative: o.total - o.remaining.Value(),
	}
	o.fills[index] = fill
	o.used[index] = struct{}{}
	o.fillCount++

	logger.WithFields(logger.Fields{
		"order":     common.Shorten(o.id.String(), 8),
		"index":     index,
		"amount":    making,
		"remaining": o.remaining.Value(),
	}).Debug("fill executed")

	if o.remaining.IsZero() {
		o.completed = true
		o.sink.Emit(&agreement.OrderFullyCompletedEvent{OrderID: o.id, TotalFills: o.fillCount})
	} else {
		o.sink.Emit(&agreement.PartialFillCompletedEvent{
			OrderID:    o.id,
			Index:      index,
			Amount:     making,
			Remaining:  o.remaining.Value(),
			Cumulative: fill.Cumulative,
		})
	}

	return out, nil
}

func (o *Order) reject(index uint32, err error) error {
	logger.WithFields(logger.Fields{
		"order": common.Shorten(o.id.String(), 8),
		"index": index,
	}).Debugf("fill rejected: %v", err)
	return err
}

func (o *Order) ID() ethcommon.Hash         { return o.id }
func (o *Order) Total() uint64              { return o.total }
func (o *Order) Parts() uint32              { return o.parts }
func (o *Order) Root() merkle.TruncatedRoot { return o.root }

func (o *Order) Remaining() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.remaining.Value()
}

func (o *Order) Completed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.completed
}

func (o *Order) IsIndexUsed(index uint32) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.used[index]
	return ok
}

func (o *Order) Fill(index uint32) (Fill, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	f, ok := o.fills[index]
	return f, ok
}

// Fills returns the accepted fills ordered by index, which is also the order
// they were accepted in.
func (o *Order) Fills() []Fill {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sortedFills()
}

func (o *Order) sortedFills() []Fill {
	fills := make([]Fill, 0, len(o.fills))
	for _, f := range o.fills {
		fills = append(fills, f)
	}
	sort.Slice(fills, func(i, j int) bool { return fills[i].Index < fills[j].Index })
	return fills
}

type Snapshot struct {
	ID        ethcommon.Hash
	Total     uint64
	Remaining uint64
	Parts     uint32
	Root      merkle.TruncatedRoot
	FillCount uint32
	Completed bool
	Fills     []Fill
}

func (o *Order) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	return Snapshot{
		ID:        o.id,
		Total:     o.total,
		Remaining: o.remaining.Value(),
		Parts:     o.parts,
		Root:      o.root,
		FillCount: o.fillCount,
		Completed: o.completed,
		Fills:     o.sortedFills(),
	}
}
