// Package registry creates and funds escrows and orders, and keeps the
// order to escrow lookups.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/TEENet-io/escrow-go/agreement"
	"github.com/TEENet-io/escrow-go/balance"
	"github.com/TEENet-io/escrow-go/capability"
	"github.com/TEENet-io/escrow-go/common"
	"github.com/TEENet-io/escrow-go/escrow"
	"github.com/TEENet-io/escrow-go/merkle"
	"github.com/TEENet-io/escrow-go/partialfill"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

var (
	ErrAmountMismatch = errors.New("funding does not match the immutables")
	ErrEscrowExists   = errors.New("escrow already exists")
	ErrOrderExists    = errors.New("order already exists")
)

// Store persists what the registry creates. A nil Store keeps everything in
// memory only.
type Store interface {
	// SaveNewEscrow writes the escrow together with its order lookup, all or
	// nothing.
	SaveNewEscrow(e escrow.Snapshot) error
	SaveEscrow(e escrow.Snapshot) error
	SaveOrder(o partialfill.Snapshot) error
}

// Snapshots is what Restore reads back. *statedb.StateDB implements it.
type Snapshots interface {
	GetEscrowsByStatus(status escrow.Status) ([]*escrow.Snapshot, error)
	OrderIDForEscrow(escrowID ethcommon.Hash) (ethcommon.Hash, bool, error)
	GetOrders() ([]*partialfill.Snapshot, error)
}

type Registry struct {
	cfg *Config

	mu            sync.RWMutex
	escrows       map[ethcommon.Hash]*escrow.Escrow
	orders        map[ethcommon.Hash]*partialfill.Order
	escrowByOrder map[orderLeg]ethcommon.Hash
	orderByEscrow map[ethcommon.Hash]ethcommon.Hash

	validator *merkle.Validator
	store     Store
	sink      agreement.EventSink
}

type orderLeg struct {
	orderID ethcommon.Hash
	leg     escrow.Leg
}

func New(cfg *Config, validator *merkle.Validator, store Store, sink agreement.EventSink) *Registry {
	if sink == nil {
		sink = agreement.NopSink{}
	}
	return &Registry{
		cfg:           cfg,
		escrows:       make(map[ethcommon.Hash]*escrow.Escrow),
		orders:        make(map[ethcommon.Hash]*partialfill.Order),
		escrowByOrder: make(map[orderLeg]ethcommon.Hash),
		orderByEscrow: make(map[ethcommon.Hash]ethcommon.Hash),
		validator:     validator,
		store:         store,
		sink:          sink,
	}
}

// CreateSrcEscrow creates the maker side escrow of an order.
func (r *Registry) CreateSrcEscrow(
	ctx agreement.TxContext,
	imm escrow.Immutables,
	token, native *balance.Balance,
) (*escrow.Escrow, *capability.OwnerCap, error) {
	return r.createEscrow(escrow.Source, ctx, imm, token, native)
}

// CreateDstEscrow creates the taker side escrow of an order.
func (r *Registry) CreateDstEscrow(
	ctx agreement.TxContext,
	imm escrow.Immutables,
	token, native *balance.Balance,
) (*escrow.Escrow, *capability.OwnerCap, error) {
	return r.createEscrow(escrow.Destination, ctx, imm, token, native)
}

// createEscrow stamps the deployment time into the immutables, funds the
// escrow and hands the owner capability to the caller. The escrow id is the
// hash of the stamped immutables.
func (r *Registry) createEscrow(
	leg escrow.Leg,
	ctx agreement.TxContext,
	imm escrow.Immutables,
	token, native *balance.Balance,
) (*escrow.Escrow, *capability.OwnerCap, error) {
	if token.Value() != imm.Amount {
		return nil, nil, fmt.Errorf("%w: token=%d amount=%d", ErrAmountMismatch, token.Value(), imm.Amount)
	}
	if native.Value() != imm.SafetyDeposit {
		return nil, nil, fmt.Errorf("%w: native=%d safety deposit=%d", ErrAmountMismatch, native.Value(), imm.SafetyDeposit)
	}

	imm, err := imm.WithDeployedAt(ctx.Timestamp)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", agreement.ErrMalformedImmutables, err)
	}
	id := imm.Hash()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.escrows[id]; ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrEscrowExists, id.String())
	}
	key := orderLeg{orderID: imm.OrderHash, leg: leg}
	if _, ok := r.escrowByOrder[key]; ok {
		return nil, nil, fmt.Errorf("%w: order %s already has a %s escrow", ErrEscrowExists, imm.OrderHash.String(), leg)
	}

	e, err := escrow.New(leg, id, imm, r.cfg.RescueDelay, token, native, r.sink)
	if err != nil {
		return nil, nil, err
	}

	if r.store != nil {
		if err := r.store.SaveNewEscrow(e.Snapshot()); err != nil {
			logger.Errorf("failed to save escrow: %v", err)
			return nil, nil, err
		}
	}

	r.escrows[id] = e
	r.escrowByOrder[key] = id
	r.orderByEscrow[id] = imm.OrderHash

	logger.WithFields(logger.Fields{
		"escrow": common.Shorten(id.String(), 8),
		"order":  common.Shorten(imm.OrderHash.String(), 8),
		"leg":    leg,
	}).Debug("escrow created")

	r.sink.Emit(&agreement.DepositReceivedEvent{
		EscrowID:      id,
		OrderHash:     imm.OrderHash,
		Token:         imm.Token,
		Amount:        imm.Amount,
		SafetyDeposit: imm.SafetyDeposit,
	})

	return e, capability.NewOwnerCap(id), nil
}

// CreateOrder creates a partial fill order over funds, to be released
// against the secrets committed to by root.
func (r *Registry) CreateOrder(
	orderID ethcommon.Hash,
	funds *balance.Balance,
	parts uint32,
	root merkle.TruncatedRoot,
) (*partialfill.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[orderID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderExists, orderID.String())
	}

	o, err := partialfill.New(orderID, funds, parts, root, r.validator, r.sink)
	if err != nil {
		return nil, err
	}

	if r.store != nil {
		if err := r.store.SaveOrder(o.Snapshot()); err != nil {
			logger.Errorf("failed to save order: %v", err)
			return nil, err
		}
	}
	r.orders[orderID] = o

	logger.WithFields(logger.Fields{
		"order": common.Shorten(orderID.String(), 8),
		"total": funds.Value(),
		"parts": parts,
	}).Debug("order created")

	return o, nil
}

// CreateOrderFromSecrets builds the secret tree and creates the order. The
// last secret is the completion secret, so there is one part less than
// there are secrets.
func (r *Registry) CreateOrderFromSecrets(
	orderID ethcommon.Hash,
	funds *balance.Balance,
	secrets []merkle.Secret,
) (*partialfill.Order, *merkle.Tree, error) {
	if len(secrets) < partialfill.MinParts+1 {
		return nil, nil, fmt.Errorf("%w: %d secrets", partialfill.ErrTooFewParts, len(secrets))
	}
	tree, err := merkle.SecretTree(secrets)
	if err != nil {
		return nil, nil, err
	}

	o, err := r.CreateOrder(orderID, funds, uint32(len(secrets)-1), tree.TruncatedRoot())
	if err != nil {
		return nil, nil, err
	}
	return o, tree, nil
}

func (r *Registry) EscrowByID(id ethcommon.Hash) (*escrow.Escrow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.escrows[id]
	return e, ok
}

func (r *Registry) OrderByID(id ethcommon.Hash) (*partialfill.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	return o, ok
}

func (r *Registry) EscrowIDForOrder(leg escrow.Leg, orderID ethcommon.Hash) (ethcommon.Hash, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.escrowByOrder[orderLeg{orderID: orderID, leg: leg}]
	return id, ok
}

func (r *Registry) OrderIDForEscrow(escrowID ethcommon.Hash) (ethcommon.Hash, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.orderByEscrow[escrowID]
	return id, ok
}

// Restore loads the escrows and orders kept in src, so that they can be
// operated on again after a restart. Either everything is loaded or nothing
// is. Owner capabilities are not persisted; holders keep the ones they were
// handed at creation.
func (r *Registry) Restore(src Snapshots) (int, int, error) {
	escrows := make(map[ethcommon.Hash]*escrow.Escrow)
	escrowByOrder := make(map[orderLeg]ethcommon.Hash)
	orderByEscrow := make(map[ethcommon.Hash]ethcommon.Hash)

	for _, status := range []escrow.Status{escrow.StatusActive, escrow.StatusWithdrawn, escrow.StatusCancelled} {
		snaps, err := src.GetEscrowsByStatus(status)
		if err != nil {
			return 0, 0, err
		}
		for _, snap := range snaps {
			orderID, ok, err := src.OrderIDForEscrow(snap.ID)
			if err != nil {
				return 0, 0, err
			}
			if !ok || orderID != snap.Immutables.OrderHash {
				return 0, 0, fmt.Errorf("escrow %s has no matching order lookup", snap.ID.String())
			}

			e, err := escrow.Restore(*snap, r.sink)
			if err != nil {
				return 0, 0, err
			}
			escrows[snap.ID] = e
			escrowByOrder[orderLeg{orderID: orderID, leg: snap.Leg}] = snap.ID
			orderByEscrow[snap.ID] = orderID
		}
	}

	snaps, err := src.GetOrders()
	if err != nil {
		return 0, 0, err
	}
	orders := make(map[ethcommon.Hash]*partialfill.Order, len(snaps))
	for _, snap := range snaps {
		o, err := partialfill.Restore(*snap, r.validator, r.sink)
		if err != nil {
			return 0, 0, err
		}
		orders[snap.ID] = o
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range escrows {
		if _, ok := r.escrows[id]; ok {
			return 0, 0, fmt.Errorf("%w: %s", ErrEscrowExists, id.String())
		}
	}
	for key := range escrowByOrder {
		if _, ok := r.escrowByOrder[key]; ok {
			return 0, 0, fmt.Errorf("%w: order %s already has a %s escrow", ErrEscrowExists, key.orderID.String(), key.leg)
		}
	}
	for id := range orders {
		if _, ok := r.orders[id]; ok {
			return 0, 0, fmt.Errorf("%w: %s", ErrOrderExists, id.String())
		}
	}

	for id, e := range escrows {
		r.escrows[id] = e
	}
	for key, id := range escrowByOrder {
		r.escrowByOrder[key] = id
	}
	for id, orderID := range orderByEscrow {
		r.orderByEscrow[id] = orderID
	}
	for id, o := range orders {
		r.orders[id] = o
	}

	logger.WithFields(logger.Fields{
		"escrows": len(escrows),
		"orders":  len(orders),
	}).Info("registry restored")

	return len(escrows), len(orders), nil
}

// Checkpoint saves the current state of the escrow or order the event is
// about. It implements events.Checkpointer.
func (r *Registry) Checkpoint(ev agreement.Event) error {
	if r.store == nil {
		return nil
	}

	switch ev.Kind() {
	case agreement.EventPartialFillCompleted, agreement.EventOrderFullyCompleted:
		o, ok := r.OrderByID(ev.Subject())
		if !ok {
			return fmt.Errorf("unknown order %s", ev.Subject().String())
		}
		return r.store.SaveOrder(o.Snapshot())
	default:
		e, ok := r.EscrowByID(ev.Subject())
		if !ok {
			return fmt.Errorf("unknown escrow %s", ev.Subject().String())
		}
		return r.store.SaveEscrow(e.Snapshot())
	}
}
