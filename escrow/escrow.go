// Package escrow implements the custody state machine of one swap leg. An
// escrow holds the swapped token and a native safety deposit, and releases
// them exactly once: either to the recipient after the secret is revealed,
// or back to the depositor after the cancellation stage.
package escrow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/TEENet-io/escrow-go/agreement"
	"github.com/TEENet-io/escrow-go/balance"
	"github.com/TEENet-io/escrow-go/capability"
	"github.com/TEENet-io/escrow-go/common"
	"github.com/TEENet-io/escrow-go/hashlock"
	"github.com/TEENet-io/escrow-go/timelock"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

var (
	ErrNotSourceLeg  = errors.New("withdraw to another target is only allowed on the source leg")
	ErrUnknownAsset  = errors.New("unknown asset")
	ErrUnknownLeg    = errors.New("unknown leg")
	ErrUnknownStatus = errors.New("unknown status")
)

type Leg uint8

const (
	Source Leg = iota
	Destination
)

func (l Leg) String() string {
	if l == Source {
		return "src"
	}
	return "dst"
}

func ParseLeg(s string) (Leg, error) {
	switch s {
	case "src":
		return Source, nil
	case "dst":
		return Destination, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLeg, s)
}

type Status string

const (
	StatusActive    Status = "active"
	StatusWithdrawn Status = "withdrawn"
	StatusCancelled Status = "cancelled"
)

// Transfer is a balance released by the escrow together with where it
// should be delivered. Token is zero for native transfers.
type Transfer struct {
	To     agreement.Address
	Asset  agreement.AssetKind
	Token  agreement.Address
	Amount *balance.Balance
}

// Payout is the result of a successful withdrawal or cancellation.
type Payout struct {
	Funds         Transfer
	SafetyDeposit Transfer
}

type Escrow struct {
	mu sync.Mutex

	leg         Leg
	id          ethcommon.Hash
	imm         Immutables
	schedule    timelock.Schedule
	rescueDelay uint64

	token  *balance.Balance
	native *balance.Balance

	withdrawn bool
	cancelled bool

	sink agreement.EventSink
}

// New creates a funded escrow. The immutables must already carry the
// deployment time.
func New(
	leg Leg,
	id ethcommon.Hash,
	imm Immutables,
	rescueDelay uint64,
	token, native *balance.Balance,
	sink agreement.EventSink,
) (*Escrow, error) {
	schedule, err := imm.Timelocks.Schedule()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", agreement.ErrMalformedImmutables, err)
	}
	if token == nil {
		token = balance.Zero()
	}
	if native == nil {
		native = balance.Zero()
	}
	if sink == nil {
		sink = agreement.NopSink{}
	}

	return &Escrow{
		leg:         leg,
		id:          id,
		imm:         imm,
		schedule:    schedule,
		rescueDelay: rescueDelay,
		token:       token,
		native:      native,
		sink:        sink,
	}, nil
}

// Restore rebuilds an escrow from a snapshot, including its terminal state.
// Nothing is emitted.
func Restore(snap Snapshot, sink agreement.EventSink) (*Escrow, error) {
	e, err := New(snap.Leg, snap.ID, snap.Immutables, snap.RescueDelay,
		balance.New(snap.Token), balance.New(snap.Native), sink)
	if err != nil {
		return nil, err
	}

	switch snap.Status {
	case StatusActive:
	case StatusWithdrawn:
		e.withdrawn = true
	case StatusCancelled:
		e.cancelled = true
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, snap.Status)
	}
	return e, nil
}

func (e *Escrow) ID() ethcommon.Hash          { return e.id }
func (e *Escrow) Leg() Leg                    { return e.leg }
func (e *Escrow) Immutables() Immutables      { return e.imm }
func (e *Escrow) Schedule() timelock.Schedule { return e.schedule }
func (e *Escrow) RescueDelay() uint64         { return e.rescueDelay }

func (e *Escrow) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status()
}

func (e *Escrow) status() Status {
	switch {
	case e.withdrawn:
		return StatusWithdrawn
	case e.cancelled:
		return StatusCancelled
	default:
		return StatusActive
	}
}

func (e *Escrow) TokenBalance() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.token.Value()
}

func (e *Escrow) NativeBalance() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.native.Value()
}

// Withdraw releases the funds to the recipient of this leg against the
// secret. Only the taker may call it, between the withdrawal and the
// cancellation stage. On the source leg the taker receives the funds; on the
// destination leg they go to the maker.
func (e *Escrow) Withdraw(ctx agreement.TxContext, secret []byte) (*Payout, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	recipient := e.imm.Maker
	if e.leg == Source {
		recipient = ctx.Sender
	}
	return e.withdraw("withdraw", ctx, secret, recipient)
}

// WithdrawTo is Withdraw with an explicit recipient for the funds. The safety
// deposit still goes to the caller.
func (e *Escrow) WithdrawTo(ctx agreement.TxContext, secret []byte, target agreement.Address) (*Payout, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.leg != Source {
		return nil, e.reject("withdraw_to", ErrNotSourceLeg)
	}
	return e.withdraw("withdraw_to", ctx, secret, target)
}

func (e *Escrow) withdraw(op string, ctx agreement.TxContext, secret []byte, recipient agreement.Address) (*Payout, error) {
	if err := e.checkActive(); err != nil {
		return nil, e.reject(op, err)
	}
	if err := capability.CheckCaller(ctx, e.imm.Taker); err != nil {
		return nil, e.reject(op, err)
	}
	withdrawal, _, cancellation, _ := e.stages()
	if err := e.schedule.Window(withdrawal, cancellation, ctx.Timestamp); err != nil {
		return nil, e.reject(op, err)
	}
	if err := hashlock.Check(secret, e.imm.Hashlock); err != nil {
		return nil, e.reject(op, err)
	}

	payout, err := e.release(recipient, ctx.Sender)
	if err != nil {
		return nil, e.reject(op, err)
	}
	e.withdrawn = true
	e.done(op, ctx)

	e.sink.Emit(&agreement.WithdrawalCompletedEvent{EscrowID: e.id, Secret: append([]byte(nil), secret...)})
	return payout, nil
}

// PublicWithdraw can be called by anyone presenting an access token once the
// public withdrawal stage has started. The funds always go to the intended
// recipient of the leg; the caller receives the safety deposit.
func (e *Escrow) PublicWithdraw(ctx agreement.TxContext, secret []byte, token *capability.AccessToken) (*Payout, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	const op = "public_withdraw"
	if err := e.checkActive(); err != nil {
		return nil, e.reject(op, err)
	}
	if err := capability.CheckAccess(token); err != nil {
		return nil, e.reject(op, err)
	}
	_, publicWithdrawal, cancellation, _ := e.stages()
	if err := e.schedule.Window(publicWithdrawal, cancellation, ctx.Timestamp); err != nil {
		return nil, e.reject(op, err)
	}
	if err := hashlock.Check(secret, e.imm.Hashlock); err != nil {
		return nil, e.reject(op, err)
	}

	payout, err := e.release(e.withdrawRecipient(), ctx.Sender)
	if err != nil {
		return nil, e.reject(op, err)
	}
	e.withdrawn = true
	e.done(op, ctx)

	e.sink.Emit(&agreement.WithdrawalCompletedEvent{EscrowID: e.id, Secret: append([]byte(nil), secret...)})
	return payout, nil
}

// Cancel refunds the depositor of the leg: the maker on the source leg and
// the taker on the destination leg. Only the taker may call it once the
// cancellation stage has started.
func (e *Escrow) Cancel(ctx agreement.TxContext) (*Payout, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	const op = "cancel"
	if err := e.checkActive(); err != nil {
		return nil, e.reject(op, err)
	}
	if err := capability.CheckCaller(ctx, e.imm.Taker); err != nil {
		return nil, e.reject(op, err)
	}
	_, _, cancellation, _ := e.stages()
	if err := e.schedule.OnlyAfter(cancellation, ctx.Timestamp); err != nil {
		return nil, e.reject(op, err)
	}

	return e.cancel(op, ctx)
}

// PublicCancel is Cancel for anyone holding an access token, from the public
// cancellation stage on.
func (e *Escrow) PublicCancel(ctx agreement.TxContext, token *capability.AccessToken) (*Payout, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	const op = "public_cancel"
	if err := e.checkActive(); err != nil {
		return nil, e.reject(op, err)
	}
	if err := capability.CheckAccess(token); err != nil {
		return nil, e.reject(op, err)
	}
	_, _, _, publicCancellation := e.stages()
	if err := e.schedule.OnlyAfter(publicCancellation, ctx.Timestamp); err != nil {
		return nil, e.reject(op, err)
	}

	return e.cancel(op, ctx)
}

func (e *Escrow) cancel(op string, ctx agreement.TxContext) (*Payout, error) {
	payout, err := e.release(e.refundRecipient(), ctx.Sender)
	if err != nil {
		return nil, e.reject(op, err)
	}
	e.cancelled = true
	e.done(op, ctx)

	e.sink.Emit(&agreement.CancellationCompletedEvent{EscrowID: e.id})
	return payout, nil
}

// RescueFunds lets the taker move any amount of either balance out of the
// escrow after the rescue delay, whatever the escrow status. It also requires
// the owner capability of the escrow.
func (e *Escrow) RescueFunds(
	ctx agreement.TxContext,
	owner *capability.OwnerCap,
	asset agreement.AssetKind,
	amount uint64,
) (*Transfer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	const op = "rescue_funds"
	if err := capability.CheckCaller(ctx, e.imm.Taker); err != nil {
		return nil, e.reject(op, err)
	}
	if err := capability.CheckOwner(owner, e.id); err != nil {
		return nil, e.reject(op, err)
	}
	if err := timelock.OnlyAfter(e.schedule.RescueStart(e.rescueDelay), ctx.Timestamp); err != nil {
		return nil, e.reject(op, fmt.Errorf("%w: rescue", err))
	}

	var (
		from  *balance.Balance
		token agreement.Address
	)
	switch asset {
	case agreement.AssetToken:
		from, token = e.token, e.imm.Token
	case agreement.AssetNative:
		from = e.native
	default:
		return nil, e.reject(op, fmt.Errorf("%w: %d", ErrUnknownAsset, asset))
	}

	out, err := from.Split(amount)
	if err != nil {
		return nil, e.reject(op, err)
	}
	e.done(op, ctx)

	e.sink.Emit(&agreement.FundsRescuedEvent{EscrowID: e.id, Asset: asset, Token: token, Amount: amount})
	return &Transfer{To: ctx.Sender, Asset: asset, Token: token, Amount: out}, nil
}

// Snapshot is a point-in-time copy of the escrow state.
type Snapshot struct {
	ID          ethcommon.Hash
	Leg         Leg
	Immutables  Immutables
	RescueDelay uint64
	Token       uint64
	Native      uint64
	Status      Status
}

func (e *Escrow) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		ID:          e.id,
		Leg:         e.leg,
		Immutables:  e.imm,
		RescueDelay: e.rescueDelay,
		Token:       e.token.Value(),
		Native:      e.native.Value(),
		Status:      e.status(),
	}
}

func (e *Escrow) checkActive() error {
	if e.withdrawn || e.cancelled {
		return fmt.Errorf("%w: escrow %s is %s", agreement.ErrAlreadyFinalized, e.id.String(), e.status())
	}
	return nil
}

func (e *Escrow) stages() (withdrawal, publicWithdrawal, cancellation, publicCancellation timelock.Stage) {
	if e.leg == Source {
		return timelock.SrcWithdrawal, timelock.SrcPublicWithdrawal, timelock.SrcCancellation, timelock.SrcPublicCancellation
	}
	return timelock.DstWithdrawal, timelock.DstPublicWithdrawal, timelock.DstCancellation, timelock.DstPublicCancellation
}

func (e *Escrow) withdrawRecipient() agreement.Address {
	if e.leg == Source {
		return e.imm.Taker
	}
	return e.imm.Maker
}

func (e *Escrow) refundRecipient() agreement.Address {
	if e.leg == Source {
		return e.imm.Maker
	}
	return e.imm.Taker
}

// release moves the swapped amount to recipient and the whole safety deposit
// to caller. Nothing is moved if the token balance is short.
func (e *Escrow) release(recipient, caller agreement.Address) (*Payout, error) {
	funds, err := e.token.Split(e.imm.Amount)
	if err != nil {
		return nil, err
	}
	deposit := e.native.Withdraw()

	return &Payout{
		Funds: Transfer{
			To:     recipient,
			Asset:  agreement.AssetToken,
			Token:  e.imm.Token,
			Amount: funds,
		},
		SafetyDeposit: Transfer{
			To:     caller,
			Asset:  agreement.AssetNative,
			Amount: deposit,
		},
	}, nil
}

func (e *Escrow) reject(op string, err error) error {
	logger.WithFields(logger.Fields{
		"escrow": common.Shorten(e.id.String(), 8),
		"leg":    e.leg,
		"op":     op,
	}).Debugf("rejected: %v", err)
	return err
}

func (e *Escrow) done(op string, ctx agreement.TxContext) {
	logger.WithFields(logger.Fields{
		"escrow": common.Shorten(e.id.String(), 8),
		"leg":    e.leg,
		"op":     op,
		"time":   ctx.Timestamp,
	}).Debug("escrow transition")
}
