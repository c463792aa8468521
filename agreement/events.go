package agreement

import (
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type EventKind string

const (
	EventDepositReceived       EventKind = "deposit_received"
	EventWithdrawalCompleted   EventKind = "withdrawal_completed"
	EventCancellationCompleted EventKind = "cancellation_completed"
	EventPartialFillCompleted  EventKind = "partial_fill_completed"
	EventOrderFullyCompleted   EventKind = "order_fully_completed"
	EventFundsRescued          EventKind = "funds_rescued"
)

// Event is emitted after a successful transition. Subject is the escrow id or
// the order id the event is about.
type Event interface {
	Kind() EventKind
	Subject() ethcommon.Hash
}

// DepositReceivedEvent is emitted when an escrow is created and funded.
type DepositReceivedEvent struct {
	EscrowID      ethcommon.Hash `json:"escrow_id"`
	OrderHash     ethcommon.Hash `json:"order_hash"`
	Token         Address        `json:"token"`
	Amount        uint64         `json:"amount"`
	SafetyDeposit uint64         `json:"safety_deposit"`
}

func (ev *DepositReceivedEvent) Kind() EventKind         { return EventDepositReceived }
func (ev *DepositReceivedEvent) Subject() ethcommon.Hash { return ev.EscrowID }
func (ev *DepositReceivedEvent) String() string          { return fmt.Sprintf("%+v", *ev) }

// WithdrawalCompletedEvent reveals the secret so that the counterparty can
// claim the other leg.
type WithdrawalCompletedEvent struct {
	EscrowID ethcommon.Hash `json:"escrow_id"`
	Secret   hexutil.Bytes  `json:"secret"`
}

func (ev *WithdrawalCompletedEvent) Kind() EventKind         { return EventWithdrawalCompleted }
func (ev *WithdrawalCompletedEvent) Subject() ethcommon.Hash { return ev.EscrowID }
func (ev *WithdrawalCompletedEvent) String() string          { return fmt.Sprintf("%+v", *ev) }

type CancellationCompletedEvent struct {
	EscrowID ethcommon.Hash `json:"escrow_id"`
}

func (ev *CancellationCompletedEvent) Kind() EventKind         { return EventCancellationCompleted }
func (ev *CancellationCompletedEvent) Subject() ethcommon.Hash { return ev.EscrowID }
func (ev *CancellationCompletedEvent) String() string          { return fmt.Sprintf("%+v", *ev) }

// PartialFillCompletedEvent is emitted for every accepted fill that leaves a
// non-zero remaining balance.
type PartialFillCompletedEvent struct {
	OrderID    ethcommon.Hash `json:"order_id"`
	Index      uint32         `json:"index"`
	Amount     uint64         `json:"amount"`
	Remaining  uint64         `json:"remaining"`
	Cumulative uint64         `json:"cumulative"`
}

func (ev *PartialFillCompletedEvent) Kind() EventKind         { return EventPartialFillCompleted }
func (ev *PartialFillCompletedEvent) Subject() ethcommon.Hash { return ev.OrderID }
func (ev *PartialFillCompletedEvent) String() string          { return fmt.Sprintf("%+v", *ev) }

// OrderFullyCompletedEvent replaces the partial fill event for the fill that
// drains the order.
type OrderFullyCompletedEvent struct {
	OrderID    ethcommon.Hash `json:"order_id"`
	TotalFills uint32         `json:"total_fills"`
}

func (ev *OrderFullyCompletedEvent) Kind() EventKind         { return EventOrderFullyCompleted }
func (ev *OrderFullyCompletedEvent) Subject() ethcommon.Hash { return ev.OrderID }
func (ev *OrderFullyCompletedEvent) String() string          { return fmt.Sprintf("%+v", *ev) }

type FundsRescuedEvent struct {
	EscrowID ethcommon.Hash `json:"escrow_id"`
	Asset    AssetKind      `json:"asset"`
	Token    Address        `json:"token"`
	Amount   uint64         `json:"amount"`
}

func (ev *FundsRescuedEvent) Kind() EventKind         { return EventFundsRescued }
func (ev *FundsRescuedEvent) Subject() ethcommon.Hash { return ev.EscrowID }
func (ev *FundsRescuedEvent) String() string          { return fmt.Sprintf("%+v", *ev) }
