package settle

import (
	"fmt"
	"time"
)

// Kind discriminates the two settlement models.
type Kind string

const (
	// KindOnChain awaits block inclusion and a confirmation count.
	KindOnChain Kind = "onchain"
	// KindOrder awaits the venue's order-status enumeration.
	KindOrder Kind = "order"
)

// Status is the tracked state of a pending settlement.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed" // on-chain: mined with requested confirmations
	StatusFulfilled Status = "fulfilled" // off-chain: order matched and settled
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	// StatusUnknown means confirmation could not be observed in time. The
	// transaction may still succeed later; this is not a failure verdict.
	StatusUnknown  Status = "unknown"
	StatusTimedOut Status = "timed_out"
)

// Terminal reports whether the status ends tracking.
func (s Status) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusFulfilled, StatusCancelled, StatusExpired, StatusUnknown, StatusTimedOut:
		return true
	}
	return false
}

// Settlement is a handle to an in-flight operation: either a broadcast
// transaction or a submitted off-chain order. It is created right after
// submission and polled until a terminal status; resubmission is always the
// caller's decision, never the tracker's.
type Settlement struct {
	Kind      Kind      `json:"kind"`
	Chain     string    `json:"chain"`
	TxHash    string    `json:"tx_hash,omitempty"`
	OrderUID  string    `json:"order_uid,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// OnChain wraps a broadcast transaction hash into a pending settlement.
func OnChain(chain, txHash string) *Settlement {
	return &Settlement{
		Kind:      KindOnChain,
		Chain:     chain,
		TxHash:    txHash,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// OffChainOrder wraps a venue order UID into a pending settlement.
func OffChainOrder(chain, orderUID string) *Settlement {
	return &Settlement{
		Kind:      KindOrder,
		Chain:     chain,
		OrderUID:  orderUID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// ID returns the caller-facing identifier: the transaction hash or order UID.
func (s *Settlement) ID() string {
	if s.Kind == KindOnChain {
		return s.TxHash
	}
	return s.OrderUID
}

func (s *Settlement) String() string {
	return fmt.Sprintf("%s settlement %s on %s (%s)", s.Kind, s.ID(), s.Chain, s.Status)
}
