package settle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/chains"
)

// ErrTimedOut means the tracker exhausted its attempt budget without
// observing a terminal state. The settlement may still resolve later.
var ErrTimedOut = errors.New("settlement tracking timed out")

// ReceiptSource waits for a transaction to be mined with the requested
// confirmation count. Satisfied by the wallet signer.
type ReceiptSource interface {
	WaitMined(ctx context.Context, cfg *chains.ChainConfig, txHash common.Hash, confirmations uint64) (*types.Receipt, error)
}

// OrderStatusFunc reads the venue's current status string for an order UID.
type OrderStatusFunc func(ctx context.Context, uid string) (string, error)

// Tracker resolves pending settlements to a terminal status. It is written
// once against the Settlement variant; the two settlement models plug in as
// sources.
type Tracker struct {
	Receipts ReceiptSource
	Orders   OrderStatusFunc
	Cfg      *chains.ChainConfig

	// PollInterval separates order-status polls.
	PollInterval time.Duration
	// MaxAttempts bounds order polling; exhaustion yields StatusTimedOut
	// rather than looping forever.
	MaxAttempts int
	// Confirmations is the confirmation count an on-chain settlement awaits.
	Confirmations uint64
	// ConfirmTimeout bounds the on-chain receipt wait.
	ConfirmTimeout time.Duration
}

// NewTracker returns a tracker with the default bounds: 3 second polls, 200
// attempts (about ten minutes), one confirmation, five minute receipt wait.
func NewTracker(receipts ReceiptSource, orders OrderStatusFunc, cfg *chains.ChainConfig) *Tracker {
	return &Tracker{
		Receipts:       receipts,
		Orders:         orders,
		Cfg:            cfg,
		PollInterval:   3 * time.Second,
		MaxAttempts:    200,
		Confirmations:  1,
		ConfirmTimeout: 5 * time.Minute,
	}
}

// Track polls the settlement until it reaches a terminal status and records
// that status on the handle. The returned error carries diagnostics for
// unknown and timed-out outcomes; the status itself is always usable.
func (t *Tracker) Track(ctx context.Context, s *Settlement) (Status, error) {
	var (
		status Status
		err    error
	)
	switch s.Kind {
	case KindOnChain:
		status, err = t.trackOnChain(ctx, s)
	case KindOrder:
		status, err = t.trackOrder(ctx, s)
	default:
		return StatusUnknown, fmt.Errorf("unknown settlement kind %q", s.Kind)
	}
	s.Status = status
	return status, err
}

// trackOnChain awaits the configured confirmation count. A wait that errors
// out is reported as unknown, not failed: the transaction is already
// broadcast and may still be included.
func (t *Tracker) trackOnChain(ctx context.Context, s *Settlement) (Status, error) {
	waitCtx, cancel := context.WithTimeout(ctx, t.ConfirmTimeout)
	defer cancel()

	_, err := t.Receipts.WaitMined(waitCtx, t.Cfg, common.HexToHash(s.TxHash), t.Confirmations)
	if err != nil {
		return StatusUnknown, fmt.Errorf("confirmation not observed for %s: %w", s.TxHash, err)
	}
	return StatusConfirmed, nil
}

// trackOrder polls the venue while the order stays open, up to MaxAttempts.
func (t *Tracker) trackOrder(ctx context.Context, s *Settlement) (Status, error) {
	if t.Orders == nil {
		return StatusUnknown, fmt.Errorf("no order status source configured for %s", s.OrderUID)
	}

	ticker := time.NewTicker(t.PollInterval)
	defer ticker.Stop()

	var lastErr error
	for attempt := 0; attempt < t.MaxAttempts; attempt++ {
		raw, err := t.Orders(ctx, s.OrderUID)
		if err != nil {
			// Transient venue errors do not end tracking; the order is
			// already on the book.
			lastErr = err
			log.Printf("order %s status poll failed: %v", s.OrderUID, err)
		} else if status, terminal := mapOrderStatus(raw); terminal {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return StatusTimedOut, fmt.Errorf("%w: %v", ErrTimedOut, ctx.Err())
		case <-ticker.C:
		}
	}

	if lastErr != nil {
		return StatusTimedOut, fmt.Errorf("%w after %d attempts (last error: %v)", ErrTimedOut, t.MaxAttempts, lastErr)
	}
	return StatusTimedOut, fmt.Errorf("%w after %d attempts", ErrTimedOut, t.MaxAttempts)
}

// mapOrderStatus translates the venue's status enumeration. "open" (and the
// pre-signing limbo state) keep the poll going; everything else is terminal.
func mapOrderStatus(raw string) (Status, bool) {
	switch raw {
	case "open", "presignaturePending":
		return StatusPending, false
	case "fulfilled":
		return StatusFulfilled, true
	case "cancelled":
		return StatusCancelled, true
	case "expired":
		return StatusExpired, true
	default:
		return StatusUnknown, true
	}
}
