package settle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/chains"
)

type fakeReceipts struct {
	err error
}

func (f *fakeReceipts) WaitMined(ctx context.Context, cfg *chains.ChainConfig, txHash common.Hash, confirmations uint64) (*types.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: txHash}, nil
}

func newTestTracker(receipts ReceiptSource, orders OrderStatusFunc) *Tracker {
	tr := NewTracker(receipts, orders, &chains.ChainConfig{Name: "sepolia", ChainID: big.NewInt(11155111)})
	tr.PollInterval = time.Millisecond
	tr.ConfirmTimeout = time.Second
	return tr
}

func TestTracker_OnChainConfirmed(t *testing.T) {
	tr := newTestTracker(&fakeReceipts{}, nil)

	s := OnChain("sepolia", "0xabc123")
	status, err := tr.Track(context.Background(), s)
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if status != StatusConfirmed {
		t.Errorf("status = %s, want %s", status, StatusConfirmed)
	}
	if s.Status != StatusConfirmed {
		t.Errorf("handle status not recorded: %s", s.Status)
	}
}

func TestTracker_OnChainUnobservedIsUnknown(t *testing.T) {
	tr := newTestTracker(&fakeReceipts{err: errors.New("rpc unreachable")}, nil)

	s := OnChain("sepolia", "0xabc123")
	status, err := tr.Track(context.Background(), s)
	if err == nil {
		t.Fatal("expected diagnostic error")
	}
	if status != StatusUnknown {
		t.Errorf("status = %s, want %s (unobserved is not failed)", status, StatusUnknown)
	}
}

func TestTracker_OrderWithoutStatusSource(t *testing.T) {
	tr := newTestTracker(&fakeReceipts{}, nil)

	s := OffChainOrder("sepolia", "0xorphaned")
	status, err := tr.Track(context.Background(), s)
	if err == nil {
		t.Fatal("expected error when no order status source is configured")
	}
	if status != StatusUnknown {
		t.Errorf("status = %s, want %s", status, StatusUnknown)
	}
}

func TestTracker_OrderOpenThenFulfilled(t *testing.T) {
	statuses := []string{"open", "open", "fulfilled"}
	calls := 0
	orders := func(ctx context.Context, uid string) (string, error) {
		raw := statuses[calls]
		calls++
		return raw, nil
	}

	tr := newTestTracker(nil, orders)
	s := OffChainOrder("mainnet", "0xorderuid")
	status, err := tr.Track(context.Background(), s)
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if status != StatusFulfilled {
		t.Errorf("status = %s, want %s", status, StatusFulfilled)
	}
	if calls != 3 {
		t.Errorf("polled %d times, want 3", calls)
	}
}

func TestTracker_OrderTerminalStates(t *testing.T) {
	cases := []struct {
		raw  string
		want Status
	}{
		{"fulfilled", StatusFulfilled},
		{"cancelled", StatusCancelled},
		{"expired", StatusExpired},
		{"somethingNew", StatusUnknown},
	}
	for _, tc := range cases {
		orders := func(ctx context.Context, uid string) (string, error) {
			return tc.raw, nil
		}
		tr := newTestTracker(nil, orders)
		status, err := tr.Track(context.Background(), OffChainOrder("mainnet", "0xuid"))
		if err != nil {
			t.Fatalf("Track(%s) failed: %v", tc.raw, err)
		}
		if status != tc.want {
			t.Errorf("Track(%s) = %s, want %s", tc.raw, status, tc.want)
		}
	}
}

func TestTracker_OrderPollBudgetExhausted(t *testing.T) {
	orders := func(ctx context.Context, uid string) (string, error) {
		return "open", nil
	}

	tr := newTestTracker(nil, orders)
	tr.MaxAttempts = 3

	s := OffChainOrder("mainnet", "0xuid")
	status, err := tr.Track(context.Background(), s)
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	if status != StatusTimedOut {
		t.Errorf("status = %s, want %s", status, StatusTimedOut)
	}
}

func TestTracker_OrderTransientErrorsKeepPolling(t *testing.T) {
	calls := 0
	orders := func(ctx context.Context, uid string) (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("venue unavailable")
		}
		return "fulfilled", nil
	}

	tr := newTestTracker(nil, orders)
	status, err := tr.Track(context.Background(), OffChainOrder("mainnet", "0xuid"))
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if status != StatusFulfilled {
		t.Errorf("status = %s, want %s", status, StatusFulfilled)
	}
}

func TestTracker_OrderContextCancelled(t *testing.T) {
	orders := func(ctx context.Context, uid string) (string, error) {
		return "open", nil
	}

	tr := newTestTracker(nil, orders)
	tr.PollInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status, err := tr.Track(ctx, OffChainOrder("mainnet", "0xuid"))
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	if status != StatusTimedOut {
		t.Errorf("status = %s, want %s", status, StatusTimedOut)
	}
}

func TestStatus_Terminal(t *testing.T) {
	if StatusPending.Terminal() {
		t.Error("pending must not be terminal")
	}
	for _, s := range []Status{StatusConfirmed, StatusFulfilled, StatusCancelled, StatusExpired, StatusUnknown, StatusTimedOut} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestSettlement_ID(t *testing.T) {
	if got := OnChain("sepolia", "0xhash").ID(); got != "0xhash" {
		t.Errorf("ID = %s, want 0xhash", got)
	}
	if got := OffChainOrder("mainnet", "0xuid").ID(); got != "0xuid" {
		t.Errorf("ID = %s, want 0xuid", got)
	}
}
