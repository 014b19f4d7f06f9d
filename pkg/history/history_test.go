package history

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/settle"
)

const testWallet = "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewStore(Config{Address: mr.Addr()})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := settle.OnChain("sepolia", "0xaaa")
	second := settle.OffChainOrder("mainnet", "0xbbb")
	if err := s.Record(ctx, testWallet, first); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := s.Record(ctx, testWallet, second); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := s.Recent(ctx, testWallet, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Newest first.
	if entries[0].Settlement.ID() != "0xbbb" {
		t.Errorf("first entry = %s, want 0xbbb", entries[0].Settlement.ID())
	}
	if entries[1].Settlement.ID() != "0xaaa" {
		t.Errorf("second entry = %s, want 0xaaa", entries[1].Settlement.ID())
	}
}

func TestStore_RecentEmpty(t *testing.T) {
	s := newTestStore(t)

	entries, err := s.Recent(context.Background(), testWallet, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestStore_TrimToMaxEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewStore(Config{Address: mr.Addr(), MaxEntries: 3})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	for _, id := range []string{"0x1", "0x2", "0x3", "0x4", "0x5"} {
		if err := s.Record(ctx, testWallet, settle.OnChain("sepolia", id)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := s.Recent(ctx, testWallet, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Settlement.ID() != "0x5" {
		t.Errorf("newest entry = %s, want 0x5", entries[0].Settlement.ID())
	}
}

func TestStore_Clear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, testWallet, settle.OnChain("sepolia", "0xaaa")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := s.Clear(ctx, testWallet); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	entries, err := s.Recent(ctx, testWallet, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("history should be empty after Clear")
	}
}
