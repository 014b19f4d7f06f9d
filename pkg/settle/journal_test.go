package settle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJournal_BeginAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.json")
	j := NewJournal(path)

	entry, err := j.Begin("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1", "sepolia", "swap", "USDC", "DAI", "100")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if entry.Status != StatusPending {
		t.Errorf("Status = %s, want %s", entry.Status, StatusPending)
	}

	loaded, err := j.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected journaled entry")
	}
	if loaded.Chain != "sepolia" {
		t.Errorf("Chain = %s, want sepolia", loaded.Chain)
	}
	if loaded.Operation != "swap" {
		t.Errorf("Operation = %s, want swap", loaded.Operation)
	}
	if loaded.FromToken != "USDC" || loaded.ToToken != "DAI" {
		t.Errorf("tokens = %s -> %s, want USDC -> DAI", loaded.FromToken, loaded.ToToken)
	}
}

func TestJournal_LoadMissing(t *testing.T) {
	j := NewJournal(filepath.Join(t.TempDir(), "journal.json"))

	entry, err := j.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if entry != nil {
		t.Error("expected nil entry for missing journal")
	}
}

func TestJournal_SubmittedAndResolved(t *testing.T) {
	j := NewJournal(filepath.Join(t.TempDir(), "journal.json"))

	if _, err := j.Begin("0xwallet", "mainnet", "order", "USDC", "DAI", "50"); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	s := OffChainOrder("mainnet", "0xorderuid")
	if err := j.SetSubmitted(s); err != nil {
		t.Fatalf("SetSubmitted failed: %v", err)
	}

	entry, err := j.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if entry.OrderUID != "0xorderuid" {
		t.Errorf("OrderUID = %s, want 0xorderuid", entry.OrderUID)
	}
	if entry.Kind != KindOrder {
		t.Errorf("Kind = %s, want %s", entry.Kind, KindOrder)
	}

	if err := j.SetResolved(StatusTimedOut, errors.New("venue unreachable")); err != nil {
		t.Fatalf("SetResolved failed: %v", err)
	}
	entry, err = j.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if entry.Status != StatusTimedOut {
		t.Errorf("Status = %s, want %s", entry.Status, StatusTimedOut)
	}
	if entry.Error == "" {
		t.Error("expected diagnostic error recorded")
	}
}

func TestJournal_SettlementReconstruction(t *testing.T) {
	entry := &JournalEntry{
		Chain:     "sepolia",
		Kind:      KindOnChain,
		TxHash:    "0xabc",
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	s := entry.Settlement()
	if s == nil {
		t.Fatal("expected settlement")
	}
	if s.TxHash != "0xabc" || s.Chain != "sepolia" {
		t.Errorf("unexpected settlement: %+v", s)
	}

	// Nothing submitted yet.
	if (&JournalEntry{Status: StatusPending}).Settlement() != nil {
		t.Error("expected nil settlement before submission")
	}
}

func TestJournal_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.json")
	j := NewJournal(path)

	if _, err := j.Begin("0xwallet", "base", "transfer", "", "USDC", "10"); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := j.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("journal file should be removed")
	}

	// Deleting again is fine.
	if err := j.Delete(); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}
}
