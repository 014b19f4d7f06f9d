package settle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JournalEntry records one user operation end to end, so an interrupted
// process can resume tracking instead of losing sight of a broadcast
// transaction or live order.
type JournalEntry struct {
	Wallet    string    `json:"wallet"`
	Chain     string    `json:"chain"`
	Operation string    `json:"operation"` // "swap", "order", "transfer"
	FromToken string    `json:"from_token,omitempty"`
	ToToken   string    `json:"to_token,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Kind      Kind      `json:"kind,omitempty"`
	TxHash    string    `json:"tx_hash,omitempty"`
	OrderUID  string    `json:"order_uid,omitempty"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Settlement rebuilds the pending handle from a journaled entry, or nil when
// nothing was submitted yet.
func (e *JournalEntry) Settlement() *Settlement {
	switch e.Kind {
	case KindOnChain:
		if e.TxHash == "" {
			return nil
		}
		s := OnChain(e.Chain, e.TxHash)
		s.Status = e.Status
		s.CreatedAt = e.CreatedAt
		return s
	case KindOrder:
		if e.OrderUID == "" {
			return nil
		}
		s := OffChainOrder(e.Chain, e.OrderUID)
		s.Status = e.Status
		s.CreatedAt = e.CreatedAt
		return s
	}
	return nil
}

// Journal persists the current operation to a JSON file, written atomically.
type Journal struct {
	filePath string
	mu       sync.RWMutex
}

// NewJournal creates a journal at the given path, defaulting to a dotfile in
// the working directory.
func NewJournal(filePath string) *Journal {
	if filePath == "" {
		filePath = ".trade-intent-journal.json"
	}
	dir := filepath.Dir(filePath)
	if dir != "" && dir != "." {
		os.MkdirAll(dir, 0700)
	}
	return &Journal{filePath: filePath}
}

// Load reads the journaled entry, returning nil when none exists.
func (j *Journal) Load() (*JournalEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	data, err := os.ReadFile(j.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	var entry JournalEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse journal: %w", err)
	}
	return &entry, nil
}

// Save writes the entry to disk atomically (temp file + rename).
func (j *Journal) Save(entry *JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	tempPath := j.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write journal temp file: %w", err)
	}
	if err := os.Rename(tempPath, j.filePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save journal: %w", err)
	}
	return nil
}

// Begin journals a fresh operation before anything is submitted.
func (j *Journal) Begin(wallet, chain, operation, fromToken, toToken, amount string) (*JournalEntry, error) {
	now := time.Now().UTC()
	entry := &JournalEntry{
		Wallet:    wallet,
		Chain:     chain,
		Operation: operation,
		FromToken: fromToken,
		ToToken:   toToken,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := j.Save(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// SetSubmitted records the pending identifier right after submission.
func (j *Journal) SetSubmitted(s *Settlement) error {
	entry, err := j.Load()
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("no journaled operation to update")
	}
	entry.Kind = s.Kind
	entry.TxHash = s.TxHash
	entry.OrderUID = s.OrderUID
	entry.Status = s.Status
	return j.Save(entry)
}

// SetResolved records the terminal outcome. A tracking error is kept as
// diagnostic text, not as a verdict.
func (j *Journal) SetResolved(status Status, trackErr error) error {
	entry, err := j.Load()
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("no journaled operation to update")
	}
	entry.Status = status
	if trackErr != nil {
		entry.Error = trackErr.Error()
	}
	return j.Save(entry)
}

// Delete removes the journal file.
func (j *Journal) Delete() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.Remove(j.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete journal: %w", err)
	}
	return nil
}
