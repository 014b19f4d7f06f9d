package settle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// WALRecord is the per-settlement write-ahead entry. One file per settlement
// under the WAL directory lets crash recovery resume every pending handle
// independently.
type WALRecord struct {
	Settlement *Settlement `json:"settlement"`
	Attempts   int         `json:"attempts"`
	LastError  string      `json:"last_error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// WAL stores settlement records as JSON files keyed by settlement ID.
type WAL struct {
	dir string
	mu  sync.RWMutex
}

// NewWAL creates a write-ahead log rooted at dir.
func NewWAL(dir string) *WAL {
	if dir == "" {
		dir = ".trade-intent-wal"
	}
	return &WAL{dir: dir}
}

func (w *WAL) ensureDir() error {
	return os.MkdirAll(w.dir, 0700)
}

func (w *WAL) path(id string) string {
	// Settlement IDs contain ':' which is unfriendly on some filesystems.
	safe := strings.ReplaceAll(id, ":", "_")
	return filepath.Join(w.dir, safe+".json")
}

// Save writes the record atomically (temp file + rename).
func (w *WAL) Save(rec *WALRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if rec.Settlement == nil {
		return fmt.Errorf("wal record has no settlement")
	}
	if err := w.ensureDir(); err != nil {
		return fmt.Errorf("failed to create wal directory: %w", err)
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal wal record: %w", err)
	}

	target := w.path(rec.Settlement.ID())
	tempPath := target + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write wal temp file: %w", err)
	}
	if err := os.Rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save wal record: %w", err)
	}
	return nil
}

// Load reads the record for a settlement ID, returning nil when absent.
func (w *WAL) Load(id string) (*WALRecord, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	data, err := os.ReadFile(w.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read wal record: %w", err)
	}

	var rec WALRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse wal record: %w", err)
	}
	return &rec, nil
}

// Delete removes the record for a settlement ID.
func (w *WAL) Delete(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.Remove(w.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete wal record: %w", err)
	}
	return nil
}

// Exists reports whether a record is present for a settlement ID.
func (w *WAL) Exists(id string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	_, err := os.Stat(w.path(id))
	return err == nil
}

// List returns every record currently in the log.
func (w *WAL) List() ([]*WALRecord, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read wal directory: %w", err)
	}

	var records []*WALRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(w.dir, entry.Name()))
		if err != nil {
			continue
		}
		var rec WALRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}
	return records, nil
}

// Pending returns records whose settlement has not reached a terminal status.
func (w *WAL) Pending() ([]*WALRecord, error) {
	records, err := w.List()
	if err != nil {
		return nil, err
	}
	var pending []*WALRecord
	for _, rec := range records {
		if rec.Settlement != nil && !rec.Settlement.Status.Terminal() {
			pending = append(pending, rec)
		}
	}
	return pending, nil
}

// CleanupOld deletes records not updated within maxAge. Returns how many were
// removed.
func (w *WAL) CleanupOld(maxAge time.Duration) (int, error) {
	records, err := w.List()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0
	for _, rec := range records {
		if rec.Settlement == nil {
			continue
		}
		if rec.UpdatedAt.Before(cutoff) {
			if err := w.Delete(rec.Settlement.ID()); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
