// Package history keeps a per-wallet record of resolved settlements in
// Redis, so callers can show past activity without re-scanning chains.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/settle"
)

// Entry is one recorded operation.
type Entry struct {
	Wallet     string             `json:"wallet"`
	Settlement *settle.Settlement `json:"settlement"`
	RecordedAt time.Time          `json:"recorded_at"`
}

// Config describes the Redis connection.
type Config struct {
	Address  string
	Password string
	DB       int

	// Retention bounds how long entries live; zero keeps them forever.
	Retention time.Duration
	// MaxEntries caps the list length per wallet.
	MaxEntries int64
}

// Store writes settlement history to a Redis list per wallet, newest first.
type Store struct {
	client     *redis.Client
	retention  time.Duration
	maxEntries int64
}

// NewStore connects to Redis and verifies the connection.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is required")
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 500
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Store{client: client, retention: cfg.Retention, maxEntries: maxEntries}, nil
}

func key(wallet string) string {
	return "trade-intent:history:" + wallet
}

// Record appends a settlement to the wallet's history.
func (s *Store) Record(ctx context.Context, wallet string, settlement *settle.Settlement) error {
	entry := Entry{
		Wallet:     wallet,
		Settlement: settlement,
		RecordedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	k := key(wallet)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, k, data)
	pipe.LTrim(ctx, k, 0, s.maxEntries-1)
	if s.retention > 0 {
		pipe.Expire(ctx, k, s.retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

// Recent returns up to limit entries for a wallet, newest first.
func (s *Store) Recent(ctx context.Context, wallet string, limit int64) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := s.client.LRange(ctx, key(wallet), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Clear removes a wallet's history.
func (s *Store) Clear(ctx context.Context, wallet string) error {
	if err := s.client.Del(ctx, key(wallet)).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
