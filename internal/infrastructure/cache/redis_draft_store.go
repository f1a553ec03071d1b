package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const defaultDraftKeyPrefix = "settlement:draft:"

// RedisDraftStore implements DraftStore using Redis. Draft snapshots are
// serialized as JSON and expire after the configured TTL, so abandoned
// sessions clean themselves up.
type RedisDraftStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisDraftStore creates a Redis-backed draft store and verifies the
// connection
func NewRedisDraftStore(cfg config.RedisConfig, ttl time.Duration) (*RedisDraftStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisDraftStore{
		client:    client,
		keyPrefix: defaultDraftKeyPrefix,
		ttl:       ttl,
	}, nil
}

// NewRedisDraftStoreWithClient creates a store with an existing Redis client.
// Useful for testing or when sharing a client across components.
func NewRedisDraftStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisDraftStore {
	if keyPrefix == "" {
		keyPrefix = defaultDraftKeyPrefix
	}
	return &RedisDraftStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Load returns the draft for a session, or nil if none is stored
func (s *RedisDraftStore) Load(ctx context.Context, sessionID string) (*settlement.VoucherDraft, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	var draft settlement.VoucherDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return &draft, nil
}

// Save stores the draft snapshot and refreshes its TTL
func (s *RedisDraftStore) Save(ctx context.Context, draft *settlement.VoucherDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+draft.SessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Clear removes the draft for a session; clearing an absent session is not
// an error
func (s *RedisDraftStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisDraftStore) Close() error {
	return s.client.Close()
}

// Ensure RedisDraftStore implements DraftStore
var _ settlement.DraftStore = (*RedisDraftStore)(nil)
