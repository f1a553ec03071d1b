package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
)

// InMemoryDraftStore implements DraftStore with an in-process map. Suitable
// for single-instance deployments and tests; draft state is lost on restart.
type InMemoryDraftStore struct {
	mu      sync.RWMutex
	drafts  map[string]entry
	ttl     time.Duration
	nowFunc func() time.Time
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// NewInMemoryDraftStore creates an in-memory draft store
func NewInMemoryDraftStore(ttl time.Duration) *InMemoryDraftStore {
	return &InMemoryDraftStore{
		drafts:  make(map[string]entry),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Load returns the draft for a session, or nil if none is stored or the
// entry has expired
func (s *InMemoryDraftStore) Load(_ context.Context, sessionID string) (*settlement.VoucherDraft, error) {
	s.mu.RLock()
	e, ok := s.drafts[sessionID]
	s.mu.RUnlock()

	if !ok || s.nowFunc().After(e.expiresAt) {
		return nil, nil
	}

	var draft settlement.VoucherDraft
	if err := json.Unmarshal(e.data, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

// Save stores the draft snapshot and refreshes its TTL. Drafts round-trip
// through JSON so the in-memory store behaves like the Redis one.
func (s *InMemoryDraftStore) Save(_ context.Context, draft *settlement.VoucherDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[draft.SessionID] = entry{
		data:      data,
		expiresAt: s.nowFunc().Add(s.ttl),
	}
	return nil
}

// Clear removes the draft for a session
func (s *InMemoryDraftStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, sessionID)
	return nil
}

// Len returns the number of stored drafts, including expired ones not yet
// overwritten
func (s *InMemoryDraftStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}

// Ensure InMemoryDraftStore implements DraftStore
var _ settlement.DraftStore = (*InMemoryDraftStore)(nil)
