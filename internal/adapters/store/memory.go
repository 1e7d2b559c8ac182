// Package store provides an in-memory implementation of the meme
// repository. It is the default backing store for the local profile and
// for tests; the sqlite subpackage provides the durable variant.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/jsamuelsen/meme-exchange/internal/domain"
	"github.com/jsamuelsen/meme-exchange/internal/ports"
)

// Ensure MemoryStore implements the repository port.
var _ ports.MemeRepository = (*MemoryStore)(nil)

// MemoryStore keeps the authoritative records in a map guarded by a
// single mutex. Holding the lock across each conditional mutation gives
// the per-record check-then-set serialization the repository contract
// requires; no I/O happens under the lock.
type MemoryStore struct {
	mu    sync.RWMutex
	memes map[string]*domain.Meme
	seq   map[string]int64
	next  int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		memes: make(map[string]*domain.Meme),
		seq:   make(map[string]int64),
	}
}

// GetByID implements ports.MemeRepository.
func (s *MemoryStore) GetByID(_ context.Context, id string) (*domain.Meme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meme, ok := s.memes[id]
	if !ok {
		return nil, domain.NewNotFoundError("meme", id)
	}

	return meme.Clone(), nil
}

// Create implements ports.MemeRepository.
func (s *MemoryStore) Create(_ context.Context, meme *domain.Meme) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.memes[meme.ID]; exists {
		return domain.NewConflictError("meme", "id already exists")
	}

	s.next++
	s.seq[meme.ID] = s.next
	s.memes[meme.ID] = meme.Clone()

	return nil
}

// List implements ports.MemeRepository. Records come back in creation
// order, which the ranking service relies on for stable tie-breaking.
func (s *MemoryStore) List(_ context.Context) ([]*domain.Meme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	memes := make([]*domain.Meme, 0, len(s.memes))
	for _, meme := range s.memes {
		memes = append(memes, meme.Clone())
	}

	sort.Slice(memes, func(i, j int) bool {
		return s.seq[memes[i].ID] < s.seq[memes[j].ID]
	})

	return memes, nil
}

// Delete implements ports.MemeRepository.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.memes[id]; !ok {
		return domain.NewNotFoundError("meme", id)
	}

	delete(s.memes, id)
	delete(s.seq, id)

	return nil
}

// CompareAndSetBid implements ports.MemeRepository. The comparison and
// the write happen under the store lock, so two bids racing against the
// same stale highest bid resolve to exactly one winner.
func (s *MemoryStore) CompareAndSetBid(_ context.Context, id, bidderID string, amount int) (*domain.Meme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meme, ok := s.memes[id]
	if !ok {
		return nil, domain.NewNotFoundError("meme", id)
	}

	if err := meme.AcceptBid(bidderID, amount); err != nil {
		return nil, err
	}

	return meme.Clone(), nil
}

// AdjustVotes implements ports.MemeRepository.
func (s *MemoryStore) AdjustVotes(_ context.Context, id string, delta int) (*domain.Meme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meme, ok := s.memes[id]
	if !ok {
		return nil, domain.NewNotFoundError("meme", id)
	}

	meme.AdjustVotes(delta)

	return meme.Clone(), nil
}
