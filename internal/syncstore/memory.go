package syncstore

import (
	"context"
	"sync"

	"github.com/weiawesome/watch-party/internal/domain"
)

type slot struct {
	mu       sync.RWMutex
	snapshot *domain.SyncSnapshot
}

// MemoryStore keeps snapshots in process. Each room has its own slot lock;
// the slot map lock is held only to find or create a slot.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string]*slot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]*slot)}
}

func (s *MemoryStore) slot(roomID string, create bool) *slot {
	s.mu.RLock()
	sl, ok := s.slots[roomID]
	s.mu.RUnlock()
	if ok || !create {
		return sl
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok = s.slots[roomID]; !ok {
		sl = &slot{}
		s.slots[roomID] = sl
	}
	return sl
}

func (s *MemoryStore) Set(_ context.Context, roomID string, snapshot domain.SyncSnapshot) error {
	sl := s.slot(roomID, true)
	sl.mu.Lock()
	sl.snapshot = &snapshot
	sl.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, roomID string) (*domain.SyncSnapshot, error) {
	sl := s.slot(roomID, false)
	if sl == nil {
		return nil, nil
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	if sl.snapshot == nil {
		return nil, nil
	}
	cp := *sl.snapshot
	return &cp, nil
}

var _ Store = (*MemoryStore)(nil)
