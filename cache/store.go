package cache

import (
	"context"
	"sync"
	"time"
)

// Store is the append-only interaction log backing the cache.
//
// Implementations must be safe for concurrent use. Recent returns records of
// one action type, newest first.
type Store interface {
	Insert(ctx context.Context, rec Record) (int64, error)
	Recent(ctx context.Context, action ActionType, limit int) ([]Record, error)
	Clear(ctx context.Context) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	nextID  int64
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, now: time.Now}
}

// Insert appends rec, assigning an ID and, if unset, a timestamp.
func (s *MemoryStore) Insert(_ context.Context, rec Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	s.records = append(s.records, rec)
	return rec.ID, nil
}

// Recent returns up to limit records of the action, newest first.
// Insertion order breaks timestamp ties.
func (s *MemoryStore) Recent(_ context.Context, action ActionType, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for i := len(s.records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.records[i].Action == action {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

// Clear removes every record.
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

var _ Store = (*MemoryStore)(nil)
