package intake

import (
	"context"
	"sync"
	"time"

	"pactly.app/internal/ids"
)

// Service defines intake persistence operations.
type Service interface {
	Create(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	// Update replaces the mutable fields of an intake. It fails with
	// ErrLocked once a generation attempt has started masking the record.
	Update(ctx context.Context, rec Record) (Record, error)
	ListByOwner(ctx context.Context, userID string) ([]Record, error)
	// Lock freezes the record for generation. Idempotent.
	Lock(ctx context.Context, id string) error
}

// InMemory implements Service with in-process concurrency safety.
type InMemory struct {
	mu   sync.RWMutex
	recs map[string]*Record
}

// NewInMemory creates an empty intake store.
func NewInMemory() *InMemory {
	return &InMemory{recs: make(map[string]*Record)}
}

func (s *InMemory) Create(ctx context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = ids.New()
	rec.Locked = false
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	stored := rec
	s.recs[rec.ID] = &stored
	return rec, nil
}

func (s *InMemory) Get(ctx context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *InMemory) Update(ctx context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.recs[rec.ID]
	if !ok {
		return Record{}, ErrNotFound
	}
	if cur.Locked {
		return Record{}, ErrLocked
	}
	rec.OwnerUserID = cur.OwnerUserID
	rec.CreatedAt = cur.CreatedAt
	rec.Locked = false
	rec.UpdatedAt = time.Now().UTC()
	stored := rec
	s.recs[rec.ID] = &stored
	return rec, nil
}

func (s *InMemory) ListByOwner(ctx context.Context, userID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Record
	for _, rec := range s.recs {
		if rec.OwnerUserID == userID {
			res = append(res, cloneRecord(rec))
		}
	}
	return res, nil
}

func (s *InMemory) Lock(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return ErrNotFound
	}
	rec.Locked = true
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneRecord(rec *Record) Record {
	out := *rec
	out.Assets = append([]Asset(nil), rec.Assets...)
	out.Debts = append([]Debt(nil), rec.Debts...)
	return out
}
