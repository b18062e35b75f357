package draft

import (
	"context"
	"sort"
	"sync"

	"pactly.app/internal/pii"
)

type mapRecord struct {
	masked pii.MaskedRecord
	m      *pii.Map
}

// InMemory implements Store for tests and single-process deployments.
type InMemory struct {
	mu       sync.RWMutex
	attempts map[string]*Attempt
	maps     map[string]mapRecord
	sections map[string]*Section
	comments map[string][]Comment
}

// NewInMemory creates an empty draft store.
func NewInMemory() *InMemory {
	return &InMemory{
		attempts: make(map[string]*Attempt),
		maps:     make(map[string]mapRecord),
		sections: make(map[string]*Section),
		comments: make(map[string][]Comment),
	}
}

func (s *InMemory) CreateAttempt(ctx context.Context, a *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cloneAttempt(a)
	s.attempts[a.ID] = &stored
	return nil
}

func (s *InMemory) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[id]
	if !ok {
		return Attempt{}, ErrNotFound
	}
	return cloneAttempt(a), nil
}

func (s *InMemory) UpdateAttempt(ctx context.Context, a *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[a.ID]; !ok {
		return ErrNotFound
	}
	stored := cloneAttempt(a)
	s.attempts[a.ID] = &stored
	return nil
}

func (s *InMemory) ListAttemptsByIntake(ctx context.Context, intakeID string) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Attempt
	for _, a := range s.attempts {
		if a.IntakeID == intakeID {
			res = append(res, cloneAttempt(a))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (s *InMemory) SavePIIMap(ctx context.Context, attemptID string, masked pii.MaskedRecord, m *pii.Map) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attemptID]; !ok {
		return ErrNotFound
	}
	s.maps[attemptID] = mapRecord{masked: masked, m: m}
	return nil
}

func (s *InMemory) PIIMap(ctx context.Context, attemptID string) (pii.MaskedRecord, *pii.Map, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.maps[attemptID]
	if !ok {
		return pii.MaskedRecord{}, nil, ErrNotFound
	}
	return rec.masked, rec.m, nil
}

func (s *InMemory) CreateSection(ctx context.Context, sec *Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cloneSection(sec)
	s.sections[sec.ID] = &stored
	return nil
}

func (s *InMemory) GetSection(ctx context.Context, id string) (Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.sections[id]
	if !ok {
		return Section{}, ErrNotFound
	}
	return cloneSection(sec), nil
}

func (s *InMemory) UpdateSection(ctx context.Context, sec *Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sections[sec.ID]; !ok {
		return ErrNotFound
	}
	stored := cloneSection(sec)
	s.sections[sec.ID] = &stored
	return nil
}

func (s *InMemory) ListSections(ctx context.Context, attemptID string) ([]Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Section
	for _, sec := range s.sections {
		if sec.AttemptID == attemptID {
			res = append(res, cloneSection(sec))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Position < res[j].Position })
	return res, nil
}

func (s *InMemory) CreateComment(ctx context.Context, c *Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sections[c.SectionID]; !ok {
		return ErrNotFound
	}
	s.comments[c.SectionID] = append(s.comments[c.SectionID], *c)
	return nil
}

func (s *InMemory) ListComments(ctx context.Context, sectionID string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Comment(nil), s.comments[sectionID]...), nil
}

func cloneAttempt(a *Attempt) Attempt {
	out := *a
	out.UnresolvedTokens = append([]string(nil), a.UnresolvedTokens...)
	return out
}

func cloneSection(sec *Section) Section {
	out := *sec
	out.Unresolved = append([]string(nil), sec.Unresolved...)
	return out
}
