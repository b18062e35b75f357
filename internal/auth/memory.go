package auth

import (
	"context"
	"sync"
)

// MemStore is an in-process Store used by tests and single-node demos.
type MemStore struct {
	mu      sync.RWMutex
	users   map[string]*User
	byEmail map[string]string
	tokens  map[string]*RefreshToken
	grants  map[string]map[string]Grant // intakeID -> userID -> grant
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
		tokens:  make(map[string]*RefreshToken),
		grants:  make(map[string]map[string]Grant),
	}
}

func (s *MemStore) Users(ctx context.Context) UserStore                 { return (*memUsers)(s) }
func (s *MemStore) RefreshTokens(ctx context.Context) RefreshTokenStore { return (*memTokens)(s) }
func (s *MemStore) Grants(ctx context.Context) GrantStore               { return (*memGrants)(s) }

type memUsers MemStore

func (s *memUsers) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[u.Email]; exists {
		return ErrAlreadyExists
	}
	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *memUsers) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *memUsers) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

type memTokens MemStore

func (s *memTokens) Create(ctx context.Context, tok *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tok
	s.tokens[tok.ID] = &cp
	return nil
}

func (s *memTokens) Find(ctx context.Context, id string) (*RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tok
	return &cp, nil
}

func (s *memTokens) MarkRevoked(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[id]
	if !ok {
		return ErrNotFound
	}
	tok.Revoked = true
	return nil
}

func (s *memTokens) MarkRevokedByUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tok := range s.tokens {
		if tok.UserID == userID {
			tok.Revoked = true
		}
	}
	return nil
}

type memGrants MemStore

func (s *memGrants) Upsert(ctx context.Context, g Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byUser, ok := s.grants[g.IntakeID]
	if !ok {
		byUser = make(map[string]Grant)
		s.grants[g.IntakeID] = byUser
	}
	byUser[g.UserID] = g
	return nil
}

func (s *memGrants) Find(ctx context.Context, intakeID, userID string) (Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[intakeID][userID]
	if !ok {
		return Grant{}, ErrNotFound
	}
	return g, nil
}

func (s *memGrants) ListByIntake(ctx context.Context, intakeID string) ([]Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Grant
	for _, g := range s.grants[intakeID] {
		res = append(res, g)
	}
	return res, nil
}

func (s *memGrants) ListByUser(ctx context.Context, userID string) ([]Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Grant
	for _, byUser := range s.grants {
		if g, ok := byUser[userID]; ok {
			res = append(res, g)
		}
	}
	return res, nil
}
