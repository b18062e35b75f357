package auth

import "context"

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	RefreshTokens(ctx context.Context) RefreshTokenStore
	Grants(ctx context.Context) GrantStore
}

// UserStore manages accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// RefreshTokenStore manages refresh token lifecycle.
type RefreshTokenStore interface {
	Create(ctx context.Context, tok *RefreshToken) error
	Find(ctx context.Context, id string) (*RefreshToken, error)
	MarkRevoked(ctx context.Context, id string) error
	MarkRevokedByUser(ctx context.Context, userID string) error
}

// GrantStore manages per-intake collaborator grants.
type GrantStore interface {
	Upsert(ctx context.Context, g Grant) error
	Find(ctx context.Context, intakeID, userID string) (Grant, error)
	ListByIntake(ctx context.Context, intakeID string) ([]Grant, error)
	ListByUser(ctx context.Context, userID string) ([]Grant, error)
}
