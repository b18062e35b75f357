package auth

import "time"

// User is an account holder. Either party of an intake may hold the account;
// the other party joins through a collaborator grant.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role scopes what a collaborator may do on one intake.
type Role string

const (
	RolePartyA   Role = "party_a"
	RolePartyB   Role = "party_b"
	RoleReviewer Role = "reviewer"
)

// Grant gives a user a role on a single intake. The intake creator receives
// an implicit party_a grant; the partner and any reviewer are invited in.
type Grant struct {
	IntakeID  string
	UserID    string
	Role      Role
	CreatedAt time.Time
}

// RefreshToken represents a persisted refresh token.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
}

// TokenPair represents access and refresh tokens along with their expirations.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
