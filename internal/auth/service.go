package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"pactly.app/internal/ids"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 24 * time.Hour * 14
	defaultIssuer     = "pactly"
)

// Service provides account registration, token issuance and per-intake
// access checks.
type Service struct {
	store Store
	now   func() time.Time

	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// Claims represents JWT claims used across the service.
type Claims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		if v := strings.TrimSpace(issuer); v != "" {
			s.issuer = v
		}
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs Service with the HS256 signing secret.
func NewService(store Store, secret string, opts ...ServiceOption) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	svc := &Service{
		store:      store,
		now:        time.Now,
		secret:     []byte(secret),
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Register creates an active account with a hashed password.
func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || len(password) < 8 {
		return User{}, ErrInvalidInput
	}
	if _, err := s.store.Users(ctx).FindByEmail(ctx, email); err == nil {
		return User{}, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	user := &User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Status:       "active",
		CreatedAt:    s.now().UTC(),
		UpdatedAt:    s.now().UTC(),
	}
	if err := s.store.Users(ctx).Create(ctx, user); err != nil {
		return User{}, err
	}
	return *user, nil
}

// IssueTokenPair authenticates user credentials and issues fresh tokens.
func (s *Service) IssueTokenPair(ctx context.Context, email, password string) (TokenPair, User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return TokenPair{}, User{}, ErrUnauthorized
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, User{}, ErrUnauthorized
	}
	if user.Status != "active" {
		return TokenPair{}, User{}, ErrUnauthorized
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, User{}, ErrUnauthorized
	}
	pair, err := s.mintTokens(ctx, user.ID)
	if err != nil {
		return TokenPair{}, User{}, err
	}
	return pair, *user, nil
}

// RefreshTokenPair rotates refresh token and issues new access credentials.
func (s *Service) RefreshTokenPair(ctx context.Context, refreshToken string) (TokenPair, User, error) {
	tokenID, secret, err := splitRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, User{}, ErrInvalidToken
	}

	store := s.store.RefreshTokens(ctx)
	record, err := store.Find(ctx, tokenID)
	if err != nil {
		return TokenPair{}, User{}, ErrInvalidToken
	}
	if record.Revoked || s.now().After(record.ExpiresAt) {
		return TokenPair{}, User{}, ErrInvalidToken
	}
	if !secureCompareHash(record.TokenHash, secret) {
		_ = store.MarkRevoked(ctx, record.ID)
		return TokenPair{}, User{}, ErrInvalidToken
	}

	user, err := s.store.Users(ctx).Find(ctx, record.UserID)
	if err != nil {
		return TokenPair{}, User{}, err
	}

	// Rotate refresh token: revoke old, issue new pair
	if err := store.MarkRevoked(ctx, record.ID); err != nil {
		return TokenPair{}, User{}, err
	}

	pair, err := s.mintTokens(ctx, user.ID)
	if err != nil {
		return TokenPair{}, User{}, err
	}
	return pair, *user, nil
}

// AuthenticateToken validates an access token and returns its principal.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (Principal, error) {
	claims, err := s.verifyAccessToken(token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	user, err := s.store.Users(ctx).Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	if user.Status != "active" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{User: *user}, nil
}

// GrantAccess records a collaborator grant on an intake.
func (s *Service) GrantAccess(ctx context.Context, g Grant) error {
	if g.IntakeID == "" || g.UserID == "" {
		return ErrInvalidInput
	}
	switch g.Role {
	case RolePartyA, RolePartyB, RoleReviewer:
	default:
		return ErrInvalidInput
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now().UTC()
	}
	return s.store.Grants(ctx).Upsert(ctx, g)
}

// RoleForIntake resolves the caller's role on an intake, or ErrUnauthorized.
func (s *Service) RoleForIntake(ctx context.Context, userID, intakeID string) (Role, error) {
	g, err := s.store.Grants(ctx).Find(ctx, intakeID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrUnauthorized
		}
		return "", err
	}
	return g.Role, nil
}

// Collaborators lists all grants on an intake.
func (s *Service) Collaborators(ctx context.Context, intakeID string) ([]Grant, error) {
	return s.store.Grants(ctx).ListByIntake(ctx, intakeID)
}

func (s *Service) mintTokens(ctx context.Context, userID string) (TokenPair, error) {
	now := s.now()
	accessToken, accessExp, err := s.signAccessToken(userID, now)
	if err != nil {
		return TokenPair{}, err
	}
	refreshTokenString, refreshRec, err := s.generateRefreshToken(userID, now)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.RefreshTokens(ctx).Create(ctx, refreshRec); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshTokenString,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshRec.ExpiresAt,
	}, nil
}

func (s *Service) signAccessToken(userID string, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.accessTTL)
	claims := Claims{
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (s *Service) verifyAccessToken(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{},
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, ErrInvalidToken
			}
			return s.secret, nil
		},
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.TokenType != "access" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) generateRefreshToken(userID string, now time.Time) (string, *RefreshToken, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", nil, err
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)
	tokenID := ids.New()
	sum := sha256.Sum256([]byte(secret))
	rec := &RefreshToken{
		ID:        tokenID,
		UserID:    userID,
		TokenHash: hex.EncodeToString(sum[:]),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now.UTC(),
	}
	tokenString := tokenID + "." + secret
	return tokenString, rec, nil
}

func splitRefreshToken(raw string) (id, secret string, err error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("invalid refresh token format")
	}
	return parts[0], parts[1], nil
}

func secureCompareHash(expectedHash string, secret string) bool {
	sum := sha256.Sum256([]byte(secret))
	actual := hex.EncodeToString(sum[:])
	if len(expectedHash) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(actual)) == 1
}
