package auth

import (
	"context"
	"database/sql"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users(ctx context.Context) UserStore                 { return &userStore{db: s.db} }
func (s *PGStore) RefreshTokens(ctx context.Context) RefreshTokenStore { return &tokenStore{db: s.db} }
func (s *PGStore) Grants(ctx context.Context) GrantStore               { return &grantStore{db: s.db} }

// User store ---------------------------------------------------------------
type userStore struct{ db *sql.DB }

func (s *userStore) Create(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, status, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Email, u.PasswordHash, u.Status, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

func (s *userStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, password_hash, status, created_at, updated_at from users where id=$1`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, password_hash, status, created_at, updated_at from users where email=$1`, email)
	return scanUser(row)
}

func (s *userStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash=$2, updated_at=now() where id=$1`, userID, passwordHash)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Refresh token store ------------------------------------------------------
type tokenStore struct{ db *sql.DB }

func (s *tokenStore) Create(ctx context.Context, tok *RefreshToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into refresh_tokens(id, user_id, token_hash, expires_at, created_at, revoked)
		 values($1,$2,$3,$4,$5,$6)`,
		tok.ID, tok.UserID, tok.TokenHash, tok.ExpiresAt, tok.CreatedAt, tok.Revoked,
	)
	return err
}

func (s *tokenStore) Find(ctx context.Context, id string) (*RefreshToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, token_hash, expires_at, created_at, revoked from refresh_tokens where id=$1`, id)
	var tok RefreshToken
	if err := row.Scan(&tok.ID, &tok.UserID, &tok.TokenHash, &tok.ExpiresAt, &tok.CreatedAt, &tok.Revoked); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tok, nil
}

func (s *tokenStore) MarkRevoked(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `update refresh_tokens set revoked=true where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *tokenStore) MarkRevokedByUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `update refresh_tokens set revoked=true where user_id=$1`, userID)
	return err
}

// Grant store ---------------------------------------------------------------
type grantStore struct{ db *sql.DB }

func (s *grantStore) Upsert(ctx context.Context, g Grant) error {
	_, err := s.db.ExecContext(ctx,
		`insert into intake_grants(intake_id, user_id, role, created_at)
		 values($1,$2,$3,$4)
		 on conflict (intake_id, user_id) do update set role = excluded.role`,
		g.IntakeID, g.UserID, string(g.Role), g.CreatedAt,
	)
	return err
}

func (s *grantStore) Find(ctx context.Context, intakeID, userID string) (Grant, error) {
	row := s.db.QueryRowContext(ctx,
		`select intake_id, user_id, role, created_at from intake_grants
		 where intake_id=$1 and user_id=$2`, intakeID, userID)
	var g Grant
	var role string
	if err := row.Scan(&g.IntakeID, &g.UserID, &role, &g.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Grant{}, ErrNotFound
		}
		return Grant{}, err
	}
	g.Role = Role(role)
	return g, nil
}

func (s *grantStore) ListByIntake(ctx context.Context, intakeID string) ([]Grant, error) {
	rows, err := s.db.QueryContext(ctx,
		`select intake_id, user_id, role, created_at from intake_grants
		 where intake_id=$1 order by created_at asc`, intakeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrants(rows)
}

func (s *grantStore) ListByUser(ctx context.Context, userID string) ([]Grant, error) {
	rows, err := s.db.QueryContext(ctx,
		`select intake_id, user_id, role, created_at from intake_grants
		 where user_id=$1 order by created_at asc`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrants(rows)
}

func scanGrants(rows *sql.Rows) ([]Grant, error) {
	var res []Grant
	for rows.Next() {
		var g Grant
		var role string
		if err := rows.Scan(&g.IntakeID, &g.UserID, &role, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.Role = Role(role)
		res = append(res, g)
	}
	return res, rows.Err()
}
