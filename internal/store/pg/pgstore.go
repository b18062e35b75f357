// Package pg persists intakes, generation attempts and their token maps in
// PostgreSQL. Asset lists, token maps and unresolved-token lists are stored
// as jsonb; everything queried on is a plain column.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"pactly.app/internal/draft"
	"pactly.app/internal/ids"
	"pactly.app/internal/intake"
	"pactly.app/internal/pii"
)

type Store struct {
	db *sql.DB
}

var (
	_ intake.Service = (*Store)(nil)
	_ draft.Store    = (*Store)(nil)
)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection, used by tests.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// --- intake.Service ---

func (s *Store) Create(ctx context.Context, rec intake.Record) (intake.Record, error) {
	rec.ID = ids.New()
	rec.Locked = false
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt

	assets, debts, err := marshalEntries(rec)
	if err != nil {
		return intake.Record{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into intakes(id, owner_user_id, email, jurisdiction,
			party_a_name, party_b_name, wedding_date, assets, debts,
			separate_property, waive_alimony, additional_provisions,
			locked, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,false,$13,$13)
	`, rec.ID, rec.OwnerUserID, rec.Email, rec.Jurisdiction,
		rec.PartyAName, rec.PartyBName, rec.WeddingDate, assets, debts,
		rec.SeparateProperty, rec.WaiveAlimony, rec.AdditionalProvisions,
		rec.CreatedAt)
	if err != nil {
		return intake.Record{}, err
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, id string) (intake.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, owner_user_id, email, jurisdiction,
			party_a_name, party_b_name, wedding_date, assets, debts,
			separate_property, waive_alimony, additional_provisions,
			locked, created_at, updated_at
		from intakes where id=$1
	`, id)
	return scanIntake(row)
}

func (s *Store) Update(ctx context.Context, rec intake.Record) (intake.Record, error) {
	assets, debts, err := marshalEntries(rec)
	if err != nil {
		return intake.Record{}, err
	}
	rec.UpdatedAt = time.Now().UTC()

	// The locked guard lives in the where clause so a concurrent lock
	// cannot slip between a read and the write.
	res, err := s.db.ExecContext(ctx, `
		update intakes set email=$2, jurisdiction=$3,
			party_a_name=$4, party_b_name=$5, wedding_date=$6,
			assets=$7, debts=$8, separate_property=$9, waive_alimony=$10,
			additional_provisions=$11, updated_at=$12
		where id=$1 and not locked
	`, rec.ID, rec.Email, rec.Jurisdiction,
		rec.PartyAName, rec.PartyBName, rec.WeddingDate,
		assets, debts, rec.SeparateProperty, rec.WaiveAlimony,
		rec.AdditionalProvisions, rec.UpdatedAt)
	if err != nil {
		return intake.Record{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return intake.Record{}, err
	}
	if n == 0 {
		// Distinguish missing from locked.
		var locked bool
		err := s.db.QueryRowContext(ctx, `select locked from intakes where id=$1`, rec.ID).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return intake.Record{}, intake.ErrNotFound
		}
		if err != nil {
			return intake.Record{}, err
		}
		return intake.Record{}, intake.ErrLocked
	}
	return s.Get(ctx, rec.ID)
}

func (s *Store) ListByOwner(ctx context.Context, userID string) ([]intake.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, owner_user_id, email, jurisdiction,
			party_a_name, party_b_name, wedding_date, assets, debts,
			separate_property, waive_alimony, additional_provisions,
			locked, created_at, updated_at
		from intakes where owner_user_id=$1
		order by created_at asc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []intake.Record
	for rows.Next() {
		rec, err := scanIntake(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func (s *Store) Lock(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		update intakes set locked=true, updated_at=now() where id=$1
	`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return intake.ErrNotFound
	}
	return nil
}

// --- draft.Store ---

func (s *Store) CreateAttempt(ctx context.Context, a *draft.Attempt) error {
	tokens, err := json.Marshal(a.UnresolvedTokens)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into attempts(id, intake_id, state, error,
			resolved, unresolved, unresolved_tokens, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, a.ID, a.IntakeID, a.State, a.Error,
		a.Resolved, a.Unresolved, tokens, a.CreatedAt, a.UpdatedAt)
	return err
}

func (s *Store) GetAttempt(ctx context.Context, id string) (draft.Attempt, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, intake_id, state, error,
			resolved, unresolved, unresolved_tokens, created_at, updated_at
		from attempts where id=$1
	`, id)
	return scanAttempt(row)
}

func (s *Store) UpdateAttempt(ctx context.Context, a *draft.Attempt) error {
	tokens, err := json.Marshal(a.UnresolvedTokens)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		update attempts set state=$2, error=$3,
			resolved=$4, unresolved=$5, unresolved_tokens=$6, updated_at=$7
		where id=$1
	`, a.ID, a.State, a.Error, a.Resolved, a.Unresolved, tokens, a.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return draft.ErrNotFound
	}
	return nil
}

func (s *Store) ListAttemptsByIntake(ctx context.Context, intakeID string) ([]draft.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, intake_id, state, error,
			resolved, unresolved, unresolved_tokens, created_at, updated_at
		from attempts where intake_id=$1
		order by created_at asc
	`, intakeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []draft.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (s *Store) SavePIIMap(ctx context.Context, attemptID string, masked pii.MaskedRecord, m *pii.Map) error {
	maskedJSON, err := json.Marshal(masked)
	if err != nil {
		return err
	}
	mapJSON, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into pii_maps(attempt_id, masked_record, token_map, created_at)
		values ($1,$2,$3,now())
		on conflict (attempt_id) do update
		set masked_record = excluded.masked_record, token_map = excluded.token_map
	`, attemptID, maskedJSON, mapJSON)
	return err
}

func (s *Store) PIIMap(ctx context.Context, attemptID string) (pii.MaskedRecord, *pii.Map, error) {
	var maskedJSON, mapJSON []byte
	err := s.db.QueryRowContext(ctx, `
		select masked_record, token_map from pii_maps where attempt_id=$1
	`, attemptID).Scan(&maskedJSON, &mapJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return pii.MaskedRecord{}, nil, draft.ErrNotFound
	}
	if err != nil {
		return pii.MaskedRecord{}, nil, err
	}
	var masked pii.MaskedRecord
	if err := json.Unmarshal(maskedJSON, &masked); err != nil {
		return pii.MaskedRecord{}, nil, err
	}
	m := pii.NewMap()
	if err := json.Unmarshal(mapJSON, m); err != nil {
		return pii.MaskedRecord{}, nil, err
	}
	return masked, m, nil
}

func (s *Store) CreateSection(ctx context.Context, sec *draft.Section) error {
	unresolved, err := json.Marshal(sec.Unresolved)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into sections(id, attempt_id, template_id, position,
			title, body, status, unresolved, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, sec.ID, sec.AttemptID, sec.TemplateID, sec.Position,
		sec.Title, sec.Body, sec.Status, unresolved, sec.CreatedAt, sec.UpdatedAt)
	return err
}

func (s *Store) GetSection(ctx context.Context, id string) (draft.Section, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, attempt_id, template_id, position,
			title, body, status, unresolved, created_at, updated_at
		from sections where id=$1
	`, id)
	return scanSection(row)
}

func (s *Store) UpdateSection(ctx context.Context, sec *draft.Section) error {
	unresolved, err := json.Marshal(sec.Unresolved)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		update sections set title=$2, body=$3, status=$4, unresolved=$5, updated_at=$6
		where id=$1
	`, sec.ID, sec.Title, sec.Body, sec.Status, unresolved, sec.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return draft.ErrNotFound
	}
	return nil
}

func (s *Store) ListSections(ctx context.Context, attemptID string) ([]draft.Section, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, attempt_id, template_id, position,
			title, body, status, unresolved, created_at, updated_at
		from sections where attempt_id=$1
		order by position asc
	`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []draft.Section
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, sec)
	}
	return res, rows.Err()
}

func (s *Store) CreateComment(ctx context.Context, c *draft.Comment) error {
	_, err := s.db.ExecContext(ctx, `
		insert into comments(id, section_id, author_id, body, created_at)
		values ($1,$2,$3,$4,$5)
	`, c.ID, c.SectionID, c.AuthorID, c.Body, c.CreatedAt)
	return err
}

func (s *Store) ListComments(ctx context.Context, sectionID string) ([]draft.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, section_id, author_id, body, created_at
		from comments where section_id=$1
		order by created_at asc
	`, sectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []draft.Comment
	for rows.Next() {
		var c draft.Comment
		if err := rows.Scan(&c.ID, &c.SectionID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func marshalEntries(rec intake.Record) ([]byte, []byte, error) {
	assets, err := json.Marshal(rec.Assets)
	if err != nil {
		return nil, nil, err
	}
	debts, err := json.Marshal(rec.Debts)
	if err != nil {
		return nil, nil, err
	}
	return assets, debts, nil
}

func scanIntake(row rowScanner) (intake.Record, error) {
	var rec intake.Record
	var assets, debts []byte
	err := row.Scan(&rec.ID, &rec.OwnerUserID, &rec.Email, &rec.Jurisdiction,
		&rec.PartyAName, &rec.PartyBName, &rec.WeddingDate, &assets, &debts,
		&rec.SeparateProperty, &rec.WaiveAlimony, &rec.AdditionalProvisions,
		&rec.Locked, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return intake.Record{}, intake.ErrNotFound
	}
	if err != nil {
		return intake.Record{}, err
	}
	if err := json.Unmarshal(assets, &rec.Assets); err != nil {
		return intake.Record{}, err
	}
	if err := json.Unmarshal(debts, &rec.Debts); err != nil {
		return intake.Record{}, err
	}
	return rec, nil
}

func scanAttempt(row rowScanner) (draft.Attempt, error) {
	var a draft.Attempt
	var tokens []byte
	err := row.Scan(&a.ID, &a.IntakeID, &a.State, &a.Error,
		&a.Resolved, &a.Unresolved, &tokens, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return draft.Attempt{}, draft.ErrNotFound
	}
	if err != nil {
		return draft.Attempt{}, err
	}
	if err := json.Unmarshal(tokens, &a.UnresolvedTokens); err != nil {
		return draft.Attempt{}, err
	}
	return a, nil
}

func scanSection(row rowScanner) (draft.Section, error) {
	var sec draft.Section
	var unresolved []byte
	err := row.Scan(&sec.ID, &sec.AttemptID, &sec.TemplateID, &sec.Position,
		&sec.Title, &sec.Body, &sec.Status, &unresolved, &sec.CreatedAt, &sec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return draft.Section{}, draft.ErrNotFound
	}
	if err != nil {
		return draft.Section{}, err
	}
	if err := json.Unmarshal(unresolved, &sec.Unresolved); err != nil {
		return draft.Section{}, err
	}
	return sec, nil
}
