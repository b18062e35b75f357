package pg

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"pactly.app/internal/draft"
	"pactly.app/internal/intake"
	"pactly.app/internal/pii"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

func TestCreateIntake(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec("insert into intakes").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := s.Create(context.Background(), intake.Record{
		OwnerUserID:  "user-1",
		Email:        "couple@example.com",
		Jurisdiction: "CA",
		PartyAName:   "Jennifer Martinez",
		PartyBName:   "Michael Chen",
		WeddingDate:  "2026-09-12",
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID == "" {
		t.Fatal("expected generated id")
	}
	if rec.Locked {
		t.Fatal("new records must not be locked")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetIntakeNotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery("select (.+) from intakes where id=").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, intake.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateIntakeLocked(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec("update intakes set email").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select locked from intakes").
		WithArgs("int-1").
		WillReturnRows(sqlmock.NewRows([]string{"locked"}).AddRow(true))

	_, err := s.Update(context.Background(), intake.Record{ID: "int-1"})
	if !errors.Is(err, intake.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestLockMissingIntake(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec("update intakes set locked=true").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.Lock(context.Background(), "missing"); !errors.Is(err, intake.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetAttemptRoundTrip(t *testing.T) {
	s, mock := newStoreWithMock(t)

	now := time.Now().UTC()
	mock.ExpectQuery("select (.+) from attempts where id=").
		WithArgs("att-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "intake_id", "state", "error",
			"resolved", "unresolved", "unresolved_tokens", "created_at", "updated_at",
		}).AddRow("att-1", "int-1", "completed", "", 12, 1, []byte(`["PARTY_C_XXXXXX"]`), now, now))

	a, err := s.GetAttempt(context.Background(), "att-1")
	if err != nil {
		t.Fatal(err)
	}
	if a.State != draft.StateCompleted || a.Resolved != 12 {
		t.Fatalf("unexpected attempt: %+v", a)
	}
	if len(a.UnresolvedTokens) != 1 || a.UnresolvedTokens[0] != "PARTY_C_XXXXXX" {
		t.Fatalf("unresolved tokens not decoded: %v", a.UnresolvedTokens)
	}
}

func TestUpdateAttemptNotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec("update attempts set state").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateAttempt(context.Background(), &draft.Attempt{ID: "missing", State: draft.StateFailed})
	if !errors.Is(err, draft.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPIIMapRoundTrip(t *testing.T) {
	s, mock := newStoreWithMock(t)

	m := pii.NewMap()
	m.Names["PARTY_A_9K2L5M"] = "Jennifer Martinez"
	m.Values["VALUE_X7YQ0B"] = 850000
	masked := pii.MaskedRecord{Jurisdiction: "CA", PartyAName: "PARTY_A_9K2L5M"}
	maskedJSON, _ := json.Marshal(masked)
	mapJSON, _ := json.Marshal(m)

	mock.ExpectExec("insert into pii_maps").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select masked_record, token_map from pii_maps").
		WithArgs("att-1").
		WillReturnRows(sqlmock.NewRows([]string{"masked_record", "token_map"}).AddRow(maskedJSON, mapJSON))

	if err := s.SavePIIMap(context.Background(), "att-1", masked, m); err != nil {
		t.Fatal(err)
	}
	gotMasked, gotMap, err := s.PIIMap(context.Background(), "att-1")
	if err != nil {
		t.Fatal(err)
	}
	if gotMasked.PartyAName != "PARTY_A_9K2L5M" {
		t.Fatalf("masked record not restored: %+v", gotMasked)
	}
	if gotMap.Names["PARTY_A_9K2L5M"] != "Jennifer Martinez" {
		t.Fatalf("token map not restored: %+v", gotMap)
	}
	if gotMap.Values["VALUE_X7YQ0B"] != 850000 {
		t.Fatalf("value category not restored: %+v", gotMap)
	}
}

func TestPIIMapMissing(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery("select masked_record, token_map from pii_maps").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"masked_record", "token_map"}))

	_, _, err := s.PIIMap(context.Background(), "missing")
	if !errors.Is(err, draft.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSectionsOrdered(t *testing.T) {
	s, mock := newStoreWithMock(t)

	now := time.Now().UTC()
	mock.ExpectQuery("select (.+) from sections where attempt_id=").
		WithArgs("att-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "attempt_id", "template_id", "position",
			"title", "body", "status", "unresolved", "created_at", "updated_at",
		}).
			AddRow("sec-1", "att-1", "recitals", 0, "Recitals", "text", "drafted", []byte(`null`), now, now).
			AddRow("sec-2", "att-1", "disclosure", 1, "Financial Disclosure", "text", "approved", []byte(`null`), now, now))

	secs, err := s.ListSections(context.Background(), "att-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(secs) != 2 || secs[1].Status != draft.SectionApproved {
		t.Fatalf("unexpected sections: %+v", secs)
	}
}
