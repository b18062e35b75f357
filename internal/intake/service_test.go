package intake

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryCRUD(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	rec := validRecord()
	rec.OwnerUserID = "user-1"
	created, err := s.Create(ctx, rec)
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps")
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PartyAName != rec.PartyAName || len(got.Assets) != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	got.PartyBName = "Updated Name"
	updated, err := s.Update(ctx, got)
	if err != nil {
		t.Fatal(err)
	}
	if updated.PartyBName != "Updated Name" {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.OwnerUserID != "user-1" {
		t.Fatal("update must not change ownership")
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryLockBlocksUpdate(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	created, _ := s.Create(ctx, validRecord())

	if err := s.Lock(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	// Lock is idempotent.
	if err := s.Lock(ctx, created.ID); err != nil {
		t.Fatal(err)
	}

	created.PartyAName = "Changed"
	if _, err := s.Update(ctx, created); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Locked {
		t.Fatal("expected record to report locked")
	}
}

func TestInMemoryListByOwner(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	a := validRecord()
	a.OwnerUserID = "user-a"
	b := validRecord()
	b.OwnerUserID = "user-b"
	_, _ = s.Create(ctx, a)
	_, _ = s.Create(ctx, a)
	_, _ = s.Create(ctx, b)

	recs, err := s.ListByOwner(ctx, "user-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	recs, _ = s.ListByOwner(ctx, "user-c")
	if len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
}

func TestInMemoryCloneIsolation(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	created, _ := s.Create(ctx, validRecord())

	got, _ := s.Get(ctx, created.ID)
	got.Assets[0].Description = "mutated"

	again, _ := s.Get(ctx, created.ID)
	if again.Assets[0].Description == "mutated" {
		t.Fatal("store must not share slice backing with callers")
	}
}
