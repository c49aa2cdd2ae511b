package healthrecord

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRepo_ListNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	ctx := context.Background()
	var ids []string
	for _, name := range []string{"first", "second", "third"} {
		h := &HealthRecord{Fields: Fields{PatientName: name, Age: 30, Gender: GenderMale}}
		if err := repo.Create(ctx, h); err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, h.ID)
	}

	items, total, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("expected 2 of 3, got %d of %d", len(items), total)
	}
	if items[0].ID != ids[2] || items[1].ID != ids[1] {
		t.Error("expected newest first")
	}

	items, _, _ = repo.List(ctx, 2, 2)
	if len(items) != 1 || items[0].ID != ids[0] {
		t.Errorf("expected last page to hold the oldest record, got %v", items)
	}
}

func TestMemoryRepo_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	h := &HealthRecord{Fields: Fields{PatientName: "A", Age: 1, Gender: GenderFemale, HeartRate: intp(70)}}
	repo.Create(ctx, h)

	got, _ := repo.GetByID(ctx, h.ID)
	*got.HeartRate = 1
	got.PatientName = "changed"

	again, _ := repo.GetByID(ctx, h.ID)
	if again.PatientName != "A" || *again.HeartRate != 70 {
		t.Error("stored record was mutated through a returned copy")
	}
}

func TestMemoryRepo_NotFound(t *testing.T) {
	if _, err := NewMemoryRepo().GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
