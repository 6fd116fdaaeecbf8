package contact

import (
	"context"
	"testing"
)

func TestMemoryStoreInsertIfAbsentIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	record := &Record{ProfileID: "p1", Handle: "alice.lens", PriorityScore: 3.5}

	inserted, err := store.InsertIfAbsent(ctx, record)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatalf("first insert should report true")
	}

	duplicate := &Record{ProfileID: "p1", Handle: "someone-else.lens", PriorityScore: 99}
	inserted, err = store.InsertIfAbsent(ctx, duplicate)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatalf("second insert should report false")
	}

	records, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(records))
	}
	if records[0].Handle != "alice.lens" {
		t.Fatalf("first write must win, got handle %q", records[0].Handle)
	}
}

func TestMemoryStoreInsertRequiresProfileID(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.InsertIfAbsent(context.Background(), &Record{}); err == nil {
		t.Fatalf("expected error for missing profile_id")
	}
}

func TestMemoryStoreListAllOrdering(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	inserts := []*Record{
		{ProfileID: "low", PriorityScore: 1.0},
		{ProfileID: "tie-first", PriorityScore: 5.0},
		{ProfileID: "tie-second", PriorityScore: 5.0},
		{ProfileID: "high", PriorityScore: 9.0},
	}
	for _, record := range inserts {
		if _, err := store.InsertIfAbsent(ctx, record); err != nil {
			t.Fatalf("insert %s: %v", record.ProfileID, err)
		}
	}

	records, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := []string{"high", "tie-first", "tie-second", "low"}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for i, id := range want {
		if records[i].ProfileID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, records[i].ProfileID)
		}
	}
}

func TestMemoryStoreMarkDelivered(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.InsertIfAbsent(ctx, &Record{ProfileID: "p1"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := store.MarkDelivered(ctx, "p1", 1000); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	// 第二次确认不覆盖首次投递时间。
	if err := store.MarkDelivered(ctx, "p1", 2000); err != nil {
		t.Fatalf("mark delivered again: %v", err)
	}

	records, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if records[0].DeliveredAt != 1000 {
		t.Fatalf("expected delivered_at 1000, got %d", records[0].DeliveredAt)
	}

	if err := store.MarkDelivered(ctx, "missing", 1000); err == nil {
		t.Fatalf("expected error for unknown profile")
	}
}

func TestMemoryStoreReset(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.InsertIfAbsent(ctx, &Record{ProfileID: "p1"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	exists, err := store.Exists(ctx, "p1")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatalf("record should be gone after reset")
	}
}

func TestMemoryStoreListReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.InsertIfAbsent(ctx, &Record{ProfileID: "p1", Handle: "alice.lens"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	records, _ := store.ListAll(ctx)
	records[0].Handle = "mutated"

	again, _ := store.ListAll(ctx)
	if again[0].Handle != "alice.lens" {
		t.Fatalf("stored record must not be affected by caller mutation")
	}
}
