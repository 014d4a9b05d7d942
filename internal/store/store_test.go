package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/dukerupert/citievents/internal/database"
	"github.com/dukerupert/citievents/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestKVGetPut(t *testing.T) {
	kv := NewKVStore(setupTestDB(t), "test")
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("get missing = %v, %v; want absent", ok, err)
	}

	if err := kv.CompareAndSwap(ctx, "k", nil, "one"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	prev := "one"
	if err := kv.CompareAndSwap(ctx, "k", &prev, "two"); err != nil {
		t.Fatalf("swap: %v", err)
	}
	got, ok, err := kv.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("get: %v, %v", ok, err)
	}
	if got != "two" {
		t.Errorf("value = %q, want %q", got, "two")
	}

	if err := kv.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "k"); ok {
		t.Error("expected key deleted")
	}
}

func TestKVNamespacesIsolated(t *testing.T) {
	db := setupTestDB(t)
	a := NewKVStore(db, "a")
	b := NewKVStore(db, "b")
	ctx := context.Background()

	if err := a.CompareAndSwap(ctx, "k", nil, "from-a"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Error("namespace b sees namespace a's key")
	}
}

func TestKVCompareAndSwap(t *testing.T) {
	kv := NewKVStore(setupTestDB(t), "test")
	ctx := context.Background()

	if err := kv.CompareAndSwap(ctx, "k", nil, "v1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := kv.CompareAndSwap(ctx, "k", nil, "v1b"); !errors.Is(err, ErrConflict) {
		t.Errorf("create over existing: err = %v, want ErrConflict", err)
	}

	stale := "v0"
	if err := kv.CompareAndSwap(ctx, "k", &stale, "v2"); !errors.Is(err, ErrConflict) {
		t.Errorf("stale swap: err = %v, want ErrConflict", err)
	}

	cur := "v1"
	if err := kv.CompareAndSwap(ctx, "k", &cur, "v2"); err != nil {
		t.Fatalf("swap: %v", err)
	}
	got, _, _ := kv.Get(ctx, "k")
	if got != "v2" {
		t.Errorf("value = %q, want %q", got, "v2")
	}
}

func TestDailyPickRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	s := NewDailyPickStore(NewKVStore(db, "test"))
	ctx := context.Background()

	if _, ok, err := s.Load(ctx); err != nil || ok {
		t.Fatalf("load empty = %v, %v", ok, err)
	}

	first := model.DailyPick{Date: "2024-01-01", Motivation: "A", Shown: []string{"1"}}
	if err := s.Save(ctx, model.DailyPick{}, first); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := s.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: %v, %v", ok, err)
	}
	if got.Date != "2024-01-01" || got.Motivation != "A" || len(got.Shown) != 1 || got.Shown[0] != "1" {
		t.Errorf("pick = %+v", got)
	}

	second := model.DailyPick{Date: "2024-01-02", Motivation: "B", Shown: []string{"1", "2"}}
	if err := s.Save(ctx, got, second); err != nil {
		t.Fatalf("save second: %v", err)
	}
}

func TestDailyPickConflict(t *testing.T) {
	db := setupTestDB(t)
	s := NewDailyPickStore(NewKVStore(db, "test"))
	ctx := context.Background()

	winner := model.DailyPick{Date: "2024-01-01", Motivation: "A", Shown: []string{"1"}}
	if err := s.Save(ctx, model.DailyPick{}, winner); err != nil {
		t.Fatalf("save: %v", err)
	}

	loser := model.DailyPick{Date: "2024-01-01", Motivation: "B", Shown: []string{"2"}}
	err := s.Save(ctx, model.DailyPick{}, loser)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	got, _, _ := s.Load(ctx)
	if got.Motivation != "A" {
		t.Errorf("motivation = %q, want first writer %q", got.Motivation, "A")
	}
}

func TestDailyPickCorruptValueDiscarded(t *testing.T) {
	db := setupTestDB(t)
	kv := NewKVStore(db, "test")
	ctx := context.Background()
	if err := kv.CompareAndSwap(ctx, "motivationData", nil, "{not json"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	s := NewDailyPickStore(kv)
	if _, ok, err := s.Load(ctx); err != nil || ok {
		t.Fatalf("load corrupt = %v, %v; want absent", ok, err)
	}
	if err := s.Save(ctx, model.DailyPick{}, model.DailyPick{Date: "2024-01-01", Motivation: "A"}); err != nil {
		t.Errorf("save after discard: %v", err)
	}
}

func TestDailyPickOddStoredValuesReplaced(t *testing.T) {
	for _, raw := range []string{
		"null",
		"{}",
		"{\n  \"shown\": [\"1\"],\n  \"motivation\": \"A\",\n  \"date\": \"2023-12-31\"\n}",
	} {
		db := setupTestDB(t)
		kv := NewKVStore(db, "test")
		ctx := context.Background()
		if err := kv.CompareAndSwap(ctx, "motivationData", nil, raw); err != nil {
			t.Fatalf("insert %q: %v", raw, err)
		}

		s := NewDailyPickStore(kv)
		prev, ok, err := s.Load(ctx)
		if err != nil || !ok {
			t.Fatalf("load %q = %v, %v", raw, ok, err)
		}
		next := model.DailyPick{Date: "2024-01-01", Motivation: "B", Shown: []string{"2"}}
		if err := s.Save(ctx, prev, next); err != nil {
			t.Errorf("save over %q: %v", raw, err)
			continue
		}
		got, _, _ := s.Load(ctx)
		if got.Motivation != "B" {
			t.Errorf("after %q motivation = %q, want B", raw, got.Motivation)
		}
	}
}

func TestReactionRecordAndGet(t *testing.T) {
	rs := NewReactionStore(setupTestDB(t), "test")
	ctx := context.Background()

	got, err := rs.Get(ctx, "1", "fp")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown reaction, got %+v", got)
	}

	if err := rs.Record(ctx, model.ReactionState{EventID: "1", Fingerprint: "fp", Liked: true, Count: 4}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := rs.Record(ctx, model.ReactionState{EventID: "1", Fingerprint: "fp", Liked: false, Count: 3}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := rs.Record(ctx, model.ReactionState{EventID: "2", Fingerprint: "fp", Liked: true, Count: 1}); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err = rs.Get(ctx, "1", "fp")
	if err != nil || got == nil {
		t.Fatalf("get: %v, %v", got, err)
	}
	if got.Liked || got.Count != 3 {
		t.Errorf("state = %+v, want unliked with count 3", got)
	}

	list, err := rs.ListByFingerprint(ctx, "fp")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	if list[0].EventID != "1" || list[1].EventID != "2" {
		t.Errorf("order = %s, %s", list[0].EventID, list[1].EventID)
	}
}
