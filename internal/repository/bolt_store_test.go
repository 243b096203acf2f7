package repository

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) RecordStore {
	t.Helper()
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("opening bolt store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := []byte(`{"userId":"user-1","displayName":"Ada"}`)
	if err := store.Put(ctx, "user_settings", "user-1", doc); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec, err := store.GetByKey(ctx, "user_settings", "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if got := rec.Field("displayName"); got != "Ada" {
		t.Fatalf("expected displayName Ada, got %q", got)
	}
}

func TestBoltGetAbsentKeyReturnsNil(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.GetByKey(context.Background(), "user_settings", "ghost")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil for absent key, got %+v", rec)
	}
}

func TestBoltScanWithPredicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs := map[string]string{
		"i1": `{"userId":"user-1","name":"milk"}`,
		"i2": `{"userId":"user-2","name":"eggs"}`,
		"i3": `{"userId":"user-1","name":"bread"}`,
	}
	for key, doc := range docs {
		if err := store.Put(ctx, "items", key, []byte(doc)); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	recs, err := store.Scan(ctx, "items", &Predicate{Field: "userId", Value: "user-1"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records for user-1, got %d", len(recs))
	}

	count, err := store.Count(ctx, "items", &Predicate{Field: "userId", Value: "user-2"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}
}

func TestBoltScanUnknownCollectionIsEmpty(t *testing.T) {
	store := newTestStore(t)

	recs, err := store.Scan(context.Background(), "never_written", nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty scan, got %d records", len(recs))
	}
}

func TestBoltDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "items", "i1", []byte(`{"userId":"user-1"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.DeleteByKey(ctx, "items", "i1"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	// Deleting an already-deleted key, and a key in a collection that was
	// never created, must both succeed so retries are safe.
	if err := store.DeleteByKey(ctx, "items", "i1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if err := store.DeleteByKey(ctx, "never_written", "i1"); err != nil {
		t.Fatalf("delete in unknown collection: %v", err)
	}
}
