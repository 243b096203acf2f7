package service

import (
	"context"
	"errors"
	"testing"

	"app/internal/inventory"
	"app/internal/model"
	"app/internal/pricing"
	"app/internal/repository"
)

func testPriceTable() pricing.Table {
	return pricing.Table{
		DefaultModel: "standard",
		Models: map[string]pricing.ModelPrice{
			"standard": {PromptPerK: 0.5, CompletionPerK: 1.5},
		},
	}
}

func newStatsService(store repository.RecordStore) StatsService {
	entries := inventory.Default()
	gate := testGate()
	identity := NewIdentityService(store, entries, gate, 4, testLogger())
	return NewStatsService(store, identity, entries, gate, testPriceTable(), 4, testLogger())
}

func TestSystemStatsCountsUsersOnce(t *testing.T) {
	store := newTestStore(t)
	// user-42 appears in three collections; user-7 in one.
	seed(t, store, inventory.Items, "i1", `{"userId":"user-42"}`)
	seed(t, store, inventory.Items, "i2", `{"userId":"user-42"}`)
	seed(t, store, inventory.Logins, "l1", `{"userId":"user-42"}`)
	seed(t, store, inventory.Settings, "user-42", `{"displayName":"Ada"}`)
	seed(t, store, inventory.ShoppingLists, "s1", `{"userId":"user-7"}`)

	stats, err := newStatsService(store).SystemStats(context.Background(), adminClaims())
	if err != nil {
		t.Fatalf("system stats: %v", err)
	}

	if stats.TotalUsers != 2 {
		t.Fatalf("expected 2 distinct users, got %d", stats.TotalUsers)
	}
	if stats.CollectionCounts[inventory.Items] != 2 {
		t.Fatalf("expected 2 items, got %d", stats.CollectionCounts[inventory.Items])
	}
	if stats.CollectionCounts[inventory.Dashboards] != 0 {
		t.Fatalf("expected 0 dashboards, got %d", stats.CollectionCounts[inventory.Dashboards])
	}
	if stats.ScanFailures != nil {
		t.Fatalf("expected no scan failures, got %+v", stats.ScanFailures)
	}
}

func TestSystemStatsRecordsScanFailures(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, inventory.Items, "i1", `{"userId":"user-1"}`)
	seed(t, store, inventory.Logins, "l1", `{"userId":"user-2"}`)

	wrapped := &failingStore{RecordStore: store, failReads: map[string]bool{inventory.Items: true}}
	stats, err := newStatsService(wrapped).SystemStats(context.Background(), adminClaims())
	if err != nil {
		t.Fatalf("system stats must tolerate one failing collection: %v", err)
	}

	if _, ok := stats.ScanFailures[inventory.Items]; !ok {
		t.Fatalf("expected items failure recorded, got %+v", stats.ScanFailures)
	}
	// The merged set is built from whatever collections succeeded.
	if stats.TotalUsers != 1 {
		t.Fatalf("expected 1 user from healthy collections, got %d", stats.TotalUsers)
	}
}

func TestUserStatsUnknownUserIsAllZero(t *testing.T) {
	store := newTestStore(t)

	record, err := newStatsService(store).UserStats(context.Background(), adminClaims(), "ghost")
	if err != nil {
		t.Fatalf("unknown user must not error: %v", err)
	}
	for collection, count := range record.Counts {
		if count != 0 {
			t.Fatalf("expected 0 for %s, got %d", collection, count)
		}
	}
	if len(record.Unavailable) != 0 {
		t.Fatalf("expected no unavailable collections, got %+v", record.Unavailable)
	}
	if record.Usage != nil {
		t.Fatalf("expected no usage for unknown user, got %+v", record.Usage)
	}
}

func TestUserStatsCountsAndAttributes(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, inventory.Settings, "user-1", `{"displayName":"Ada","email":"ada@example.com"}`)
	seed(t, store, inventory.Items, "i1", `{"userId":"user-1"}`)
	seed(t, store, inventory.Items, "i2", `{"userId":"user-1"}`)
	seed(t, store, inventory.Items, "i3", `{"userId":"someone-else"}`)
	seed(t, store, inventory.Logins, "l1", `{"userId":"user-1"}`)

	record, err := newStatsService(store).UserStats(context.Background(), adminClaims(), "user-1")
	if err != nil {
		t.Fatalf("user stats: %v", err)
	}

	if record.Counts[inventory.Items] != 2 {
		t.Fatalf("expected 2 items, got %d", record.Counts[inventory.Items])
	}
	if record.Counts[inventory.Logins] != 1 {
		t.Fatalf("expected 1 login, got %d", record.Counts[inventory.Logins])
	}
	if record.DisplayName != "Ada" || record.Email != "ada@example.com" {
		t.Fatalf("unexpected attributes: %q, %q", record.DisplayName, record.Email)
	}
}

func TestUserStatsTagsUnavailableCollections(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, inventory.Items, "i1", `{"userId":"user-1"}`)

	wrapped := &failingStore{RecordStore: store, failReads: map[string]bool{inventory.Logins: true}}
	record, err := newStatsService(wrapped).UserStats(context.Background(), adminClaims(), "user-1")
	if err != nil {
		t.Fatalf("user stats must tolerate one failing sub-query: %v", err)
	}

	if record.Counts[inventory.Logins] != 0 {
		t.Fatalf("failed collection must degrade to zero, got %d", record.Counts[inventory.Logins])
	}
	found := false
	for _, name := range record.Unavailable {
		if name == inventory.Logins {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected logins tagged unavailable, got %+v", record.Unavailable)
	}
	if record.Counts[inventory.Items] != 1 {
		t.Fatalf("healthy collections must still count, got %d", record.Counts[inventory.Items])
	}
}

func TestUserStatsUsageCost(t *testing.T) {
	store := newTestStore(t)
	// No model attribution: priced at the default model and flagged
	// approximate. 1000 prompt at $0.50/1k plus 500 completion at $1.50/1k.
	seed(t, store, inventory.UsageLogs, "u1", `{"userId":"user-7","promptTokens":1000,"completionTokens":500}`)

	record, err := newStatsService(store).UserStats(context.Background(), adminClaims(), "user-7")
	if err != nil {
		t.Fatalf("user stats: %v", err)
	}
	if record.Usage == nil {
		t.Fatal("expected usage summary")
	}
	if record.Usage.EstimatedCost != 1.25 {
		t.Fatalf("expected cost 1.25, got %v", record.Usage.EstimatedCost)
	}
	if !record.Usage.Approximate {
		t.Fatal("expected approximate flag")
	}
	if record.Usage.RequestCount != 1 || record.Usage.TotalTokens != 1500 {
		t.Fatalf("unexpected summary: %+v", record.Usage)
	}
}

func TestStatsUnauthorized(t *testing.T) {
	store := newTestStore(t)
	svc := newStatsService(store)
	claims := model.IdentityClaims{UserID: "intruder", Email: "intruder@example.com"}

	if _, err := svc.SystemStats(context.Background(), claims); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized from SystemStats, got %v", err)
	}
	if _, err := svc.UserStats(context.Background(), claims, "user-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized from UserStats, got %v", err)
	}
}
