package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

const adminEmail = "admin@example.com"

func adminClaims() model.IdentityClaims {
	return model.IdentityClaims{UserID: "admin-1", Email: adminEmail}
}

func testGate() AuthorizationGate {
	return NewAllowListGate([]string{adminEmail})
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestStore(t *testing.T) repository.RecordStore {
	t.Helper()
	store, err := repository.NewBoltStore(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("opening bolt store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seed(t *testing.T, store repository.RecordStore, collection, key, doc string) {
	t.Helper()
	if err := store.Put(context.Background(), collection, key, []byte(doc)); err != nil {
		t.Fatalf("seeding %s/%s: %v", collection, key, err)
	}
}

// failingStore wraps a real store and fails selected operations per
// collection, standing in for an unavailable collection or flaky deletes.
type failingStore struct {
	repository.RecordStore
	failReads   map[string]bool
	failDeletes map[string]bool
}

func (s *failingStore) Scan(ctx context.Context, collection string, pred *repository.Predicate) ([]repository.Record, error) {
	if s.failReads[collection] {
		return nil, fmt.Errorf("collection %s unavailable", collection)
	}
	return s.RecordStore.Scan(ctx, collection, pred)
}

func (s *failingStore) Count(ctx context.Context, collection string, pred *repository.Predicate) (int, error) {
	if s.failReads[collection] {
		return 0, fmt.Errorf("collection %s unavailable", collection)
	}
	return s.RecordStore.Count(ctx, collection, pred)
}

func (s *failingStore) GetByKey(ctx context.Context, collection, key string) (*repository.Record, error) {
	if s.failReads[collection] {
		return nil, fmt.Errorf("collection %s unavailable", collection)
	}
	return s.RecordStore.GetByKey(ctx, collection, key)
}

func (s *failingStore) DeleteByKey(ctx context.Context, collection, key string) error {
	if s.failDeletes[collection] {
		return fmt.Errorf("delete refused in %s", collection)
	}
	return s.RecordStore.DeleteByKey(ctx, collection, key)
}

// fakePublisher records published audit events.
type fakePublisher struct {
	topics   []string
	payloads [][]byte
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return fmt.Sprintf("msg-%d", len(p.payloads)), nil
}
