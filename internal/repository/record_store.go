package repository

import (
	"context"

	"github.com/tidwall/gjson"
)

// Record is one document in a collection: an opaque key plus a raw JSON
// body. Field access goes through gjson so heterogeneous documents from
// independently-maintained collections can be read without per-collection
// schemas.
type Record struct {
	Key string
	Doc []byte
}

// Field returns the named top-level string field, or "" when absent.
func (r Record) Field(name string) string {
	return gjson.GetBytes(r.Doc, name).String()
}

// IntField returns the named top-level integer field, or 0 when absent.
func (r Record) IntField(name string) int64 {
	return gjson.GetBytes(r.Doc, name).Int()
}

// Predicate restricts a scan to records whose named field equals the given
// value. The record store supports single-field equality only.
type Predicate struct {
	Field string
	Value string
}

// Matches reports whether the record satisfies the predicate.
func (p *Predicate) Matches(r Record) bool {
	if p == nil {
		return true
	}
	return r.Field(p.Field) == p.Value
}

// RecordStore is the external record store boundary: named collections of
// key-addressable JSON records, no cross-collection joins, each operation
// independently fallible. Collections are eventually consistent; callers
// must tolerate a scan observing a record a concurrent delete has removed.
type RecordStore interface {
	// Scan returns every record in the collection matching the predicate.
	// A nil predicate matches everything. Scanning an unknown collection
	// returns an empty result, not an error.
	Scan(ctx context.Context, collection string, pred *Predicate) ([]Record, error)
	// Count returns the number of records matching the predicate.
	Count(ctx context.Context, collection string, pred *Predicate) (int, error)
	// GetByKey returns the record with the given key, or nil when absent.
	GetByKey(ctx context.Context, collection, key string) (*Record, error)
	// Put creates or replaces the record with the given key.
	Put(ctx context.Context, collection, key string, doc []byte) error
	// DeleteByKey removes the record with the given key. Deleting an
	// absent key succeeds, so a deletion pass is safe to re-invoke.
	DeleteByKey(ctx context.Context, collection, key string) error
	// Close releases the underlying store handle.
	Close() error
}
