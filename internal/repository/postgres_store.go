package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// postgresStore keeps every collection in a single records table:
//
//	CREATE TABLE records (
//	    collection text NOT NULL,
//	    key        text NOT NULL,
//	    doc        jsonb NOT NULL,
//	    PRIMARY KEY (collection, key)
//	);
//
// Predicates become jsonb field lookups, so the single-field equality
// contract maps directly onto doc->>field = value.
type postgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection pool (pgx stdlib driver).
func NewPostgresStore(db *sql.DB) RecordStore {
	return &postgresStore{db: db}
}

func (s *postgresStore) Scan(ctx context.Context, collection string, pred *Predicate) ([]Record, error) {
	query := `SELECT key, doc FROM records WHERE collection = $1`
	args := []any{collection}
	if pred != nil {
		query += ` AND doc->>$2 = $3`
		args = append(args, pred.Field, pred.Value)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scanning collection %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Key, &rec.Doc); err != nil {
			return nil, fmt.Errorf("scanning row in %s: %w", collection, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collection %s: %w", collection, err)
	}
	return out, nil
}

func (s *postgresStore) Count(ctx context.Context, collection string, pred *Predicate) (int, error) {
	query := `SELECT COUNT(*) FROM records WHERE collection = $1`
	args := []any{collection}
	if pred != nil {
		query += ` AND doc->>$2 = $3`
		args = append(args, pred.Field, pred.Value)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting collection %s: %w", collection, err)
	}
	return count, nil
}

func (s *postgresStore) GetByKey(ctx context.Context, collection, key string) (*Record, error) {
	var rec Record
	rec.Key = key
	query := `SELECT doc FROM records WHERE collection = $1 AND key = $2`
	if err := s.db.QueryRowContext(ctx, query, collection, key).Scan(&rec.Doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting %s/%s: %w", collection, key, err)
	}
	return &rec, nil
}

func (s *postgresStore) Put(ctx context.Context, collection, key string, doc []byte) error {
	query := `
        INSERT INTO records (collection, key, doc)
        VALUES ($1, $2, $3::jsonb)
        ON CONFLICT (collection, key) DO UPDATE SET doc = EXCLUDED.doc
    `
	if _, err := s.db.ExecContext(ctx, query, collection, key, doc); err != nil {
		return fmt.Errorf("putting %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *postgresStore) DeleteByKey(ctx context.Context, collection, key string) error {
	// DELETE of an absent row affects zero rows and succeeds, which is the
	// idempotent-delete contract callers rely on for safe retries.
	query := `DELETE FROM records WHERE collection = $1 AND key = $2`
	if _, err := s.db.ExecContext(ctx, query, collection, key); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}
