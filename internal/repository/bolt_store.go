package repository

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// boltStore is the embedded record store: one bbolt bucket per collection,
// record key as bucket key, raw JSON as value.
type boltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the bbolt file at path.
func NewBoltStore(path string) (RecordStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening bolt store at %s: %w", path, err)
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Scan(ctx context.Context, collection string, pred *Predicate) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			rec := Record{Key: string(k), Doc: append([]byte(nil), v...)}
			if pred.Matches(rec) {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("scanning collection %s: %w", collection, err)
	}
	return out, nil
}

func (s *boltStore) Count(ctx context.Context, collection string, pred *Predicate) (int, error) {
	recs, err := s.Scan(ctx, collection, pred)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

func (s *boltStore) GetByKey(ctx context.Context, collection, key string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			rec = &Record{Key: key, Doc: append([]byte(nil), v...)}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("getting %s/%s: %w", collection, key, err)
	}
	return rec, nil
}

func (s *boltStore) Put(ctx context.Context, collection, key string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), doc)
	})
	if err != nil {
		return fmt.Errorf("putting %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *boltStore) DeleteByKey(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			// Nothing to delete; treated as success for idempotent retry.
			return nil
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *boltStore) Close() error {
	return s.db.Close()
}
