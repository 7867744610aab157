package storage

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

type boltStore struct {
	db *bbolt.DB
}

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Close() error {
	return s.db.Close()
}

func (s *boltStore) CreateBucket(bucket string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
}

func (s *boltStore) Get(bucket, id string, obj interface{}) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s does not exist", bucket)
		}
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("record %s not found in bucket %s", id, bucket)
		}
		return json.Unmarshal(v, obj)
	})
}

// Create inserts a new record. The id handed to fn comes from the bucket
// sequence, zero padded so lexical iteration order matches insertion order.
func (s *boltStore) Create(bucket string, fn func(id string) interface{}) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s does not exist", bucket)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id := fmt.Sprintf("%07d", seq)
		data, err := json.Marshal(fn(id))
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
}

func (s *boltStore) Update(bucket, id string, obj interface{}) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s does not exist", bucket)
		}
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("record %s not found in bucket %s", id, bucket)
		}
		data, err := json.Marshal(obj)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
}

func (s *boltStore) Delete(bucket, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s does not exist", bucket)
		}
		return b.Delete([]byte(id))
	})
}

func (s *boltStore) List(bucket string, fn func(id string, v []byte) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s does not exist", bucket)
		}
		return b.ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}

func (s *boltStore) GetBytes(bucket, id string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s does not exist", bucket)
		}
		v := b.Get([]byte(id))
		if v == nil {
			return nil
		}
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

// PutBytes writes the record in a single transaction; readers never observe
// a partially written value.
func (s *boltStore) PutBytes(bucket, id string, v []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s does not exist", bucket)
		}
		return b.Put([]byte(id), v)
	})
}
