package guidcache

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

const boltBucket = "component_ids"

// BoltStore keeps the table in a bbolt database. The database is only
// held open for the duration of each Load or Save, so a second
// generator blocks on the file lock until the timeout instead of
// interleaving writes.
type BoltStore struct {
	path    string
	timeout time.Duration
}

func NewBoltStore(path string) *BoltStore {
	return &BoltStore{path: path, timeout: 5 * time.Second}
}

func (s *BoltStore) open() (*bbolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, errors.Wrapf(err, "creating directory for %s", s.path)
	}

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{Timeout: s.timeout})
	switch {
	case err == nil:
		return db, nil
	case errors.Is(err, bbolt.ErrInvalid), errors.Is(err, bbolt.ErrVersionMismatch), errors.Is(err, bbolt.ErrChecksum):
		return nil, &CorruptCacheError{Location: s.path, Err: err}
	default:
		return nil, errors.Wrapf(err, "opening bolt db %s", s.path)
	}
}

func (s *BoltStore) Load() (map[string]string, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ids := make(map[string]string)
	if err := db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			ids[string(k)] = string(v)
			return nil
		})
	}); err != nil {
		return nil, errors.Wrap(err, "reading component ids bucket")
	}

	return ids, nil
}

// Save drops and recreates the bucket inside one transaction.
func (s *BoltStore) Save(ids map[string]string) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(boltBucket)) != nil {
			if err := tx.DeleteBucket([]byte(boltBucket)); err != nil {
				return errors.Wrap(err, "deleting bucket")
			}
		}

		b, err := tx.CreateBucket([]byte(boltBucket))
		if err != nil {
			return errors.Wrap(err, "creating bucket")
		}

		for k, v := range ids {
			if err := b.Put([]byte(k), []byte(v)); err != nil {
				return errors.Wrapf(err, "setting %s", k)
			}
		}
		return nil
	})
}
