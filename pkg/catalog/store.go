package catalog

import (
	"time"

	"github.com/glorpus-work/gogenome/pkg/errors"
	"github.com/glorpus-work/gogenome/pkg/fsutil"
	"github.com/ugorji/go/codec"
	bolt "go.etcd.io/bbolt"
)

const catalogBucket = "catalog"

// record is what a DiskStore keeps per key.
type record struct {
	FetchedAt int64 // unix seconds
	Payload   []byte
}

// DiskStore persists encoded catalog payloads in a bolt database so that
// catalogs survive between runs.
type DiskStore struct {
	db *bolt.DB
	ch codec.Handle
}

// OpenDiskStore opens or creates the bolt database at path.
func OpenDiskStore(path string) (*DiskStore, error) {
	db, err := bolt.Open(path, fsutil.FileModeSecure, &bolt.Options{
		Timeout:      time.Second,
		FreelistType: bolt.FreelistMapType,
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCacheOpen, "%s: %v", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, errc := tx.CreateBucketIfNotExists([]byte(catalogBucket))
		return errc
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(errors.ErrCacheOpen, "%s: %v", path, err)
	}

	return &DiskStore{db: db, ch: new(codec.BincHandle)}, nil
}

// Get returns the payload stored under key and when it was fetched.
func (s *DiskStore) Get(key string) ([]byte, time.Time, bool, error) {
	var rec record
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(catalogBucket)).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return s.decode(v, &rec)
	})
	if err != nil || !found {
		return nil, time.Time{}, false, err
	}
	return rec.Payload, time.Unix(rec.FetchedAt, 0), true, nil
}

// Put stores payload under key, stamped with fetchedAt.
func (s *DiskStore) Put(key string, payload []byte, fetchedAt time.Time) error {
	encoded, err := s.encode(record{FetchedAt: fetchedAt.Unix(), Payload: payload})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(catalogBucket)).Put([]byte(key), encoded)
	})
}

// Purge removes every stored catalog.
func (s *DiskStore) Purge() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(catalogBucket)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket([]byte(catalogBucket))
		return err
	})
}

// Keys lists the stored catalog keys.
func (s *DiskStore) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(catalogBucket)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Close releases the database file lock.
func (s *DiskStore) Close() error {
	return s.db.Close()
}

func (s *DiskStore) encode(data any) ([]byte, error) {
	var encoded []byte
	if err := codec.NewEncoderBytes(&encoded, s.ch).Encode(data); err != nil {
		return nil, errors.Wrap(errors.ErrCacheEncode, err.Error())
	}
	return encoded, nil
}

func (s *DiskStore) decode(encoded []byte, data any) error {
	if err := codec.NewDecoderBytes(encoded, s.ch).Decode(data); err != nil {
		return errors.Wrap(errors.ErrCacheDecode, err.Error())
	}
	return nil
}
