package store

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

var boltBucket = []byte("donorauth")

// Bolt is a Store backed by a bbolt file. It is the default durable store
// for single-device deployments; the file plays the role the browser's
// persistent storage played in the original client.
type Bolt struct {
	db *bbolt.DB
}

var _ Store = (*Bolt)(nil)

// NewBolt wraps an already-open bbolt database.
func NewBolt(db *bbolt.DB) *Bolt {
	return &Bolt{db: db}
}

// OpenBolt opens (creating if needed) a bbolt database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrUnavailable, path, err)
	}
	return NewBolt(db), nil
}

// Close closes the underlying database.
func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) Load(_ context.Context) (Credentials, error) {
	var creds Credentials
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return nil
		}
		creds.AuthToken = string(bucket.Get([]byte(KeyAuthToken)))
		creds.DeviceSession = string(bucket.Get([]byte(KeyDeviceSession)))
		creds.UserJSON = string(bucket.Get([]byte(KeyUser)))
		return nil
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return creds, nil
}

func (b *Bolt) Save(_ context.Context, creds Credentials) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		if err := putOrDelete(bucket, KeyAuthToken, creds.AuthToken); err != nil {
			return err
		}
		if err := putOrDelete(bucket, KeyDeviceSession, creds.DeviceSession); err != nil {
			return err
		}
		return putOrDelete(bucket, KeyUser, creds.UserJSON)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (b *Bolt) Clear(_ context.Context) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return nil
		}
		for _, key := range []string{KeyAuthToken, KeyDeviceSession, KeyUser} {
			if err := bucket.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// putOrDelete keeps absence meaningful: an empty value removes the key so
// that presence of a key always implies a usable credential.
func putOrDelete(bucket *bbolt.Bucket, key, value string) error {
	if value == "" {
		return bucket.Delete([]byte(key))
	}
	return bucket.Put([]byte(key), []byte(value))
}
