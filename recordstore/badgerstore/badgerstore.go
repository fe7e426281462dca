// Package badgerstore persists the advisory wallet record in a badger
// database so it survives process restarts.
package badgerstore

import (
	"context"
	"errors"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/flexigpt/skillchain-go/spec"
)

var recordKey = []byte(spec.AddressRecordKey)

// Store is a disk-backed spec.RecordStore.
type Store struct {
	db *badger.DB
}

var _ spec.RecordStore = (*Store)(nil)

// Open opens the database located at dir, creating it if needed.
func Open(dir string) (*Store, error) {
	return open(badger.DefaultOptions(dir).WithLogger(nil))
}

// OpenInMemory opens a database that never touches disk.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close must be called to flush pending writes to disk.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LoadAddress(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	var address string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			address = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return address, true, nil
}

func (s *Store) SaveAddress(ctx context.Context, address string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey, []byte(address))
	})
}

func (s *Store) ClearAddress(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey)
	})
}
