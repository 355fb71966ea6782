package storage

import (
	"errors"

	"github.com/dgraph-io/badger/v2"
)

// TestBadgerDB opens a throwaway in-memory badger instance.
func TestBadgerDB() *badger.DB {
	option := badger.DefaultOptions("").WithInMemory(true)
	db, err := badger.Open(option)
	if err != nil {
		panic(err)
	}
	return db
}

// BadgerBackend keeps cache entries in a badger database, one value per
// canonical prefix key.
type BadgerBackend struct {
	db *badger.DB
}

func NewBadgerBackend(db *badger.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

func OpenBadgerBackend(path string) (*BadgerBackend, error) {
	options := badger.DefaultOptions(path).WithTruncate(true)
	db, err := badger.Open(options)
	if err != nil {
		return nil, err
	}
	return NewBadgerBackend(db), nil
}

func (backend *BadgerBackend) Close() error {
	return backend.db.Close()
}

func (backend *BadgerBackend) Get(key string) ([]byte, error) {
	var buf []byte
	err := backend.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		buf, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return buf, err
}

func (backend *BadgerBackend) Put(key string, buf []byte) error {
	return backend.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), buf)
	})
}

func (backend *BadgerBackend) Delete(key string) error {
	return backend.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (backend *BadgerBackend) Iterate(lambda func(key string) error) error {
	return backend.db.View(func(txn *badger.Txn) error {
		iter := txn.NewIterator(badger.IteratorOptions{})
		defer iter.Close()

		for iter.Seek(nil); iter.Valid(); iter.Next() {
			key := string(iter.Item().Key())
			if IsReservedKey(key) {
				continue
			}
			if err := lambda(key); err != nil {
				return err
			}
		}
		return nil
	})
}
