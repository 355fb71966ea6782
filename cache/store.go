// Package cache resolves which stored intermediate table, if any, a
// requested operator sequence can resume from.
package cache

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/dgraph-io/ristretto"

	"github.com/Shift-AC/spreadsheet-plotter/storage"
)

// Store is a read-through layer over a storage backend. Decoded entries are
// kept in a ristretto cache so that repeated resolutions (one per series in
// a multi-series run) do not re-parse the same lnk payloads.
type Store struct {
	backend      storage.Backend
	cacheEnabled bool
	entryCache   *ristretto.Cache
}

func NewStore(backend storage.Backend, cacheEnabled bool) *Store {
	entryCache, _ := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 26,
		BufferItems: 64,
	})
	return &Store{
		backend:      backend,
		cacheEnabled: cacheEnabled,
		entryCache:   entryCache,
	}
}

func (store *Store) Put(key string, entry *storage.Entry) error {
	buf, err := entry.Bytes()
	if err != nil {
		return err
	}
	if err := store.backend.Put(key, buf); err != nil {
		return err
	}
	if store.cacheEnabled {
		// the caller keeps transforming its table in place; cache a
		// private copy, not an alias
		store.entryCache.Set(key, entry.Clone(), int64(len(buf)))
	}
	return nil
}

func (store *Store) Get(key string) (*storage.Entry, error) {
	if store.cacheEnabled {
		entry, found := store.entryCache.Get(key)
		if found {
			return entry.(*storage.Entry).Clone(), nil
		}
	}
	buf, err := store.backend.Get(key)
	if err != nil {
		return nil, err
	}
	entry, err := storage.DecodeEntryBytes(buf)
	if err != nil {
		return nil, fmt.Errorf("corrupt cache entry %q: %w", key, err)
	}
	if store.cacheEnabled {
		store.entryCache.Set(key, entry.Clone(), int64(len(buf)))
	}
	return entry, nil
}

func (store *Store) Keys() ([]string, error) {
	var keys []string
	err := store.backend.Iterate(func(key string) error {
		keys = append(keys, key)
		return nil
	})
	return keys, err
}

// PutLineage writes the session lineage record. The first write wins; later
// writes with the same lineage are no-ops and a conflicting lineage is
// refused.
func (store *Store) PutLineage(lineage storage.Lineage) error {
	existing, found, err := store.GetLineage()
	if err != nil {
		return err
	}
	if found {
		if !existing.Equal(lineage) {
			return &LineageMismatchError{Want: lineage, Got: existing}
		}
		return nil
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(&lineage); err != nil {
		return err
	}
	return store.backend.Put(storage.LineageKey, buf.Bytes())
}

func (store *Store) GetLineage() (storage.Lineage, bool, error) {
	var lineage storage.Lineage
	buf, err := store.backend.Get(storage.LineageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return lineage, false, nil
	}
	if err != nil {
		return lineage, false, err
	}
	if err := toml.Unmarshal(buf, &lineage); err != nil {
		return lineage, false, fmt.Errorf("corrupt lineage record: %w", err)
	}
	return lineage, true, nil
}

func (store *Store) Close() error {
	return store.backend.Close()
}
