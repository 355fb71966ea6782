package storage

import (
	"errors"
	"strings"
	"sync"
)

// ErrNotFound is returned by Get for keys with no stored entry.
var ErrNotFound = errors.New("entry not found")

// Keys starting with the reserved prefix hold bookkeeping records (the
// session lineage) and are skipped by Iterate.
const reservedPrefix = "!"

// LineageKey is the reserved key holding the session lineage record,
// written once per store on the first cache write.
const LineageKey = reservedPrefix + "lineage"

func IsReservedKey(key string) bool {
	return strings.HasPrefix(key, reservedPrefix)
}

// Backend stores encoded cache entries by canonical prefix key.
type Backend interface {
	Get(key string) ([]byte, error)
	Put(key string, buf []byte) error
	Delete(key string) error

	// Iterate calls lambda for every non-reserved key, in no
	// particular order.
	Iterate(lambda func(key string) error) error

	Close() error
}

type InMemoryBackend struct {
	entries map[string][]byte
	mutex   sync.Mutex
}

func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{
		entries: make(map[string][]byte),
	}
}

func (backend *InMemoryBackend) Get(key string) ([]byte, error) {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	buf, ok := backend.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return buf, nil
}

func (backend *InMemoryBackend) Put(key string, buf []byte) error {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	backend.entries[key] = buf
	return nil
}

func (backend *InMemoryBackend) Delete(key string) error {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	delete(backend.entries, key)
	return nil
}

func (backend *InMemoryBackend) Iterate(lambda func(key string) error) error {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	for key := range backend.entries {
		if IsReservedKey(key) {
			continue
		}
		if err := lambda(key); err != nil {
			return err
		}
	}
	return nil
}

func (backend *InMemoryBackend) Close() error {
	backend.entries = nil
	return nil
}
