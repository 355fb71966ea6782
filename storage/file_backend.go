package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const lnkExtension = ".lnk"

// FileBackend keeps each cache entry as an lnk file in a directory, named
// after its canonical prefix key. This is the encoding a later invocation
// can also consume directly as input.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileBackend{dir: dir}, nil
}

func (backend *FileBackend) path(key string) string {
	return filepath.Join(backend.dir, key+lnkExtension)
}

func (backend *FileBackend) Get(key string) ([]byte, error) {
	buf, err := os.ReadFile(backend.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return buf, err
}

func (backend *FileBackend) Put(key string, buf []byte) error {
	return os.WriteFile(backend.path(key), buf, 0644)
}

func (backend *FileBackend) Delete(key string) error {
	err := os.Remove(backend.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (backend *FileBackend) Iterate(lambda func(key string) error) error {
	dirEntries, err := os.ReadDir(backend.dir)
	if err != nil {
		return err
	}
	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()
		if dirEntry.IsDir() || !strings.HasSuffix(name, lnkExtension) {
			continue
		}
		key := strings.TrimSuffix(name, lnkExtension)
		if IsReservedKey(key) {
			continue
		}
		if err := lambda(key); err != nil {
			return err
		}
	}
	return nil
}

func (backend *FileBackend) Close() error {
	return nil
}
