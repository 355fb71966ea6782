package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
	"github.com/Shift-AC/spreadsheet-plotter/storage"
)

var testLineage = storage.Lineage{
	Input:     "data/latency.csv",
	XExpr:     "#1",
	YExpr:     "#2",
	HasHeader: true,
}

func newEntry(opStr string, rows [][2]float64) *storage.Entry {
	return &storage.Entry{
		Header: storage.Header{
			Lineage:   testLineage,
			OpStr:     opStr,
			WrittenAt: 1,
		},
		Sheet: sheet.NewRowsDatasheet("x", "y", rows),
	}
}

func TestStorePutGet(t *testing.T) {
	store := NewStore(storage.NewInMemoryBackend(), true)
	defer store.Close()

	entry := newEntry("i", [][2]float64{{1, 1}, {2, 3}})
	assert.NoError(t, store.Put("i", entry))

	got, err := store.Get("i")
	assert.NoError(t, err)
	assert.Equal(t, "i", got.Header.OpStr)
	assert.Equal(t, entry.Sheet.Rows(), got.Sheet.Rows())

	_, err = store.Get("id1000")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStoreGetWithoutReadCache(t *testing.T) {
	store := NewStore(storage.NewInMemoryBackend(), false)
	defer store.Close()

	assert.NoError(t, store.Put("i", newEntry("i", [][2]float64{{1, 1}})))
	got, err := store.Get("i")
	assert.NoError(t, err)
	assert.Equal(t, "i", got.Header.OpStr)
}

func TestStoreGetReturnsIndependentSheets(t *testing.T) {
	store := NewStore(storage.NewInMemoryBackend(), true)
	defer store.Close()

	entry := newEntry("o", [][2]float64{{1, 2}, {3, 4}})
	assert.NoError(t, store.Put("o", entry))
	// the caller keeps transforming the table it just cached
	entry.Sheet.Exchange()

	got, err := store.Get("o")
	assert.NoError(t, err)
	assert.Equal(t, [][2]float64{{1, 2}, {3, 4}}, got.Sheet.Rows())

	// in-place transforms on a resolved table must not leak back either
	got.Sheet.Exchange()
	again, err := store.Get("o")
	assert.NoError(t, err)
	assert.Equal(t, [][2]float64{{1, 2}, {3, 4}}, again.Sheet.Rows())
}

func TestStoreKeysSkipReserved(t *testing.T) {
	store := NewStore(storage.NewInMemoryBackend(), true)
	defer store.Close()

	assert.NoError(t, store.PutLineage(testLineage))
	assert.NoError(t, store.Put("i", newEntry("i", nil)))

	keys, err := store.Keys()
	assert.NoError(t, err)
	assert.Equal(t, []string{"i"}, keys)
}

func TestPutLineageFirstWriteWins(t *testing.T) {
	store := NewStore(storage.NewInMemoryBackend(), true)
	defer store.Close()

	_, found, err := store.GetLineage()
	assert.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, store.PutLineage(testLineage))
	// same lineage again is a no-op
	assert.NoError(t, store.PutLineage(testLineage))

	got, found, err := store.GetLineage()
	assert.NoError(t, err)
	assert.True(t, found)
	assert.True(t, got.Equal(testLineage))

	other := testLineage
	other.YExpr = "#3"
	err = store.PutLineage(other)
	var mismatch *LineageMismatchError
	assert.ErrorAs(t, err, &mismatch)
}
