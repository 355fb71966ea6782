package sheet

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortByX(t *testing.T) {
	ds := NewRowsDatasheet("time", "value", [][2]float64{
		{3, 30}, {1, 10}, {2, 20}, {1, 11},
	})
	assert.False(t, ds.IsSortedByX())
	assert.NoError(t, ds.SortByX())
	assert.True(t, ds.IsSortedByX())
	assert.Equal(t, [][2]float64{{1, 10}, {1, 11}, {2, 20}, {3, 30}}, ds.Rows())

	// stable: equal keys keep input order
	assert.Equal(t, 10.0, ds.Y.Data[0])
	assert.Equal(t, 11.0, ds.Y.Data[1])
}

func TestSortByXRejectsNonFinite(t *testing.T) {
	ds := NewRowsDatasheet("time", "value", [][2]float64{
		{1, 10}, {math.NaN(), 20},
	})
	err := ds.SortByX()
	assert.Error(t, err)
	var nf *NonFiniteValueError
	assert.ErrorAs(t, err, &nf)
}

func TestExchange(t *testing.T) {
	ds := NewRowsDatasheet("a", "b", [][2]float64{{1, 2}})
	ds.Exchange()
	assert.Equal(t, "b", ds.X.Name)
	assert.Equal(t, "a", ds.Y.Name)
	assert.Equal(t, [][2]float64{{2, 1}}, ds.Rows())
}

func TestIsUnique(t *testing.T) {
	unique := NewColumn("x", []float64{1, 2, 3}, true)
	assert.True(t, unique.IsUnique())

	duplicated := NewColumn("x", []float64{1, 2, 2, 3}, true)
	assert.False(t, duplicated.IsUnique())
}

func TestCloneIsIndependent(t *testing.T) {
	ds := NewRowsDatasheet("x", "y", [][2]float64{{1, 2}, {3, 4}})
	clone := ds.Clone()
	clone.X.Data[0] = 99
	assert.Equal(t, 1.0, ds.X.Data[0])
}

func TestReadCSVWithHeader(t *testing.T) {
	in := "time,lat,count\n1,0.5,10\n2,0.25,20\n"
	ds, err := ReadCSV(strings.NewReader(in), true, 1, 3)
	assert.NoError(t, err)
	assert.Equal(t, "time", ds.X.Name)
	assert.Equal(t, "count", ds.Y.Name)
	assert.Equal(t, [][2]float64{{1, 10}, {2, 20}}, ds.Rows())
}

func TestReadCSVWithoutHeader(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("1,10\n2,20\n"), false, 1, 2)
	assert.NoError(t, err)
	assert.Equal(t, "1", ds.X.Name)
	assert.Equal(t, "2", ds.Y.Name)
	assert.Equal(t, 2, ds.Len())
}

func TestReadCSVBadValue(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("1,ten\n"), false, 1, 2)
	assert.Error(t, err)
}

func TestWriteCSVRoundTrip(t *testing.T) {
	ds := NewRowsDatasheet("x", "y", [][2]float64{{1.5, -2}, {1e6, 0.125}})
	var b strings.Builder
	assert.NoError(t, ds.WriteCSV(&b, true))

	back, err := ReadCSV(strings.NewReader(b.String()), true, 1, 2)
	assert.NoError(t, err)
	assert.Equal(t, ds.Rows(), back.Rows())
	assert.Equal(t, "x", back.X.Name)
	assert.Equal(t, "y", back.Y.Name)
}
