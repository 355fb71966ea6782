package sheet

import (
	"fmt"
	"math"
	"sort"
)

// NonFiniteValueError reports an INF/NAN where a finite value is required.
type NonFiniteValueError struct {
	Context string
}

func (e *NonFiniteValueError) Error() string {
	return fmt.Sprintf("%s contains INF/NAN", e.Context)
}

// Column is one named series of values. The sorted flag tracks whether the
// data is known to be in ascending order, so repeated sorts are free.
type Column struct {
	Name   string
	Data   []float64
	sorted bool
}

func NewColumn(name string, data []float64, sorted bool) Column {
	return Column{Name: name, Data: data, sorted: sorted}
}

func (c *Column) Len() int {
	return len(c.Data)
}

func (c *Column) IsSortable() bool {
	for _, v := range c.Data {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

// IsUnique reports whether no two consecutive values are equal. Only
// meaningful after the column has been sorted.
func (c *Column) IsUnique() bool {
	for i := 1; i < len(c.Data); i++ {
		if c.Data[i] == c.Data[i-1] {
			return false
		}
	}
	return true
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Datasheet is the two-column table every operator works on. Transforms
// treat it as a value: they consume one and build a new one.
type Datasheet struct {
	X Column
	Y Column
}

func NewDatasheet(x Column, y Column) *Datasheet {
	return &Datasheet{X: x, Y: y}
}

// NewRowsDatasheet builds a datasheet from (x, y) pairs. Mostly test glue.
func NewRowsDatasheet(xname, yname string, rows [][2]float64) *Datasheet {
	xs := make([]float64, len(rows))
	ys := make([]float64, len(rows))
	for i, row := range rows {
		xs[i] = row[0]
		ys[i] = row[1]
	}
	return NewDatasheet(NewColumn(xname, xs, false), NewColumn(yname, ys, false))
}

func (ds *Datasheet) Len() int {
	return ds.X.Len()
}

func (ds *Datasheet) Rows() [][2]float64 {
	rows := make([][2]float64, ds.Len())
	for i := range rows {
		rows[i] = [2]float64{ds.X.Data[i], ds.Y.Data[i]}
	}
	return rows
}

func (ds *Datasheet) Clone() *Datasheet {
	x := make([]float64, len(ds.X.Data))
	y := make([]float64, len(ds.Y.Data))
	copy(x, ds.X.Data)
	copy(y, ds.Y.Data)
	return NewDatasheet(
		Column{Name: ds.X.Name, Data: x, sorted: ds.X.sorted},
		Column{Name: ds.Y.Name, Data: y, sorted: ds.Y.sorted})
}

// Exchange swaps the x and y columns.
func (ds *Datasheet) Exchange() {
	ds.X, ds.Y = ds.Y, ds.X
}

func (ds *Datasheet) IsSortedByX() bool {
	return ds.X.sorted
}

// SortByX stably sorts both columns by ascending x. Fails if x contains a
// non-finite value, since those have no total order.
func (ds *Datasheet) SortByX() error {
	if ds.X.sorted {
		return nil
	}
	if !ds.X.IsSortable() {
		return &NonFiniteValueError{Context: "column " + ds.X.Name}
	}
	idx := make([]int, ds.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return ds.X.Data[idx[i]] < ds.X.Data[idx[j]]
	})
	x := make([]float64, len(idx))
	y := make([]float64, len(idx))
	for i, j := range idx {
		x[i] = ds.X.Data[j]
		y[i] = ds.Y.Data[j]
	}
	ds.X.Data = x
	ds.Y.Data = y
	ds.X.sorted = true
	ds.Y.sorted = false
	return nil
}
