package opseq

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

func apply(t *testing.T, opSeq string, rows [][2]float64) *sheet.Datasheet {
	t.Helper()
	seq, err := Parse(opSeq)
	assert.NoError(t, err)
	ds := sheet.NewRowsDatasheet("x", "y", rows)
	for _, op := range seq.Ops {
		assert.False(t, op.IsDump())
		ds, err = op.Transform.Apply(ds)
		assert.NoError(t, err)
	}
	return ds
}

func TestSortIsIdempotent(t *testing.T) {
	rows := [][2]float64{{3, 30}, {1, 10}, {2, 20}}
	once := apply(t, "o", rows)
	twice := apply(t, "oo", rows)
	assert.Equal(t, once.Rows(), twice.Rows())
	assert.Equal(t, [][2]float64{{1, 10}, {2, 20}, {3, 30}}, once.Rows())
}

func TestCDF(t *testing.T) {
	ds := apply(t, "c", [][2]float64{{1, 30}, {2, 10}, {3, 20}, {4, 40}})
	assert.Equal(t, "y", ds.X.Name)
	assert.Equal(t, "CDF", ds.Y.Name)
	assert.Equal(t, []float64{10, 20, 30, 40}, ds.X.Data)
	assert.Equal(t, []float64{0.25, 0.5, 0.75, 1}, ds.Y.Data)
	// the last point of any CDF is exactly 1
	assert.Equal(t, 1.0, ds.Y.Data[ds.Len()-1])
}

func TestCDFRejectsNonFinite(t *testing.T) {
	seq, _ := Parse("c")
	ds := sheet.NewRowsDatasheet("x", "y", [][2]float64{{1, math.Inf(1)}})
	_, err := seq.Ops[0].Transform.Apply(ds)
	var nf *sheet.NonFiniteValueError
	assert.ErrorAs(t, err, &nf)
}

func TestDerivation(t *testing.T) {
	ds := apply(t, "d", [][2]float64{{0, 0}, {1, 2}, {2, 6}, {4, 6}})
	assert.Equal(t, "y:Derivation", ds.Y.Name)
	assert.Equal(t, [][2]float64{{1, 2}, {2, 4}, {4, 0}}, ds.Rows())
}

func TestDerivationWindow(t *testing.T) {
	// with span 2 the points at x=1 and x=3 are swallowed
	ds := apply(t, "d2", [][2]float64{{0, 0}, {1, 1}, {2, 4}, {3, 5}, {4, 8}})
	assert.Equal(t, "y:Derivation(2)", ds.Y.Name)
	assert.Equal(t, [][2]float64{{2, 2}, {4, 2}}, ds.Rows())
}

func TestDerivationDuplicateX(t *testing.T) {
	seq, _ := Parse("d")
	ds := sheet.NewRowsDatasheet("x", "y", [][2]float64{{1, 1}, {1, 2}, {2, 3}})
	_, err := seq.Ops[0].Transform.Apply(ds)
	var dup *DuplicateKeyError
	assert.ErrorAs(t, err, &dup)
	assert.Equal(t, "x", dup.Column)
}

func TestIntegral(t *testing.T) {
	ds := apply(t, "i", [][2]float64{{3, 3}, {1, 1}, {2, 2}})
	assert.Equal(t, "y:Integral", ds.Y.Name)
	assert.Equal(t, [][2]float64{{1, 1}, {2, 3}, {3, 6}}, ds.Rows())
}

func TestIntegralThenDerivationRecoversY(t *testing.T) {
	// over unit-spaced x the default derivation undoes the running sum
	rows := [][2]float64{{0, 5}, {1, -2}, {2, 7}, {3, 0.5}}
	ds := apply(t, "id", rows)
	assert.Equal(t, [][2]float64{{1, -2}, {2, 7}, {3, 0.5}}, ds.Rows())
}

func TestMergeSumsConsecutiveStreaksOnly(t *testing.T) {
	ds := apply(t, "m", [][2]float64{{1, 2}, {1, 3}, {2, 4}, {1, 2}})
	assert.Equal(t, "y:Merge", ds.Y.Name)
	assert.Equal(t, [][2]float64{{1, 5}, {2, 4}, {1, 2}}, ds.Rows())
}

func TestRotate(t *testing.T) {
	ds := apply(t, "r", [][2]float64{{1, 2}, {3, 4}})
	assert.Equal(t, "y", ds.X.Name)
	assert.Equal(t, "x", ds.Y.Name)
	assert.Equal(t, [][2]float64{{2, 1}, {4, 3}}, ds.Rows())
}

func TestStep(t *testing.T) {
	ds := apply(t, "s", [][2]float64{{1, 10}, {2, 13}, {3, 11}})
	assert.Equal(t, "y:Step", ds.Y.Name)
	assert.Equal(t, [][2]float64{{2, 3}, {3, -2}}, ds.Rows())
}

func TestStepOnSingleRowIsEmpty(t *testing.T) {
	ds := apply(t, "s", [][2]float64{{1, 10}})
	assert.Equal(t, 0, ds.Len())
}

func TestAverage(t *testing.T) {
	// window (1, 1) around every point
	ds := apply(t, "a1,1", [][2]float64{{0, 0}, {1, 2}, {2, 4}, {10, 6}})
	assert.Equal(t, "y:Average(1,1)", ds.Y.Name)
	assert.Equal(t, []float64{1, 2, 3, 6}, ds.Y.Data)
}

func TestAverageDefaultWindowIsIdentity(t *testing.T) {
	rows := [][2]float64{{1, 10}, {2, 20}}
	ds := apply(t, "a", rows)
	assert.Equal(t, rows, ds.Rows())
}

func TestFilterDropsNonFinite(t *testing.T) {
	ds := apply(t, "f", [][2]float64{
		{1, 10}, {2, math.NaN()}, {3, math.Inf(1)}, {4, 40},
	})
	assert.Equal(t, [][2]float64{{1, 10}, {4, 40}}, ds.Rows())
}

func TestUniqueKeepsFirstPerX(t *testing.T) {
	ds := apply(t, "u", [][2]float64{{1, 10}, {2, 20}, {1, 30}, {3, 40}})
	assert.Equal(t, [][2]float64{{1, 10}, {2, 20}, {3, 40}}, ds.Rows())
}

func TestStepRejectsNonFiniteDifference(t *testing.T) {
	seq, _ := Parse("s")
	ds := sheet.NewRowsDatasheet("x", "y", [][2]float64{
		{1, math.MaxFloat64}, {2, -math.MaxFloat64},
	})
	_, err := seq.Ops[0].Transform.Apply(ds)
	var nf *sheet.NonFiniteValueError
	assert.ErrorAs(t, err, &nf)
}
