package expr

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

// rowOf resolves 1-based column indexes against a fixed record.
func rowOf(values ...float64) func(int) (float64, error) {
	return func(col int) (float64, error) {
		if col < 1 || col > len(values) {
			return 0, fmt.Errorf("no column %d", col)
		}
		return values[col-1], nil
	}
}

func evalConst(t *testing.T, s string) float64 {
	t.Helper()
	e, err := Parse(s, nil)
	assert.NoError(t, err)
	v, err := e.Eval(rowOf())
	assert.NoError(t, err)
	return v
}

func TestArithmetic(t *testing.T) {
	assert.Equal(t, 7.0, evalConst(t, "1+2*3"))
	assert.Equal(t, 9.0, evalConst(t, "(1+2)*3"))
	assert.Equal(t, 2.5, evalConst(t, "5/2"))
	assert.Equal(t, 1.0, evalConst(t, "7%3"))
	assert.Equal(t, 8.0, evalConst(t, "2^3"))
	assert.Equal(t, -4.0, evalConst(t, "-4"))
	assert.Equal(t, 6.0, evalConst(t, "--6"))
	assert.Equal(t, 0.001, evalConst(t, "1e-3"))
	assert.Equal(t, 1.5, evalConst(t, " 1 + 0.5 "))
}

func TestPowerIsRightAssociative(t *testing.T) {
	// 2^(3^2), not (2^3)^2
	assert.Equal(t, 512.0, evalConst(t, "2^3^2"))
}

func TestColumnReferences(t *testing.T) {
	e, err := Parse("#1+#2*2", nil)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2}, e.Columns())
	assert.False(t, e.IsConstant())

	v, err := e.Eval(rowOf(10, 20))
	assert.NoError(t, err)
	assert.Equal(t, 50.0, v)
}

func TestExcelColumnReferences(t *testing.T) {
	e, err := Parse("#B", nil)
	assert.NoError(t, err)
	v, err := e.Eval(rowOf(1, 42))
	assert.NoError(t, err)
	assert.Equal(t, 42.0, v)

	e, err = Parse("#AA", nil)
	assert.NoError(t, err)
	assert.Equal(t, []int{27}, e.Columns())
}

func TestExcelColumnIndex(t *testing.T) {
	for name, want := range map[string]int{
		"A": 1, "Z": 26, "AA": 27, "AZ": 52, "ba": 53,
	} {
		got, ok := ExcelColumnIndex(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := ExcelColumnIndex("A1")
	assert.False(t, ok)
	_, ok = ExcelColumnIndex("")
	assert.False(t, ok)
}

func TestNamedColumnReferences(t *testing.T) {
	header := []string{"time", "lat@avg", "count"}

	e, err := Parse("@count@/2", header)
	assert.NoError(t, err)
	v, err := e.Eval(rowOf(1, 2, 8))
	assert.NoError(t, err)
	assert.Equal(t, 4.0, v)

	// '\' escapes the delimiter inside a title
	e, err = Parse(`@lat\@avg@`, header)
	assert.NoError(t, err)
	v, err = e.Eval(rowOf(1, 2, 8))
	assert.NoError(t, err)
	assert.Equal(t, 2.0, v)
}

func TestSingleColumn(t *testing.T) {
	e, err := Parse("#3", nil)
	assert.NoError(t, err)
	col, ok := e.SingleColumn()
	assert.True(t, ok)
	assert.Equal(t, 3, col)

	e, err = Parse("#3+0", nil)
	assert.NoError(t, err)
	_, ok = e.SingleColumn()
	assert.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	for _, s := range []string{
		"", "1+", "(1", "#", "#0", "#1$", "@name@", "@unterminated",
		"1..2", "*3", "@@",
	} {
		_, err := Parse(s, nil)
		assert.Error(t, err, s)
	}
}

func TestEvalRejectsNonFinite(t *testing.T) {
	e, err := Parse("1/0", nil)
	assert.NoError(t, err)
	_, err = e.Eval(rowOf())
	var nf *sheet.NonFiniteValueError
	assert.ErrorAs(t, err, &nf)

	e, err = Parse("#1*2", nil)
	assert.NoError(t, err)
	_, err = e.Eval(rowOf(math.MaxFloat64))
	assert.ErrorAs(t, err, &nf)
}

func TestEvalPropagatesRowErrors(t *testing.T) {
	e, err := Parse("#5", nil)
	assert.NoError(t, err)
	_, err = e.Eval(rowOf(1, 2))
	assert.Error(t, err)
}
