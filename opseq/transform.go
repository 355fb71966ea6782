package opseq

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
	"github.com/Shift-AC/spreadsheet-plotter/stats"
)

// DuplicateKeyError reports a sort-dependent operator finding non-unique x
// values. This is a hard stop for the whole pipeline.
type DuplicateKeyError struct {
	Op     string
	Column string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: column %s contains duplicated values", e.Op, e.Column)
}

// Window is the (left, right) argument pair of the derivation and average
// operators. A single argument W is canonicalized as (0, W).
type Window struct {
	Left  float64
	Right float64
}

func windowFromArgs(letter byte, args []float64, pos int) (Window, error) {
	var w Window
	switch len(args) {
	case 0:
	case 1:
		w.Right = args[0]
	case 2:
		w.Left = args[0]
		w.Right = args[1]
	default:
		return w, &ParseError{
			Pos: pos,
			Msg: fmt.Sprintf("operator %q takes at most two arguments", letter),
		}
	}
	if w.Left < 0 || w.Right < 0 {
		return w, &ParseError{
			Pos: pos,
			Msg: fmt.Sprintf("operator %q window must be non-negative", letter),
		}
	}
	return w, nil
}

func (w Window) IsZero() bool {
	return w.Left == 0 && w.Right == 0
}

// Span is the combined x extent of the window.
func (w Window) Span() float64 {
	return w.Left + w.Right
}

func formatArg(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// argString is the canonical argument spelling: nothing for the default
// window, one number when only the right edge is set, two otherwise.
func (w Window) argString() string {
	if w.IsZero() {
		return ""
	}
	if w.Left == 0 {
		return formatArg(w.Right)
	}
	return formatArg(w.Left) + "," + formatArg(w.Right)
}

func newTransform(raw rawOp, pos int) (Transform, error) {
	noArgs := func() error {
		if len(raw.args) > 0 {
			return &ParseError{
				Pos: pos,
				Msg: fmt.Sprintf("operator %q takes no arguments", raw.letter),
			}
		}
		return nil
	}
	switch raw.letter {
	case 'c':
		return &CDFTransform{}, noArgs()
	case 'd':
		w, err := windowFromArgs(raw.letter, raw.args, pos)
		if err != nil {
			return nil, err
		}
		return &DerivationTransform{Window: w}, nil
	case 'i':
		return &IntegralTransform{}, noArgs()
	case 'm':
		return &MergeTransform{}, noArgs()
	case 'o':
		return &SortTransform{}, noArgs()
	case 'r':
		return &RotateTransform{}, noArgs()
	case 's':
		return &StepTransform{}, noArgs()
	case 'a':
		w, err := windowFromArgs(raw.letter, raw.args, pos)
		if err != nil {
			return nil, err
		}
		return &AverageTransform{Window: w}, nil
	case 'f':
		return &FilterTransform{}, noArgs()
	case 'u':
		return &UniqueTransform{}, noArgs()
	default:
		return nil, &ParseError{
			Pos: pos,
			Msg: fmt.Sprintf("unknown transform operator %q", raw.letter),
		}
	}
}

func checkFinite(v float64, op string) error {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return &sheet.NonFiniteValueError{Context: op + " result"}
	}
	return nil
}

// CDFTransform sorts the y values and emits (y_i, rank/n).
type CDFTransform struct{}

func (t *CDFTransform) Apply(ds *sheet.Datasheet) (*sheet.Datasheet, error) {
	if !ds.Y.IsSortable() {
		return nil, &sheet.NonFiniteValueError{Context: "column " + ds.Y.Name}
	}
	n := ds.Len()
	xs := make([]float64, n)
	copy(xs, ds.Y.Data)
	sort.Float64s(xs)
	ys := make([]float64, n)
	for i := range ys {
		ys[i] = float64(i+1) / float64(n)
	}
	xname, yname := t.ColumnNames(ds.X.Name, ds.Y.Name)
	return sheet.NewDatasheet(
		sheet.NewColumn(xname, xs, true),
		sheet.NewColumn(yname, ys, false)), nil
}

func (t *CDFTransform) ColumnNames(_, yname string) (string, string) {
	return yname, "CDF"
}

func (t *CDFTransform) String() string {
	return "c"
}

// DerivationTransform emits dy/dx. With the default window every adjacent
// pair produces a point; with a nonzero window a point is emitted each time
// x has advanced at least the window span since the last emission, using the
// first and last record inside that span.
type DerivationTransform struct {
	Window Window
}

func (t *DerivationTransform) Apply(ds *sheet.Datasheet) (*sheet.Datasheet, error) {
	if err := ds.SortByX(); err != nil {
		return nil, err
	}
	if !ds.X.IsUnique() {
		return nil, &DuplicateKeyError{Op: "derivation", Column: ds.X.Name}
	}
	var xs, ys []float64
	span := t.Window.Span()
	started := false
	var x0, y0 float64
	for i := 0; i < ds.Len(); i++ {
		x, y := ds.X.Data[i], ds.Y.Data[i]
		if !started {
			x0, y0 = x, y
			started = true
			continue
		}
		if x0+span > x {
			continue
		}
		d := (y - y0) / (x - x0)
		if err := checkFinite(d, "derivation"); err != nil {
			return nil, err
		}
		xs = append(xs, x)
		ys = append(ys, d)
		x0, y0 = x, y
	}
	xname, yname := t.ColumnNames(ds.X.Name, ds.Y.Name)
	return sheet.NewDatasheet(
		sheet.NewColumn(xname, xs, true),
		sheet.NewColumn(yname, ys, false)), nil
}

func (t *DerivationTransform) ColumnNames(xname, yname string) (string, string) {
	if t.Window.IsZero() {
		return xname, yname + ":Derivation"
	}
	return xname, fmt.Sprintf("%s:Derivation(%s)", yname, t.Window.argString())
}

func (t *DerivationTransform) String() string {
	return "d" + t.Window.argString()
}

// IntegralTransform emits the running cumulative sum of y over x-sorted
// unique records.
type IntegralTransform struct{}

func (t *IntegralTransform) Apply(ds *sheet.Datasheet) (*sheet.Datasheet, error) {
	if err := ds.SortByX(); err != nil {
		return nil, err
	}
	if !ds.X.IsUnique() {
		return nil, &DuplicateKeyError{Op: "integral", Column: ds.X.Name}
	}
	xs := make([]float64, ds.Len())
	copy(xs, ds.X.Data)
	ys := make([]float64, ds.Len())
	acc := 0.0
	for i, y := range ds.Y.Data {
		acc += y
		if err := checkFinite(acc, "integral"); err != nil {
			return nil, err
		}
		ys[i] = acc
	}
	xname, yname := t.ColumnNames(ds.X.Name, ds.Y.Name)
	return sheet.NewDatasheet(
		sheet.NewColumn(xname, xs, true),
		sheet.NewColumn(yname, ys, false)), nil
}

func (t *IntegralTransform) ColumnNames(xname, yname string) (string, string) {
	return xname, yname + ":Integral"
}

func (t *IntegralTransform) String() string {
	return "i"
}

// MergeTransform sums y over streaks of immediately consecutive rows sharing
// the same x. It does not sort: a later repeat of an earlier x starts a
// fresh streak.
type MergeTransform struct{}

func (t *MergeTransform) Apply(ds *sheet.Datasheet) (*sheet.Datasheet, error) {
	var xs, ys []float64
	started := false
	var cur, acc float64
	for i := 0; i < ds.Len(); i++ {
		x, y := ds.X.Data[i], ds.Y.Data[i]
		switch {
		case !started:
			cur, acc = x, y
			started = true
		case cur == x:
			acc += y
			if err := checkFinite(acc, "merge"); err != nil {
				return nil, err
			}
		default:
			xs = append(xs, cur)
			ys = append(ys, acc)
			cur, acc = x, y
		}
	}
	if started {
		xs = append(xs, cur)
		ys = append(ys, acc)
	}
	xname, yname := t.ColumnNames(ds.X.Name, ds.Y.Name)
	return sheet.NewDatasheet(
		sheet.NewColumn(xname, xs, false),
		sheet.NewColumn(yname, ys, false)), nil
}

func (t *MergeTransform) ColumnNames(xname, yname string) (string, string) {
	return xname, yname + ":Merge"
}

func (t *MergeTransform) String() string {
	return "m"
}

// SortTransform stably sorts by ascending x. Column names are preserved.
type SortTransform struct{}

func (t *SortTransform) Apply(ds *sheet.Datasheet) (*sheet.Datasheet, error) {
	if err := ds.SortByX(); err != nil {
		return nil, err
	}
	return ds, nil
}

func (t *SortTransform) ColumnNames(xname, yname string) (string, string) {
	return xname, yname
}

func (t *SortTransform) String() string {
	return "o"
}

// RotateTransform swaps the x and y columns.
type RotateTransform struct{}

func (t *RotateTransform) Apply(ds *sheet.Datasheet) (*sheet.Datasheet, error) {
	ds.Exchange()
	return ds, nil
}

func (t *RotateTransform) ColumnNames(xname, yname string) (string, string) {
	return yname, xname
}

func (t *RotateTransform) String() string {
	return "r"
}

// StepTransform emits the difference of consecutive y values, in input
// order, without sorting.
type StepTransform struct{}

func (t *StepTransform) Apply(ds *sheet.Datasheet) (*sheet.Datasheet, error) {
	var xs, ys []float64
	for i := 1; i < ds.Len(); i++ {
		d := ds.Y.Data[i] - ds.Y.Data[i-1]
		if err := checkFinite(d, "step"); err != nil {
			return nil, err
		}
		xs = append(xs, ds.X.Data[i])
		ys = append(ys, d)
	}
	xname, yname := t.ColumnNames(ds.X.Name, ds.Y.Name)
	return sheet.NewDatasheet(
		sheet.NewColumn(xname, xs, false),
		sheet.NewColumn(yname, ys, false)), nil
}

func (t *StepTransform) ColumnNames(xname, yname string) (string, string) {
	return xname, yname + ":Step"
}

func (t *StepTransform) String() string {
	return "s"
}

// AverageTransform replaces each y_i with the mean of all y_j whose x_j lies
// in [x_i - left, x_i + right]. One output row per input row.
type AverageTransform struct {
	Window Window
}

func (t *AverageTransform) Apply(ds *sheet.Datasheet) (*sheet.Datasheet, error) {
	n := ds.Len()
	xs := make([]float64, n)
	copy(xs, ds.X.Data)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		lo := ds.X.Data[i] - t.Window.Left
		hi := ds.X.Data[i] + t.Window.Right
		mean := stats.NewWelford()
		for j := 0; j < n; j++ {
			if ds.X.Data[j] >= lo && ds.X.Data[j] <= hi {
				mean.Update(ds.Y.Data[j])
			}
		}
		avg := mean.GetMean()
		if err := checkFinite(avg, "average"); err != nil {
			return nil, err
		}
		ys[i] = avg
	}
	xname, yname := t.ColumnNames(ds.X.Name, ds.Y.Name)
	return sheet.NewDatasheet(
		sheet.NewColumn(xname, xs, false),
		sheet.NewColumn(yname, ys, false)), nil
}

func (t *AverageTransform) ColumnNames(xname, yname string) (string, string) {
	if t.Window.IsZero() {
		return xname, yname + ":Average"
	}
	return xname, fmt.Sprintf("%s:Average(%s)", yname, t.Window.argString())
}

func (t *AverageTransform) String() string {
	return "a" + t.Window.argString()
}

// FilterTransform drops rows whose y is infinite or NaN.
type FilterTransform struct{}

func (t *FilterTransform) Apply(ds *sheet.Datasheet) (*sheet.Datasheet, error) {
	var xs, ys []float64
	for i := 0; i < ds.Len(); i++ {
		y := ds.Y.Data[i]
		if math.IsInf(y, 0) || math.IsNaN(y) {
			continue
		}
		xs = append(xs, ds.X.Data[i])
		ys = append(ys, y)
	}
	return sheet.NewDatasheet(
		sheet.NewColumn(ds.X.Name, xs, false),
		sheet.NewColumn(ds.Y.Name, ys, false)), nil
}

func (t *FilterTransform) ColumnNames(xname, yname string) (string, string) {
	return xname, yname
}

func (t *FilterTransform) String() string {
	return "f"
}

// UniqueTransform keeps the first row encountered for each distinct x, in
// original order.
type UniqueTransform struct{}

func (t *UniqueTransform) Apply(ds *sheet.Datasheet) (*sheet.Datasheet, error) {
	seen := make(map[float64]bool, ds.Len())
	var xs, ys []float64
	for i := 0; i < ds.Len(); i++ {
		x := ds.X.Data[i]
		if seen[x] {
			continue
		}
		seen[x] = true
		xs = append(xs, x)
		ys = append(ys, ds.Y.Data[i])
	}
	return sheet.NewDatasheet(
		sheet.NewColumn(ds.X.Name, xs, false),
		sheet.NewColumn(ds.Y.Name, ys, false)), nil
}

func (t *UniqueTransform) ColumnNames(xname, yname string) (string, string) {
	return xname, yname
}

func (t *UniqueTransform) String() string {
	return "u"
}
