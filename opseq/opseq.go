// Package opseq implements the operator sequence: the compact textual
// program driving one pipeline execution. Lowercase letters are transforms,
// uppercase letters are dumps, and a letter may be followed by a
// comma-separated numeric argument list.
package opseq

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

const (
	DumpCache    = 'C'
	DumpTerminal = 'O'
	DumpPlot     = 'P'
)

// ParseError reports a malformed operator letter or argument.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("opseq parse error at %d: %s", e.Pos, e.Msg)
}

// Transform is a pure Datasheet -> Datasheet step.
type Transform interface {
	Apply(ds *sheet.Datasheet) (*sheet.Datasheet, error)
	// ColumnNames maps the input column names to the output column names
	// without touching any data.
	ColumnNames(xname, yname string) (string, string)
	String() string
}

// Op is one parsed operator: a transform for lowercase letters, a dump
// letter for uppercase ones.
type Op struct {
	Transform Transform
	Dump      byte
}

func (op Op) IsDump() bool {
	return op.Transform == nil
}

func (op Op) String() string {
	if op.IsDump() {
		return string(op.Dump)
	}
	return op.Transform.String()
}

// Seq is an ordered list of operators, reconstructable back to the
// canonical string form used as the cache key.
type Seq struct {
	Ops []Op
}

// rawOp is the scanner-level token: one letter plus its argument list.
type rawOp struct {
	letter byte
	args   []float64
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// scanOp consumes one operator from the head of s and returns the number of
// bytes consumed. Arguments run until the next letter.
func scanOp(s string, pos int) (rawOp, int, error) {
	c := s[0]
	if !isLetter(c) {
		return rawOp{}, 0, &ParseError{Pos: pos, Msg: fmt.Sprintf("non-alphabetic operator %q", c)}
	}
	end := 1
	for end < len(s) && !isLetter(s[end]) {
		end++
	}
	op := rawOp{letter: c}
	if end > 1 {
		for _, argStr := range strings.Split(s[1:end], ",") {
			arg, err := strconv.ParseFloat(argStr, 64)
			if err != nil {
				return rawOp{}, 0, &ParseError{
					Pos: pos,
					Msg: fmt.Sprintf("invalid argument %q for operator %q", argStr, c),
				}
			}
			if math.IsInf(arg, 0) || math.IsNaN(arg) {
				return rawOp{}, 0, &ParseError{
					Pos: pos,
					Msg: fmt.Sprintf("non-finite argument %q for operator %q", argStr, c),
				}
			}
			op.args = append(op.args, arg)
		}
	}
	return op, end, nil
}

// Parse scans the sequence string left to right into typed operators.
func Parse(s string) (*Seq, error) {
	seq := &Seq{}
	for i := 0; i < len(s); {
		raw, n, err := scanOp(s[i:], i)
		if err != nil {
			return nil, err
		}
		op, err := newOp(raw, i)
		if err != nil {
			return nil, err
		}
		seq.Ops = append(seq.Ops, op)
		i += n
	}
	return seq, nil
}

// Check reports whether s is a well-formed operator sequence.
func Check(s string) error {
	_, err := Parse(s)
	return err
}

func newOp(raw rawOp, pos int) (Op, error) {
	if raw.letter >= 'A' && raw.letter <= 'Z' {
		switch raw.letter {
		case DumpCache, DumpTerminal, DumpPlot:
			if len(raw.args) > 0 {
				return Op{}, &ParseError{
					Pos: pos,
					Msg: fmt.Sprintf("dump operator %q takes no arguments", raw.letter),
				}
			}
			return Op{Dump: raw.letter}, nil
		default:
			return Op{}, &ParseError{
				Pos: pos,
				Msg: fmt.Sprintf("unknown dump operator %q", raw.letter),
			}
		}
	}
	transform, err := newTransform(raw, pos)
	if err != nil {
		return Op{}, err
	}
	return Op{Transform: transform}, nil
}

// Prefix reconstructs the canonical string of the operators up to and
// including index until. With includeDumps false the result is the
// dump-stripped form used as the cache key.
func (seq *Seq) Prefix(until int, includeDumps bool) string {
	var b strings.Builder
	for i := 0; i <= until && i < len(seq.Ops); i++ {
		if seq.Ops[i].IsDump() && !includeDumps {
			continue
		}
		b.WriteString(seq.Ops[i].String())
	}
	return b.String()
}

func (seq *Seq) String() string {
	return seq.Prefix(len(seq.Ops)-1, true)
}

// Stripped is the canonical form with all dump letters removed.
func (seq *Seq) Stripped() string {
	return seq.Prefix(len(seq.Ops)-1, false)
}

// SkipIndex locates the last operator position whose cumulative stripped
// prefix equals key. All operators up to and including that position were
// already accounted for by the cache entry stored under key; execution
// resumes at the next one. Returns false when no position matches.
func (seq *Seq) SkipIndex(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	var b strings.Builder
	last := -1
	for i, op := range seq.Ops {
		if !op.IsDump() {
			b.WriteString(op.String())
		}
		if b.Len() > len(key) {
			break
		}
		if b.String() == key {
			last = i
		}
	}
	if last < 0 {
		return 0, false
	}
	return last, true
}

// ColumnNames folds the column renames of every transform in the sequence
// over the initial column names, without evaluating any data.
func (seq *Seq) ColumnNames(xname, yname string) (string, string) {
	for _, op := range seq.Ops {
		if op.IsDump() {
			continue
		}
		xname, yname = op.Transform.ColumnNames(xname, yname)
	}
	return xname, yname
}

// StripDumps removes the uppercase letters from a raw sequence string
// without parsing it. Arguments never contain letters, so byte filtering
// matches the canonical stripped form of the parsed sequence.
func StripDumps(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
