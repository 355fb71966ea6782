// Package source implements the source boundary: it turns a spreadsheet
// file, a standard input stream or a previously written cache file into the
// in-memory two-column table the engine consumes, together with the lineage
// needed to record cache entries against it.
package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Shift-AC/spreadsheet-plotter/expr"
	"github.com/Shift-AC/spreadsheet-plotter/sheet"
	"github.com/Shift-AC/spreadsheet-plotter/storage"
)

type Format string

const (
	FormatCSV Format = "csv"
	FormatLnk Format = "lnk"
)

func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "csv":
		return FormatCSV, nil
	case "lnk":
		return FormatLnk, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// StdinPath names the standard input stream. Tables read from it carry no
// lineage: the stream cannot be re-opened, so cache writes are refused
// downstream.
const StdinPath = "-"

// Input is a ready-made table plus the metadata the driver needs.
type Input struct {
	Table   *sheet.Datasheet
	Lineage *storage.Lineage

	// ConsumedPrefix is the canonical stripped operator prefix already
	// applied to Table. Empty except for lnk inputs.
	ConsumedPrefix string
}

// Open reads the input file (or stdin for "-") in the given format.
func Open(path string, format Format, hasHeader bool, xexpr, yexpr string) (*Input, error) {
	var r io.Reader
	if path == StdinPath {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	switch format {
	case FormatCSV:
		ds, err := FromCSV(r, hasHeader, xexpr, yexpr)
		if err != nil {
			return nil, err
		}
		input := &Input{Table: ds}
		if path != StdinPath {
			input.Lineage = &storage.Lineage{
				Input:     path,
				XExpr:     xexpr,
				YExpr:     yexpr,
				HasHeader: hasHeader,
			}
		}
		return input, nil
	case FormatLnk:
		entry, err := storage.DecodeEntry(r)
		if err != nil {
			return nil, err
		}
		lineage := entry.Header.Lineage
		return &Input{
			Table:          entry.Sheet,
			Lineage:        &lineage,
			ConsumedPrefix: entry.Header.OpStr,
		}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// FromCSV reads the whole spreadsheet and evaluates the x and y axis
// expressions per row to produce the two-column table.
func FromCSV(r io.Reader, hasHeader bool, xexpr, yexpr string) (*sheet.Datasheet, error) {
	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = -1

	var header []string
	if hasHeader {
		var err error
		header, err = rdr.Read()
		if err != nil {
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
	}

	xe, err := expr.Parse(xexpr, header)
	if err != nil {
		return nil, fmt.Errorf("x expression: %w", err)
	}
	ye, err := expr.Parse(yexpr, header)
	if err != nil {
		return nil, fmt.Errorf("y expression: %w", err)
	}

	var xs, ys []float64
	for i := 0; ; i++ {
		record, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record #%d: %w", i, err)
		}
		row := func(col int) (float64, error) {
			if col > len(record) {
				return 0, fmt.Errorf("record #%d has no column %d", i, col)
			}
			v, err := strconv.ParseFloat(record[col-1], 64)
			if err != nil {
				return 0, fmt.Errorf("invalid value in record #%d column %d: %w", i, col, err)
			}
			return v, nil
		}
		x, err := xe.Eval(row)
		if err != nil {
			return nil, err
		}
		y, err := ye.Eval(row)
		if err != nil {
			return nil, err
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}

	return sheet.NewDatasheet(
		sheet.NewColumn(columnTitle(xe, header), xs, false),
		sheet.NewColumn(columnTitle(ye, header), ys, false)), nil
}

// columnTitle names a derived column: a bare column reference keeps the
// spreadsheet title, anything else keeps the expression text.
func columnTitle(e *expr.Expr, header []string) string {
	if col, ok := e.SingleColumn(); ok && col <= len(header) {
		return header[col-1]
	}
	return e.String()
}
