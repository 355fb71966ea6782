package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ReadCSV decodes a two-column datasheet in the tabular text encoding used
// throughout: an optional header row naming the columns, then one x,y record
// per line. xcol and ycol are 1-based column indexes into the records.
func ReadCSV(r io.Reader, hasHeader bool, xcol, ycol int) (*Datasheet, error) {
	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = -1

	xname := strconv.Itoa(xcol)
	yname := strconv.Itoa(ycol)
	if hasHeader {
		header, err := rdr.Read()
		if err != nil {
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		if xcol > len(header) || ycol > len(header) {
			return nil, fmt.Errorf("header has %d columns, need %d and %d",
				len(header), xcol, ycol)
		}
		xname = header[xcol-1]
		yname = header[ycol-1]
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
		if xcol > len(record) || ycol > len(record) {
			return nil, fmt.Errorf("record #%d has %d columns, need %d and %d",
				i, len(record), xcol, ycol)
		}
		x, err := strconv.ParseFloat(record[xcol-1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid x value in record #%d: %w", i, err)
		}
		y, err := strconv.ParseFloat(record[ycol-1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid y value in record #%d: %w", i, err)
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}

	return NewDatasheet(
		NewColumn(xname, xs, false),
		NewColumn(yname, ys, false)), nil
}

// WriteCSV encodes the datasheet in the same encoding ReadCSV consumes.
func (ds *Datasheet) WriteCSV(w io.Writer, writeHeader bool) error {
	wtr := csv.NewWriter(w)
	if writeHeader {
		if err := wtr.Write([]string{ds.X.Name, ds.Y.Name}); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	for i := 0; i < ds.Len(); i++ {
		record := []string{
			strconv.FormatFloat(ds.X.Data[i], 'g', -1, 64),
			strconv.FormatFloat(ds.Y.Data[i], 'g', -1, 64),
		}
		if err := wtr.Write(record); err != nil {
			return fmt.Errorf("failed to write record #%d: %w", i, err)
		}
	}
	wtr.Flush()
	return wtr.Error()
}
