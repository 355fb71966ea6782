// Package storage persists cache entries: intermediate tables keyed by the
// canonical dump-stripped operator prefix that produced them.
package storage

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

// magicDelimiter separates the structured header from the tabular payload in
// the lnk encoding. Deterministic and never a valid TOML or CSV line.
const magicDelimiter = "ENDOFMETADATAENDOFMETADATAENDOFMETADATAENDOFMETADATAENDOFMETADATA"

// Lineage identifies the original source a table was extracted from, with
// the axis-extraction parameters needed to recompute it from scratch.
type Lineage struct {
	Input     string `toml:"input_path"`
	XExpr     string `toml:"xexpr"`
	YExpr     string `toml:"yexpr"`
	HasHeader bool   `toml:"has_header"`
}

func (l Lineage) Equal(other Lineage) bool {
	return l == other
}

func (l Lineage) String() string {
	return fmt.Sprintf("%s[x=%s,y=%s]", l.Input, l.XExpr, l.YExpr)
}

// Header is the structured part of a cache entry. OpStr is the canonical
// operator-sequence prefix (dump letters stripped) that produced the table;
// WrittenAt is a unix microsecond timestamp recorded at write time.
type Header struct {
	Lineage   Lineage `toml:"lineage"`
	OpStr     string  `toml:"opstr"`
	WrittenAt int64   `toml:"written_at"`
}

// Entry is one persisted cache record: header plus table snapshot. Entries
// are never mutated after creation; a later write under the same key
// supersedes the old entry.
type Entry struct {
	Header Header
	Sheet  *sheet.Datasheet
}

// Clone returns an entry whose sheet is independent of the receiver's, so
// holding one does not alias a table a caller may still transform in place.
func (e *Entry) Clone() *Entry {
	clone := &Entry{Header: e.Header}
	if e.Sheet != nil {
		clone.Sheet = e.Sheet.Clone()
	}
	return clone
}

// Encode writes the lnk form: TOML header, delimiter line, CSV payload with
// a header row.
func (e *Entry) Encode(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(&e.Header); err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}
	if _, err := io.WriteString(w, "\n"+magicDelimiter+"\n"); err != nil {
		return err
	}
	return e.Sheet.WriteCSV(w, true)
}

func (e *Entry) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeEntry reads an lnk-encoded entry back.
func DecodeEntry(r io.Reader) (*Entry, error) {
	rdr := bufio.NewReader(r)
	var headerStr strings.Builder
	for {
		line, err := rdr.ReadString('\n')
		if err == io.EOF && line == "" {
			return nil, fmt.Errorf("missing lnk delimiter")
		} else if err != nil && err != io.EOF {
			return nil, err
		}
		if strings.TrimRight(line, "\n") == magicDelimiter {
			break
		}
		headerStr.WriteString(line)
	}

	entry := &Entry{}
	if err := toml.Unmarshal([]byte(headerStr.String()), &entry.Header); err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}
	ds, err := sheet.ReadCSV(rdr, true, 1, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	entry.Sheet = ds
	return entry, nil
}

func DecodeEntryBytes(buf []byte) (*Entry, error) {
	return DecodeEntry(bytes.NewReader(buf))
}
