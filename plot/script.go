// Package plot generates gnuplot scripts and drives the external renderer.
package plot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Shift-AC/spreadsheet-plotter/utils"
)

// Terminal values are gnuplot terminal specifications.
const (
	TerminalX11        = "x11 noenhanced"
	TerminalPostscript = "postscript eps color noenhanced"
)

// Series is one data file reference in the final plot directive.
type Series struct {
	DataFile string
	Title    string
}

// Script is the rendering template: a fixed preamble, user-supplied
// customization lines, then a fixed plot directive referencing each series
// by column position.
type Script struct {
	Terminal  string
	UserLines []string
	Series    []Series
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (s *Script) Render(w io.Writer) error {
	if len(s.Series) == 0 {
		return fmt.Errorf("no data series to plot")
	}
	terminal := s.Terminal
	if terminal == "" {
		terminal = TerminalX11
	}
	if _, err := fmt.Fprintln(w, "#!/usr/bin/env -S gnuplot -p"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "set terminal %s\n", terminal); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "set datafile separator ','\n\n"); err != nil {
		return err
	}
	for _, line := range s.UserLines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	directives := make([]string, len(s.Series))
	for i, series := range s.Series {
		directives[i] = fmt.Sprintf("%s using 1:2 title %s",
			quote(series.DataFile), quote(series.Title))
	}
	_, err := fmt.Fprintf(w, "\nplot %s\n", strings.Join(directives, ", \\\n     "))
	return err
}

func (s *Script) String() (string, error) {
	var b strings.Builder
	if err := s.Render(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// TempFilename returns a fresh path in the system temporary directory:
// prefix plus a random 16-character alphanumeric suffix.
func TempFilename(prefix string) string {
	return filepath.Join(os.TempDir(), prefix+utils.RandomAlphanumeric(16))
}
