package plot

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

// Renderer receives the current table and the user's customization lines.
// The gnuplot implementation is the production renderer; tests and the
// multi-series orchestrator substitute their own.
type Renderer interface {
	Plot(ds *sheet.Datasheet, userLines []string) error
}

// GnuplotRenderer dumps the table to a temporary CSV file, renders the
// script template around it and hands the script to gnuplot.
type GnuplotRenderer struct {
	Terminal string
	Preserve bool
	Logger   log.Logger
}

func NewGnuplotRenderer(logger log.Logger) *GnuplotRenderer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &GnuplotRenderer{Logger: logger}
}

// WriteDataFile dumps the table to a fresh temporary CSV file and returns
// its path.
func WriteDataFile(ds *sheet.Datasheet) (string, error) {
	path := TempFilename("sp-") + ".csv"
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := ds.WriteCSV(f, false); err != nil {
		return "", err
	}
	return path, nil
}

func (r *GnuplotRenderer) Plot(ds *sheet.Datasheet, userLines []string) error {
	dataFile, err := WriteDataFile(ds)
	if err != nil {
		return err
	}
	script := &Script{
		Terminal:  r.Terminal,
		UserLines: userLines,
		Series: []Series{
			{DataFile: dataFile, Title: ds.Y.Name},
		},
	}
	err = Run(script, r.Preserve, r.Logger)
	if !r.Preserve {
		_ = os.Remove(dataFile)
	}
	return err
}

// Run writes the script to a temporary file and invokes gnuplot on it.
func Run(script *Script, preserve bool, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	scriptPath := TempFilename("sp-") + ".gp"
	f, err := os.Create(scriptPath)
	if err != nil {
		return err
	}
	if err := script.Render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if !preserve {
		defer os.Remove(scriptPath)
	}
	level.Info(logger).Log("msg", "invoking gnuplot", "script", scriptPath)

	cmd := exec.Command("gnuplot", "-p", scriptPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("gnuplot failed: %w", err)
	}
	return nil
}

// NullRenderer ignores every plot request. Used when checking sequences
// without rendering.
type NullRenderer struct{}

func (NullRenderer) Plot(*sheet.Datasheet, []string) error {
	return nil
}
