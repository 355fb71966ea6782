package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/Shift-AC/spreadsheet-plotter/cache"
	"github.com/Shift-AC/spreadsheet-plotter/engine"
	"github.com/Shift-AC/spreadsheet-plotter/opseq"
	"github.com/Shift-AC/spreadsheet-plotter/plot"
	"github.com/Shift-AC/spreadsheet-plotter/source"
	"github.com/Shift-AC/spreadsheet-plotter/storage"
)

type options struct {
	opSeq     string
	input     string
	format    string
	xExpr     string
	yExpr     string
	hasHeader bool
	cacheDir  string
	terminal  string
	gpCmds    []string
	gpFile    string
	preserve  bool
	verbose   bool
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:   "sp",
		Short: "Run an operator sequence over a two-column table",
		Long: `sp reads a two-column table from a spreadsheet or a cache file,
applies an operator sequence to it and dumps intermediate or final
results to the cache, the terminal or a gnuplot window.`,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.opSeq, "opseq", "e", "", "operator sequence to execute")
	f.StringVarP(&opts.input, "input", "i", source.StdinPath, "input file, - for stdin")
	f.StringVarP(&opts.format, "format", "f", "csv", "input format (csv or lnk)")
	f.StringVarP(&opts.xExpr, "xexpr", "x", "#1", "expression for the x column")
	f.StringVarP(&opts.yExpr, "yexpr", "y", "#2", "expression for the y column")
	f.BoolVarP(&opts.hasHeader, "header", "H", false, "treat the first input row as a header")
	f.StringVarP(&opts.cacheDir, "cache-dir", "o", "", "directory for cache files, empty disables caching")
	f.StringVarP(&opts.terminal, "terminal", "t", plot.TerminalX11, "gnuplot terminal")
	f.StringArrayVarP(&opts.gpCmds, "gpcmd", "g", nil, "extra gnuplot line, may repeat")
	f.StringVarP(&opts.gpFile, "gpfile", "G", "", "file with extra gnuplot lines")
	f.BoolVarP(&opts.preserve, "preserve", "p", false, "keep temporary plot files")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.MarkFlagRequired("opseq")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts options) error {
	logger := newLogger(opts.verbose)

	seq, err := opseq.Parse(opts.opSeq)
	if err != nil {
		return err
	}
	format, err := source.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	userLines, err := gnuplotLines(opts.gpCmds, opts.gpFile)
	if err != nil {
		return err
	}

	input, err := source.Open(opts.input, format, opts.hasHeader, opts.xExpr, opts.yExpr)
	if err != nil {
		return err
	}

	var store *cache.Store
	if opts.cacheDir != "" {
		backend, err := storage.NewFileBackend(opts.cacheDir)
		if err != nil {
			return err
		}
		store = cache.NewStore(backend, true)
		defer store.Close()
	}

	driver := engine.NewDriver(engine.Config{
		Seq:            seq,
		Table:          input.Table,
		Lineage:        input.Lineage,
		ConsumedPrefix: input.ConsumedPrefix,
		Store:          store,
		Out:            os.Stdout,
		WriteHeader:    true,
		Renderer: &plot.GnuplotRenderer{
			Terminal: opts.terminal,
			Preserve: opts.preserve,
			Logger:   logger,
		},
		UserLines: userLines,
		Logger:    logger,
	})
	return driver.Run()
}

func newLogger(verbose bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	if verbose {
		return level.NewFilter(logger, level.AllowDebug())
	}
	return level.NewFilter(logger, level.AllowInfo())
}

// gnuplotLines merges the line file with the explicit lines; explicit lines
// come last so they can override file settings.
func gnuplotLines(cmds []string, file string) ([]string, error) {
	var lines []string
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("gnuplot line file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimRight(line, "\r"); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return append(lines, cmds...), nil
}
