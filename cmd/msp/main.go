package main

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/Shift-AC/spreadsheet-plotter/msp"
	"github.com/Shift-AC/spreadsheet-plotter/opseq"
	"github.com/Shift-AC/spreadsheet-plotter/plot"
	"github.com/Shift-AC/spreadsheet-plotter/source"
)

// manifest is the TOML description of a combined plot: shared plot settings
// plus one [[series]] table per data series.
type manifest struct {
	Terminal string   `toml:"terminal"`
	CacheDir string   `toml:"cache_dir"`
	GpCmds   []string `toml:"gpcmds"`

	Series []seriesSpec `toml:"series"`
}

type seriesSpec struct {
	Name   string `toml:"name"`
	Input  string `toml:"input"`
	Format string `toml:"format"`
	Header bool   `toml:"header"`
	XExpr  string `toml:"xexpr"`
	YExpr  string `toml:"yexpr"`
	OpSeq  string `toml:"opseq"`
}

func main() {
	var (
		manifestPath string
		preserve     bool
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "msp",
		Short: "Plot several operator-sequence pipelines in one window",
		Long: `msp runs one pipeline per series described in a TOML manifest,
concurrently, and renders all of their results as a single gnuplot
invocation. Series appear in the plot in manifest order.`,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(manifestPath, preserve, verbose)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&manifestPath, "manifest", "c", "", "TOML manifest describing the series")
	f.BoolVarP(&preserve, "preserve", "p", false, "keep temporary plot files")
	f.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.MarkFlagRequired("manifest")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(manifestPath string, preserve, verbose bool) error {
	logger := newLogger(verbose)

	var m manifest
	if _, err := toml.DecodeFile(manifestPath, &m); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	series, err := buildSeries(m)
	if err != nil {
		return err
	}

	terminal := m.Terminal
	if terminal == "" {
		terminal = plot.TerminalX11
	}
	script, err := msp.Run(context.Background(), msp.Config{
		CacheDir:  m.CacheDir,
		Terminal:  terminal,
		UserLines: m.GpCmds,
		Logger:    logger,
	}, series)
	if err != nil {
		return err
	}
	return plot.Run(script, preserve, logger)
}

func buildSeries(m manifest) ([]msp.Series, error) {
	if len(m.Series) == 0 {
		return nil, fmt.Errorf("manifest declares no series")
	}
	series := make([]msp.Series, 0, len(m.Series))
	for i, s := range m.Series {
		formatName := s.Format
		if formatName == "" {
			formatName = "csv"
		}
		format, err := source.ParseFormat(formatName)
		if err != nil {
			return nil, fmt.Errorf("series %d: %w", i, err)
		}
		if err := opseq.Check(s.OpSeq); err != nil {
			return nil, fmt.Errorf("series %d: %w", i, err)
		}
		xexpr, yexpr := s.XExpr, s.YExpr
		if xexpr == "" {
			xexpr = "#1"
		}
		if yexpr == "" {
			yexpr = "#2"
		}
		series = append(series, msp.Series{
			Name:      s.Name,
			Input:     s.Input,
			Format:    format,
			HasHeader: s.Header,
			XExpr:     xexpr,
			YExpr:     yexpr,
			OpSeq:     s.OpSeq,
		})
	}
	return series, nil
}

func newLogger(verbose bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	if verbose {
		return level.NewFilter(logger, level.AllowDebug())
	}
	return level.NewFilter(logger, level.AllowInfo())
}
