// Package msp orchestrates multiple single-series pipeline runs into one
// combined plot. Workers are fully independent: each owns its table, its
// driver and its cache store; only the final composition cares about order.
package msp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/Shift-AC/spreadsheet-plotter/cache"
	"github.com/Shift-AC/spreadsheet-plotter/engine"
	"github.com/Shift-AC/spreadsheet-plotter/opseq"
	"github.com/Shift-AC/spreadsheet-plotter/plot"
	"github.com/Shift-AC/spreadsheet-plotter/sheet"
	"github.com/Shift-AC/spreadsheet-plotter/source"
	"github.com/Shift-AC/spreadsheet-plotter/storage"
)

// Series describes one data series of the combined plot.
type Series struct {
	Name      string
	Input     string
	Format    source.Format
	HasHeader bool
	XExpr     string
	YExpr     string
	OpSeq     string
}

type Config struct {
	// CacheDir, when set, gives every series its own file-backed cache
	// store under CacheDir/<series name>.
	CacheDir  string
	Terminal  string
	UserLines []string
	Logger    log.Logger
}

// collectRenderer captures the table handed to the plot dump instead of
// rendering it, so the orchestrator can compose all series into one script.
type collectRenderer struct {
	table *sheet.Datasheet
}

func (c *collectRenderer) Plot(ds *sheet.Datasheet, _ []string) error {
	c.table = ds
	return nil
}

type result struct {
	table *sheet.Datasheet
	err   error
}

// Run executes every series concurrently, waits for all of them to finish
// and composes the combined script. The series order of the final plot
// directive is the caller's order regardless of completion order.
func Run(ctx context.Context, cfg Config, series []Series) (*plot.Script, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no series given")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	storeDirs := storeDirNames(series)
	results := make([]result, len(series))
	var wg sync.WaitGroup
	for i := range series {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			table, err := runSeries(ctx, cfg, series[i], storeDirs[i],
				log.With(logger, "series", seriesName(series[i], i)))
			results[i] = result{table: table, err: err}
			if err != nil {
				// fail fast: workers not yet past their source
				// read never start computing
				cancel()
			}
		}(i)
	}
	wg.Wait()

	// a worker cancelled by a sibling's failure reports context.Canceled;
	// surface the originating failure instead
	for i, res := range results {
		if res.err != nil && !errors.Is(res.err, context.Canceled) {
			return nil, fmt.Errorf("series %s: %w", seriesName(series[i], i), res.err)
		}
	}
	for i, res := range results {
		if res.err != nil {
			return nil, fmt.Errorf("series %s: %w", seriesName(series[i], i), res.err)
		}
	}

	script := &plot.Script{
		Terminal:  cfg.Terminal,
		UserLines: cfg.UserLines,
	}
	for i, res := range results {
		dataFile, err := plot.WriteDataFile(res.table)
		if err != nil {
			return nil, err
		}
		script.Series = append(script.Series, plot.Series{
			DataFile: dataFile,
			Title:    seriesName(series[i], i),
		})
	}
	return script, nil
}

func seriesName(s Series, i int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("series-%d", i)
}

// storeDirNames assigns every series its own cache directory. Series share
// a store only if that is safe: duplicate names get an index suffix so
// their entries and lineage records stay disjoint.
func storeDirNames(series []Series) []string {
	dirs := make([]string, len(series))
	seen := make(map[string]int, len(series))
	for i := range series {
		name := seriesName(series[i], i)
		if n := seen[name]; n > 0 {
			dirs[i] = fmt.Sprintf("%s-%d", name, n)
		} else {
			dirs[i] = name
		}
		seen[name]++
	}
	return dirs
}

func runSeries(ctx context.Context, cfg Config, s Series, storeDir string, logger log.Logger) (*sheet.Datasheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seq, err := opseq.Parse(withPlotDump(s.OpSeq))
	if err != nil {
		return nil, err
	}
	input, err := source.Open(s.Input, s.Format, s.HasHeader, s.XExpr, s.YExpr)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var store *cache.Store
	if cfg.CacheDir != "" {
		backend, err := storage.NewFileBackend(filepath.Join(cfg.CacheDir, storeDir))
		if err != nil {
			return nil, err
		}
		store = cache.NewStore(backend, true)
		defer store.Close()
	}

	renderer := &collectRenderer{}
	driver := engine.NewDriver(engine.Config{
		Seq:            seq,
		Table:          input.Table,
		Lineage:        input.Lineage,
		ConsumedPrefix: input.ConsumedPrefix,
		Store:          store,
		Renderer:       renderer,
		Logger:         logger,
	})
	if err := driver.Run(); err != nil {
		return nil, err
	}
	table := renderer.table
	if table == nil {
		// a fully cached series skips its plot dump along with the
		// operators that produced the cached state
		table = driver.Table()
	}
	level.Debug(logger).Log("msg", "series done", "rows", table.Len())
	return table, nil
}

// withPlotDump appends the plot dump when the sequence does not already end
// with one, so every worker produces a table for the combined script.
func withPlotDump(opSeq string) string {
	for i := len(opSeq) - 1; i >= 0; i-- {
		if opSeq[i] == opseq.DumpPlot {
			return opSeq
		}
	}
	return opSeq + string(opseq.DumpPlot)
}
