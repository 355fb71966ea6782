// Package engine executes one operator sequence against one table,
// consulting the cache resolver before computing anything.
package engine

import (
	"fmt"
	"io"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/Shift-AC/spreadsheet-plotter/cache"
	"github.com/Shift-AC/spreadsheet-plotter/opseq"
	"github.com/Shift-AC/spreadsheet-plotter/plot"
	"github.com/Shift-AC/spreadsheet-plotter/sheet"
	"github.com/Shift-AC/spreadsheet-plotter/storage"
)

type State int

const (
	StateInit State = iota
	StateResolved
	StateRunning
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateResolved:
		return "resolved"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CacheWriteRefusedError reports a cache-write dump on a table with no
// re-openable lineage, e.g. one sourced from an unnamed stream.
type CacheWriteRefusedError struct {
	Reason string
}

func (e *CacheWriteRefusedError) Error() string {
	return "cache write refused: " + e.Reason
}

// ExternalCollaboratorError wraps a failure of one of the external
// collaborators: the cache store, the terminal writer or the renderer.
type ExternalCollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *ExternalCollaboratorError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Collaborator, e.Err)
}

func (e *ExternalCollaboratorError) Unwrap() error {
	return e.Err
}

// Config describes one invocation.
type Config struct {
	Seq   *opseq.Seq
	Table *sheet.Datasheet

	// Lineage identifies the re-openable source Table came from; nil for
	// unnamed streams. ConsumedPrefix is the canonical stripped prefix
	// already baked into Table when the input was itself a cache entry.
	Lineage        *storage.Lineage
	ConsumedPrefix string

	// Store enables cache reads and writes when non-nil.
	Store *cache.Store

	Out         io.Writer
	WriteHeader bool
	Renderer    plot.Renderer
	UserLines   []string
	Logger      log.Logger
}

// Driver owns the single live table and threads it through the remaining
// operators in order.
type Driver struct {
	cfg    Config
	state  State
	table  *sheet.Datasheet
	start  int
	logger log.Logger
}

func NewDriver(cfg Config) *Driver {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if cfg.Renderer == nil {
		cfg.Renderer = plot.NullRenderer{}
	}
	return &Driver{
		cfg:    cfg,
		state:  StateInit,
		table:  cfg.Table,
		logger: logger,
	}
}

func (d *Driver) State() State {
	return d.state
}

// Table returns the current table. After Run it is the final result.
func (d *Driver) Table() *sheet.Datasheet {
	return d.table
}

// Resolve consults the cache resolver and possibly short-circuits a prefix
// of the sequence by loading a stored table.
func (d *Driver) Resolve() error {
	if d.state != StateInit {
		return fmt.Errorf("resolve called in state %s", d.state)
	}
	if d.cfg.Store == nil || d.cfg.Lineage == nil {
		d.state = StateResolved
		return nil
	}
	resolver, err := cache.NewResolver(d.cfg.Store, *d.cfg.Lineage)
	if err != nil {
		d.state = StateFailed
		return &ExternalCollaboratorError{Collaborator: "cache store", Err: err}
	}
	resolution, err := d.resolveWithConsumed(resolver)
	if err != nil {
		d.state = StateFailed
		return err
	}
	if resolution.Entry != nil {
		level.Debug(d.logger).Log("msg", "cache hit",
			"key", resolution.Key, "skip", resolution.Skip)
		d.table = resolution.Entry.Sheet
		d.start = resolution.Skip
	} else {
		level.Debug(d.logger).Log("msg", "cache miss")
	}
	d.state = StateResolved
	return nil
}

// resolveWithConsumed accounts for a table that already embodies a prefix
// of operators (lnk input): stored keys carry the full prefix from the
// original source, so only keys extending the consumed prefix are usable,
// and skip positions are computed on the remainder.
func (d *Driver) resolveWithConsumed(resolver *cache.Resolver) (*cache.Resolution, error) {
	if d.cfg.ConsumedPrefix == "" {
		return resolver.Resolve(d.cfg.Seq)
	}
	resolution, err := resolver.ResolveFrom(d.cfg.ConsumedPrefix, d.cfg.Seq)
	if err != nil {
		return nil, err
	}
	return resolution, nil
}

// Run executes the remaining operators in order. The first failure aborts
// the rest; there is no partial continuation.
func (d *Driver) Run() error {
	if d.state == StateInit {
		if err := d.Resolve(); err != nil {
			return err
		}
	}
	if d.state != StateResolved {
		return fmt.Errorf("run called in state %s", d.state)
	}
	d.state = StateRunning

	for i := d.start; i < len(d.cfg.Seq.Ops); i++ {
		op := d.cfg.Seq.Ops[i]
		began := time.Now()
		var err error
		if op.IsDump() {
			err = d.dump(op.Dump, i)
		} else {
			d.table, err = op.Transform.Apply(d.table)
		}
		if err != nil {
			d.state = StateFailed
			return err
		}
		level.Debug(d.logger).Log("op", op.String(), "took", time.Since(began))
	}
	d.state = StateDone
	return nil
}

func (d *Driver) dump(kind byte, index int) error {
	switch kind {
	case opseq.DumpCache:
		return d.writeCache(index)
	case opseq.DumpTerminal:
		if d.cfg.Out == nil {
			return nil
		}
		if err := d.table.WriteCSV(d.cfg.Out, d.cfg.WriteHeader); err != nil {
			return &ExternalCollaboratorError{Collaborator: "terminal output", Err: err}
		}
		return nil
	case opseq.DumpPlot:
		if err := d.cfg.Renderer.Plot(d.table, d.cfg.UserLines); err != nil {
			return &ExternalCollaboratorError{Collaborator: "renderer", Err: err}
		}
		return nil
	default:
		return fmt.Errorf("unknown dump operator %q", kind)
	}
}

func (d *Driver) writeCache(index int) error {
	if d.cfg.Lineage == nil {
		return &CacheWriteRefusedError{Reason: "input table has no re-openable lineage"}
	}
	if d.cfg.Store == nil {
		return &CacheWriteRefusedError{Reason: "no cache store configured"}
	}
	if err := d.cfg.Store.PutLineage(*d.cfg.Lineage); err != nil {
		return err
	}
	key := d.cfg.ConsumedPrefix + d.cfg.Seq.Prefix(index, false)
	entry := &storage.Entry{
		Header: storage.Header{
			Lineage:   *d.cfg.Lineage,
			OpStr:     key,
			WrittenAt: time.Now().UnixMicro(),
		},
		Sheet: d.table,
	}
	if err := d.cfg.Store.Put(key, entry); err != nil {
		return &ExternalCollaboratorError{Collaborator: "cache store", Err: err}
	}
	level.Debug(d.logger).Log("msg", "cache entry written", "key", key)
	return nil
}
