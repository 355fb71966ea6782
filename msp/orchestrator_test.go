package msp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Shift-AC/spreadsheet-plotter/source"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunComposesSeriesInCallerOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeCSV(t, dir, "a.csv", "1,10\n2,20\n")
	b := writeCSV(t, dir, "b.csv", "3,1\n1,3\n2,2\n")

	script, err := Run(context.Background(), Config{
		Terminal:  "x11",
		UserLines: []string{"set grid"},
	}, []Series{
		{Name: "step", Input: a, Format: source.FormatCSV, XExpr: "#1", YExpr: "#2", OpSeq: "s"},
		{Name: "sorted", Input: b, Format: source.FormatCSV, XExpr: "#1", YExpr: "#2", OpSeq: "oP"},
	})
	assert.NoError(t, err)
	assert.Len(t, script.Series, 2)
	assert.Equal(t, "step", script.Series[0].Title)
	assert.Equal(t, "sorted", script.Series[1].Title)

	defer func() {
		for _, s := range script.Series {
			os.Remove(s.DataFile)
		}
	}()

	buf, err := os.ReadFile(script.Series[0].DataFile)
	assert.NoError(t, err)
	assert.Equal(t, "2,10\n", string(buf))

	buf, err = os.ReadFile(script.Series[1].DataFile)
	assert.NoError(t, err)
	assert.Equal(t, "1,3\n2,2\n3,1\n", string(buf))
}

func TestRunWithCacheDir(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir, "a.csv", "2,3\n1,1\n3,6\n")
	cacheDir := filepath.Join(dir, "cache")

	cfg := Config{CacheDir: cacheDir}
	series := []Series{{
		Name: "int", Input: input, Format: source.FormatCSV,
		XExpr: "#1", YExpr: "#2", OpSeq: "iCP",
	}}

	script, err := Run(context.Background(), cfg, series)
	assert.NoError(t, err)
	for _, s := range script.Series {
		defer os.Remove(s.DataFile)
	}

	// the cache-write dump landed in the per-series store
	_, err = os.Stat(filepath.Join(cacheDir, "int", "i.lnk"))
	assert.NoError(t, err)

	// a second run resumes from the entry it just wrote
	script, err = Run(context.Background(), cfg, series)
	assert.NoError(t, err)
	for _, s := range script.Series {
		defer os.Remove(s.DataFile)
	}
	buf, err := os.ReadFile(script.Series[0].DataFile)
	assert.NoError(t, err)
	assert.Equal(t, "1,1\n2,4\n3,10\n", string(buf))
}

func TestRunUnnamedSeriesGetSeparateStores(t *testing.T) {
	dir := t.TempDir()
	a := writeCSV(t, dir, "a.csv", "2,20\n1,10\n")
	b := writeCSV(t, dir, "b.csv", "4,40\n3,30\n")
	cacheDir := filepath.Join(dir, "cache")

	script, err := Run(context.Background(), Config{CacheDir: cacheDir}, []Series{
		{Input: a, Format: source.FormatCSV, XExpr: "#1", YExpr: "#2", OpSeq: "oC"},
		{Input: b, Format: source.FormatCSV, XExpr: "#1", YExpr: "#2", OpSeq: "oC"},
	})
	assert.NoError(t, err)
	for _, s := range script.Series {
		defer os.Remove(s.DataFile)
	}

	// each series owns its own store: distinct lineage records, no clash
	_, err = os.Stat(filepath.Join(cacheDir, "series-0", "o.lnk"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(cacheDir, "series-1", "o.lnk"))
	assert.NoError(t, err)
}

func TestStoreDirNames(t *testing.T) {
	dirs := storeDirNames([]Series{
		{Name: "a"}, {}, {Name: "a"}, {Name: "b"}, {Name: "a"},
	})
	assert.Equal(t, []string{"a", "series-1", "a-1", "b", "a-2"}, dirs)
}

func TestRunFailsWhenOneSeriesFails(t *testing.T) {
	dir := t.TempDir()
	good := writeCSV(t, dir, "good.csv", "1,1\n")

	_, err := Run(context.Background(), Config{}, []Series{
		{Name: "ok", Input: good, Format: source.FormatCSV, XExpr: "#1", YExpr: "#2", OpSeq: "o"},
		{Name: "broken", Input: good, Format: source.FormatCSV, XExpr: "#1", YExpr: "#2", OpSeq: "Z"},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestRunWithoutSeries(t *testing.T) {
	_, err := Run(context.Background(), Config{}, nil)
	assert.Error(t, err)
}

func TestWithPlotDump(t *testing.T) {
	assert.Equal(t, "sP", withPlotDump("s"))
	assert.Equal(t, "sP", withPlotDump("sP"))
	assert.Equal(t, "iCP", withPlotDump("iC"))
	assert.Equal(t, "PO", withPlotDump("PO"))
}
