package datalog

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		idx    int
		tag    string
		want   string
	}{
		{name: "prefix and tag", prefix: "run", idx: 0, tag: "thermoblock", want: "run_000_thermoblock.dat"},
		{name: "no prefix", prefix: "", idx: 7, tag: "keithley", want: "007_keithley.dat"},
		{name: "no tag", prefix: "run", idx: 42, tag: "", want: "run_042.dat"},
		{name: "bare", prefix: "", idx: 0, tag: "", want: "000.dat"},
		{name: "wide index", prefix: "", idx: 1234, tag: "", want: "1234.dat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fileName(tt.prefix, tt.idx, tt.tag))
		})
	}
}

func TestCreate_SequentialNaming(t *testing.T) {
	dir := t.TempDir()

	var paths []string
	for i := 0; i < 3; i++ {
		f, err := Create(dir, "run", "test", []string{"A"}, nil)
		require.NoError(t, err)
		defer f.Close()
		paths = append(paths, filepath.Base(f.Path()))
	}

	assert.Equal(t, []string{
		"run_000_test.dat",
		"run_001_test.dat",
		"run_002_test.dat",
	}, paths)
}

func TestCreate_SkipsExistingFiles(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"run_000_test.dat", "run_002_test.dat"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("old"), 0644))
	}

	f1, err := Create(dir, "run", "test", []string{"A"}, nil)
	require.NoError(t, err)
	defer f1.Close()
	assert.Equal(t, "run_001_test.dat", filepath.Base(f1.Path()))

	f2, err := Create(dir, "run", "test", []string{"A"}, nil)
	require.NoError(t, err)
	defer f2.Close()
	assert.Equal(t, "run_003_test.dat", filepath.Base(f2.Path()))

	// Pre-existing files are left untouched.
	data, err := os.ReadFile(filepath.Join(dir, "run_000_test.dat"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestFile_Header(t *testing.T) {
	dir := t.TempDir()

	f, err := Create(dir, "", "hdr", []string{"RTD", "T12"}, []Meta{
		{Key: "Operator", Value: "alice"},
		{Key: "Setup", Value: "block 3"},
	})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	require.GreaterOrEqual(t, len(lines), 4)

	assert.True(t, strings.HasPrefix(lines[0], "# Timestamp: "))
	assert.Equal(t, "# Operator: alice", lines[1])
	assert.Equal(t, "# Setup: block 3", lines[2])
	assert.Equal(t, fmt.Sprintf("%10s %10s %10s", "TIME", "RTD", "T12"), lines[3])
}

func TestFile_WriteSample(t *testing.T) {
	dir := t.TempDir()

	f, err := Create(dir, "", "data", []string{"RTD", "T12"}, nil)
	require.NoError(t, err)

	require.NoError(t, f.WriteSample(Sample{
		Elapsed: 1.5,
		Values:  []float64{23.4567, math.NaN()},
	}))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	last := lines[len(lines)-1]

	want := fmt.Sprintf("%10s %10.3f %10.3f", fmt.Sprintf("%7.4f", 1.5), 23.4567, math.NaN())
	assert.Equal(t, want, last)

	// Fields are fixed width and the invalid reading renders as NaN.
	assert.Contains(t, last, "1.5000")
	assert.Contains(t, last, "23.457")
	assert.Contains(t, last, "NaN")
}

func TestFile_WriteSample_ColumnMismatch(t *testing.T) {
	dir := t.TempDir()

	f, err := Create(dir, "", "cols", []string{"A", "B"}, nil)
	require.NoError(t, err)
	defer f.Close()

	err = f.WriteSample(Sample{Elapsed: 0, Values: []float64{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "columns")
}
