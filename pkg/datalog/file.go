// Package datalog persists timestamped multi-channel samples to durable
// append-only text files and runs the background acquisition loop that
// produces them.
package datalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// fieldWidth is the fixed width of every column in the output file.
const fieldWidth = 10

// Sample is one acquisition cycle's worth of readings. Values are in
// channel registration order; an invalid or out-of-range reading is NaN.
type Sample struct {
	Elapsed float64
	Values  []float64
}

// Meta is one header metadata entry. Entries are ordered, so each File gets
// its own metadata rather than sharing a map across sessions.
type Meta struct {
	Key   string
	Value string
}

// File writes the header and fixed-width sample lines of one output file.
// Writes go straight to the OS with no user-space buffering, so a crash
// loses at most the sample being written.
type File struct {
	path   string
	f      *os.File
	titles []string
}

// Create picks the first non-colliding name of the form
// <prefix_><NNN><_tag>.dat in dir (zero-padded ascending index, existing
// files never overwritten), creates it and writes the header block: one
// "# key: value" line per metadata entry, a creation timestamp first, then
// the right-justified title row.
func Create(dir, prefix, tag string, titles []string, meta []Meta) (*File, error) {
	if dir == "" {
		dir = "."
	}

	var (
		f    *os.File
		path string
	)
	for idx := 0; ; idx++ {
		path = filepath.Join(dir, fileName(prefix, idx, tag))
		var err error
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("failed to create data file: %w", err)
		}
	}

	file := &File{path: path, f: f, titles: titles}
	if err := file.writeHeader(meta); err != nil {
		f.Close()
		return nil, err
	}
	return file, nil
}

// fileName builds the output file name. Empty prefix and tag drop their
// separating underscores.
func fileName(prefix string, idx int, tag string) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte('_')
	}
	fmt.Fprintf(&b, "%03d", idx)
	if tag != "" {
		b.WriteByte('_')
		b.WriteString(tag)
	}
	b.WriteString(".dat")
	return b.String()
}

func (file *File) writeHeader(meta []Meta) error {
	entries := append([]Meta{{"Timestamp", time.Now().Format(time.ANSIC)}}, meta...)
	for _, m := range entries {
		if _, err := fmt.Fprintf(file.f, "# %s: %s\n", m.Key, m.Value); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	fields := make([]string, 0, len(file.titles)+1)
	fields = append(fields, fmt.Sprintf("%*s", fieldWidth, "TIME"))
	for _, t := range file.titles {
		fields = append(fields, fmt.Sprintf("%*s", fieldWidth, t))
	}
	if _, err := fmt.Fprintln(file.f, strings.Join(fields, " ")); err != nil {
		return fmt.Errorf("failed to write title row: %w", err)
	}
	return nil
}

// WriteSample appends one fixed-width data line: elapsed seconds to four
// decimal places, then each reading to three. NaN readings render as a
// right-justified "NaN" field of the same width.
func (file *File) WriteSample(s Sample) error {
	if len(s.Values) != len(file.titles) {
		return fmt.Errorf("datalog: got %d values for %d columns", len(s.Values), len(file.titles))
	}

	fields := make([]string, 0, len(s.Values)+1)
	fields = append(fields, fmt.Sprintf("%*s", fieldWidth, fmt.Sprintf("%7.4f", s.Elapsed)))
	for _, v := range s.Values {
		fields = append(fields, fmt.Sprintf("%*.3f", fieldWidth, v))
	}

	if _, err := fmt.Fprintln(file.f, strings.Join(fields, " ")); err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	return nil
}

// Titles returns the column titles, without the leading TIME column.
func (file *File) Titles() []string {
	return file.titles
}

// Path returns the file's path on disk.
func (file *File) Path() string {
	return file.path
}

// Close closes the underlying file.
func (file *File) Close() error {
	return file.f.Close()
}
