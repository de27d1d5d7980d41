// Package output forwards freshly acquired samples to live consumers, in
// addition to the durable data file.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/lsgunth/dtdatalog/pkg/datalog"
)

// Ensure Console implements datalog.Output.
var _ datalog.Output = (*Console)(nil)

// Console writes one human-readable line per sample.
type Console struct {
	w      io.Writer
	titles []string
}

// NewConsole creates a console output writing to w.
func NewConsole(w io.Writer, titles []string) *Console {
	return &Console{w: w, titles: titles}
}

// Publish writes the sample as "t=<elapsed> <name>=<value> ...".
func (c *Console) Publish(s datalog.Sample) error {
	var b strings.Builder
	fmt.Fprintf(&b, "t=%.4f", s.Elapsed)
	for i, v := range s.Values {
		name := fmt.Sprintf("ch%d", i)
		if i < len(c.titles) {
			name = c.titles[i]
		}
		fmt.Fprintf(&b, " %s=%.3f", name, v)
	}
	_, err := fmt.Fprintln(c.w, b.String())
	return err
}

// Close is a no-op.
func (c *Console) Close() error { return nil }
