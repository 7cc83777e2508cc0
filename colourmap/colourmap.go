// Package colourmap maps normalized spectrogram intensities to colours
// using a lookup table loaded from a CSV palette file.
package colourmap

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// RGB is a single 8 bit per channel colour.
type RGB [3]uint8

// Table is an ordered palette indexed by normalized intensity.
type Table struct {
	entries []RGB
}

// New builds a table from explicit entries, ordered dark to bright.
func New(entries []RGB) (*Table, error) {
	if len(entries) < 2 {
		return nil, fmt.Errorf("colour table needs at least 2 entries, got %d", len(entries))
	}
	return &Table{entries: entries}, nil
}

// Load reads a palette CSV. Rows are r,g,b with values 0..255; a
// trailing fourth column, if present, is an index and is ignored.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open colour map: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse colour map %s: %w", path, err)
	}

	entries := make([]RGB, 0, len(rows))
	for i, row := range rows {
		if len(row) < 3 {
			return nil, fmt.Errorf("colour map %s row %d has %d columns, want at least 3", path, i+1, len(row))
		}
		var rgb RGB
		for c := 0; c < 3; c++ {
			v, err := strconv.Atoi(row[c])
			if err != nil || v < 0 || v > 255 {
				return nil, fmt.Errorf("colour map %s row %d: bad channel value %q", path, i+1, row[c])
			}
			rgb[c] = uint8(v)
		}
		entries = append(entries, rgb)
	}
	return New(entries)
}

// Greyscale returns a linear grey ramp with the given number of steps.
func Greyscale(steps int) *Table {
	if steps < 2 {
		steps = 2
	}
	entries := make([]RGB, steps)
	for i := range entries {
		g := uint8(i * 255 / (steps - 1))
		entries[i] = RGB{g, g, g}
	}
	return &Table{entries: entries}
}

// MapValue converts a normalized intensity in [0, 1] to a colour.
// Out of range values clip to the table ends.
func (t *Table) MapValue(v float64) RGB {
	i := int(v * float64(len(t.entries)-1))
	if i < 0 {
		i = 0
	} else if i >= len(t.entries) {
		i = len(t.entries) - 1
	}
	return t.entries[i]
}

// Map converts a matrix of normalized intensities to colours.
func (t *Table) Map(values [][]float64) [][]RGB {
	out := make([][]RGB, len(values))
	for r, row := range values {
		out[r] = make([]RGB, len(row))
		for c, v := range row {
			out[r][c] = t.MapValue(v)
		}
	}
	return out
}

// Lowest returns the colour for zero intensity, used to paint canvas
// regions outside the rendered data.
func (t *Table) Lowest() RGB {
	return t.entries[0]
}

// LowestHex returns the zero intensity colour as a #rrggbb string.
func (t *Table) LowestHex() string {
	c := t.entries[0]
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
