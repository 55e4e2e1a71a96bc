package frame

import (
	"errors"
	"slices"
)

// RowSeparator splits a raw board string into rows.
const RowSeparator = '\n'

var ErrShapeMismatch = errors.New("frame shape mismatch")

// ErrMalformedFrame is what a diff reports when two frames cannot be correlated.
var ErrMalformedFrame = ErrShapeMismatch

type Cell struct {
	Index  int // offset in the raw string, separators included
	Row    int
	Col    int
	Symbol rune
}

// Frame is one parsed board snapshot.
type Frame struct {
	raw   string
	rows  [][]Cell
	cells []Cell
}

// Parse never fails: any string is a valid frame on its own. A trailing
// separator does not produce an extra empty row.
func Parse(raw string) Frame {
	f := Frame{raw: raw}
	row := []Cell{}
	r, c := 0, 0
	for i, sym := range raw {
		if sym == RowSeparator {
			f.rows = append(f.rows, row)
			row = []Cell{}
			r++
			c = 0
			continue
		}
		cell := Cell{Index: i, Row: r, Col: c, Symbol: sym}
		row = append(row, cell)
		f.cells = append(f.cells, cell)
		c++
	}
	if len(row) > 0 {
		f.rows = append(f.rows, row)
	}
	return f
}

func (f Frame) Raw() string   { return f.raw }
func (f Frame) Cells() []Cell { return f.cells }

// Shape is the length of every row in order.
func (f Frame) Shape() []int {
	shape := make([]int, len(f.rows))
	for i, row := range f.rows {
		shape[i] = len(row)
	}
	return shape
}

func (f Frame) SameShape(other Frame) bool {
	return slices.Equal(f.Shape(), other.Shape())
}
