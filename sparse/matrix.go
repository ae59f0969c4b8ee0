// Package sparse stores LP coefficient matrices column-major with a
// secondary row index, so both a column's and a row's entries can be
// walked in time proportional to their nonzero count.
package sparse

import (
	"fmt"
	"iter"
)

type key struct {
	row, col int
}

// Matrix is a sparse rows×cols matrix. Entries are appended in O(1)
// amortized time; inserting an existing (row, col) pair adds to the
// stored value instead of replacing it.
//
// Out-of-range indices are programming errors and panic.
type Matrix struct {
	rows, cols int

	rowIdx []int
	colIdx []int
	vals   []float64

	byCol [][]int // entry ids per column, in insertion order
	byRow [][]int // entry ids per row, in insertion order
	index map[key]int
}

// New returns an empty rows×cols matrix.
func New(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("sparse: invalid shape %dx%d", rows, cols))
	}
	return &Matrix{
		rows:  rows,
		cols:  cols,
		byCol: make([][]int, cols),
		byRow: make([][]int, rows),
		index: make(map[key]int),
	}
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (int, int) {
	return m.rows, m.cols
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int {
	return len(m.vals)
}

// AddRow appends an empty row and returns its index.
func (m *Matrix) AddRow() int {
	m.byRow = append(m.byRow, nil)
	m.rows++
	return m.rows - 1
}

// AddCol appends an empty column and returns its index.
func (m *Matrix) AddCol() int {
	m.byCol = append(m.byCol, nil)
	m.cols++
	return m.cols - 1
}

func (m *Matrix) check(row, col int) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("sparse: index (%d,%d) out of range for %dx%d", row, col, m.rows, m.cols))
	}
}

// Add accumulates v into entry (row, col).
func (m *Matrix) Add(row, col int, v float64) {
	m.check(row, col)
	k := key{row, col}
	if id, ok := m.index[k]; ok {
		m.vals[id] += v
		return
	}
	id := len(m.vals)
	m.rowIdx = append(m.rowIdx, row)
	m.colIdx = append(m.colIdx, col)
	m.vals = append(m.vals, v)
	m.byCol[col] = append(m.byCol[col], id)
	m.byRow[row] = append(m.byRow[row], id)
	m.index[k] = id
}

// Set overwrites entry (row, col), creating it if needed.
func (m *Matrix) Set(row, col int, v float64) {
	m.check(row, col)
	if id, ok := m.index[key{row, col}]; ok {
		m.vals[id] = v
		return
	}
	m.Add(row, col, v)
}

// At returns entry (row, col), or 0 when it is not stored.
func (m *Matrix) At(row, col int) float64 {
	m.check(row, col)
	if id, ok := m.index[key{row, col}]; ok {
		return m.vals[id]
	}
	return 0
}

// Has reports whether (row, col) is stored.
func (m *Matrix) Has(row, col int) bool {
	m.check(row, col)
	_, ok := m.index[key{row, col}]
	return ok
}

// Column iterates the (row, value) pairs stored in column col.
func (m *Matrix) Column(col int) iter.Seq2[int, float64] {
	if col < 0 || col >= m.cols {
		panic(fmt.Sprintf("sparse: column %d out of range for %d columns", col, m.cols))
	}
	ids := m.byCol[col]
	return func(yield func(int, float64) bool) {
		for _, id := range ids {
			if !yield(m.rowIdx[id], m.vals[id]) {
				return
			}
		}
	}
}

// Row iterates the (column, value) pairs stored in row row.
func (m *Matrix) Row(row int) iter.Seq2[int, float64] {
	if row < 0 || row >= m.rows {
		panic(fmt.Sprintf("sparse: row %d out of range for %d rows", row, m.rows))
	}
	ids := m.byRow[row]
	return func(yield func(int, float64) bool) {
		for _, id := range ids {
			if !yield(m.colIdx[id], m.vals[id]) {
				return
			}
		}
	}
}

// ColumnLen returns the number of entries stored in column col.
func (m *Matrix) ColumnLen(col int) int {
	if col < 0 || col >= m.cols {
		panic(fmt.Sprintf("sparse: column %d out of range for %d columns", col, m.cols))
	}
	return len(m.byCol[col])
}

// RowLen returns the number of entries stored in row row.
func (m *Matrix) RowLen(row int) int {
	if row < 0 || row >= m.rows {
		panic(fmt.Sprintf("sparse: row %d out of range for %d rows", row, m.rows))
	}
	return len(m.byRow[row])
}

// ScatterColumn writes column col into the dense slice dst, which must
// have length equal to the row count. dst is zeroed first.
func (m *Matrix) ScatterColumn(col int, dst []float64) {
	if len(dst) != m.rows {
		panic(fmt.Sprintf("sparse: scatter length %d, want %d", len(dst), m.rows))
	}
	clear(dst)
	for r, v := range m.Column(col) {
		dst[r] = v
	}
}

// Clone returns a deep copy that shares no storage with m.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{
		rows:   m.rows,
		cols:   m.cols,
		rowIdx: append([]int(nil), m.rowIdx...),
		colIdx: append([]int(nil), m.colIdx...),
		vals:   append([]float64(nil), m.vals...),
		byCol:  make([][]int, len(m.byCol)),
		byRow:  make([][]int, len(m.byRow)),
		index:  make(map[key]int, len(m.index)),
	}
	for j, ids := range m.byCol {
		c.byCol[j] = append([]int(nil), ids...)
	}
	for i, ids := range m.byRow {
		c.byRow[i] = append([]int(nil), ids...)
	}
	for k, id := range m.index {
		c.index[k] = id
	}
	return c
}
