// Package standard turns a declared model into the equality form the
// simplex solver works on:
//
//	minimize or maximize  c·x + offset
//	subject to            A x = b
//	                      lower <= x <= upper
//
// Every inequality row gets one non-negative slack (L) or surplus (G)
// column. Original variables keep their bounds as declared, so free
// variables stay free instead of being split into two non-negative parts.
package standard

import (
	"math"

	"q.log/lpsimplex/model"
	"q.log/lpsimplex/sparse"
)

type ColumnKind int

const (
	Structural ColumnKind = iota
	Slack
)

func (k ColumnKind) String() string {
	if k == Slack {
		return "slack"
	}
	return "structural"
}

// Column is one column of the form. Source is the model variable index for
// structural columns and the model row index for slack columns.
type Column struct {
	Name   string
	Kind   ColumnKind
	Source int
	Lower  float64
	Upper  float64
	Cost   float64
}

// Row is one equality row. Slack is the column index of the row's slack or
// surplus, or -1.
type Row struct {
	Name   string
	Source int
	Sense  model.Sense
	Slack  int
}

type Form struct {
	Name      string
	Direction model.Direction
	Offset    float64

	A       *sparse.Matrix
	B       []float64
	Columns []Column
	Rows    []Row

	// NumStructural columns come first, slack columns follow.
	NumStructural int
}

// Dims returns the number of rows and columns.
func (f *Form) Dims() (int, int) {
	return len(f.Rows), len(f.Columns)
}

// Transform builds the equality form of m. The form copies everything it
// needs; m is not modified and nothing is shared with it.
func Transform(m *model.Model) (*Form, error) {
	if !m.Finalized() {
		return nil, ErrNotFinalized
	}

	obj := m.ObjectiveRow()
	rowMap := make([]int, m.NumRows())
	var rows []Row
	for i := range m.NumRows() {
		r := m.Row(i)
		switch r.Sense {
		case model.SenseObjective:
			rowMap[i] = -1
			continue
		case model.SenseLE, model.SenseGE, model.SenseEQ:
		default:
			return nil, &UnsupportedSenseError{Row: r.Name, Sense: r.Sense}
		}
		rowMap[i] = len(rows)
		rows = append(rows, Row{Name: r.Name, Source: i, Sense: r.Sense, Slack: -1})
	}

	n := m.NumCols()
	f := &Form{
		Name:          m.Name(),
		Direction:     m.Direction(),
		Offset:        m.Offset(),
		A:             sparse.New(len(rows), n),
		B:             make([]float64, len(rows)),
		Columns:       make([]Column, 0, n+len(rows)),
		Rows:          rows,
		NumStructural: n,
	}

	for j := range n {
		v := m.Variable(j)
		col := Column{
			Name:   v.Name,
			Kind:   Structural,
			Source: j,
			Lower:  v.Lower,
			Upper:  v.Upper,
		}
		for i, a := range m.A.Column(j) {
			if i == obj {
				col.Cost = a
				continue
			}
			f.A.Add(rowMap[i], j, a)
		}
		f.Columns = append(f.Columns, col)
	}

	for k := range f.Rows {
		r := m.Row(f.Rows[k].Source)
		f.B[k] = r.RHS

		sign, upper := slackFor(r)
		if sign == 0 {
			continue
		}
		j := f.A.AddCol()
		f.A.Add(k, j, sign)
		f.Rows[k].Slack = j
		f.Columns = append(f.Columns, Column{
			Name:   r.Name,
			Kind:   Slack,
			Source: r.Index,
			Lower:  0,
			Upper:  upper,
		})
	}
	return f, nil
}

// slackFor returns the coefficient of the row's slack column (0 when the
// row needs none) and the slack's upper bound.
//
// RANGES follow the MPS convention: L rows become [rhs-|R|, rhs], G rows
// [rhs, rhs+|R|], and E rows [rhs, rhs+R] or [rhs+R, rhs] by the sign of R.
func slackFor(r model.Row) (float64, float64) {
	upper := math.Inf(1)
	if r.HasRange {
		upper = model.Normalize(math.Abs(r.Range))
	}
	switch r.Sense {
	case model.SenseLE:
		return 1, upper
	case model.SenseGE:
		return -1, upper
	case model.SenseEQ:
		switch {
		case !r.HasRange || r.Range == 0:
			return 0, 0
		case r.Range > 0:
			return -1, upper
		default:
			return 1, upper
		}
	}
	return 0, 0
}
