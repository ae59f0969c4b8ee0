// Package model holds an LP as it was declared: named rows with senses,
// named variables with bounds, and one sparse coefficient matrix that
// includes the objective row. A Model is built incrementally and then
// frozen by Finalize.
package model

import (
	"fmt"
	"math"

	"q.log/lpsimplex/sparse"
)

// Infinity is the magnitude at or beyond which a bound or right-hand
// side is treated as infinite.
const Infinity = 1e30

// Sense is a row type code as written in the ROWS section.
type Sense byte

const (
	SenseObjective Sense = 'N'
	SenseLE        Sense = 'L'
	SenseGE        Sense = 'G'
	SenseEQ        Sense = 'E'
)

func (s Sense) String() string {
	switch s {
	case SenseObjective:
		return "N"
	case SenseLE:
		return "<="
	case SenseGE:
		return ">="
	case SenseEQ:
		return "="
	}
	return fmt.Sprintf("Sense(%q)", byte(s))
}

// Direction is the optimization direction.
type Direction int

const (
	Minimize Direction = iota
	Maximize
)

func (d Direction) String() string {
	if d == Maximize {
		return "max"
	}
	return "min"
}

type Variable struct {
	Name    string
	Index   int
	Lower   float64
	Upper   float64
	Integer bool
}

// IsFree reports whether the variable has no finite bound.
func (v Variable) IsFree() bool {
	return math.IsInf(v.Lower, -1) && math.IsInf(v.Upper, 1)
}

type Row struct {
	Name  string
	Index int
	Sense Sense
	RHS   float64

	// Range is the RANGES value of the row, meaningful when HasRange.
	Range    float64
	HasRange bool
}

// Model is an LP in declaration form.
type Model struct {
	name      string
	direction Direction

	vars []*Variable
	rows []*Row

	// A holds every coefficient, objective row included.
	A *sparse.Matrix

	objective int
	offset    float64

	varIndex map[string]int
	rowIndex map[string]int

	finalized bool
}

func NewModel(name string) *Model {
	return &Model{
		name:      name,
		A:         sparse.New(0, 0),
		objective: -1,
		varIndex:  make(map[string]int),
		rowIndex:  make(map[string]int),
	}
}

func (m *Model) Name() string {
	return m.name
}

func (m *Model) SetName(name string) error {
	if m.finalized {
		return ErrFinalized
	}
	m.name = name
	return nil
}

func (m *Model) Direction() Direction {
	return m.direction
}

func (m *Model) SetDirection(d Direction) error {
	if m.finalized {
		return ErrFinalized
	}
	m.direction = d
	return nil
}

// NumRows counts all rows, the objective row included.
func (m *Model) NumRows() int {
	return len(m.rows)
}

func (m *Model) NumCols() int {
	return len(m.vars)
}

// NumConstraints counts the rows other than the objective.
func (m *Model) NumConstraints() int {
	if m.objective < 0 {
		return len(m.rows)
	}
	return len(m.rows) - 1
}

// ObjectiveRow returns the index of the N row, or -1.
func (m *Model) ObjectiveRow() int {
	return m.objective
}

// Offset is the constant term of the objective.
func (m *Model) Offset() float64 {
	return m.offset
}

func (m *Model) Variable(j int) Variable {
	return *m.vars[j]
}

func (m *Model) Row(i int) Row {
	return *m.rows[i]
}

func (m *Model) LookupVariable(name string) (int, bool) {
	j, ok := m.varIndex[name]
	return j, ok
}

func (m *Model) LookupRow(name string) (int, bool) {
	i, ok := m.rowIndex[name]
	return i, ok
}

// Cost returns the objective coefficient of variable j.
func (m *Model) Cost(j int) float64 {
	if m.objective < 0 {
		return 0
	}
	return m.A.At(m.objective, j)
}

// AddRow declares a row. Senses are not validated here; the
// standard-form transformer rejects the ones it cannot handle.
func (m *Model) AddRow(name string, sense Sense) (int, error) {
	if m.finalized {
		return 0, ErrFinalized
	}
	if _, ok := m.rowIndex[name]; ok {
		return 0, fmt.Errorf("%w: row %q", ErrDuplicateName, name)
	}
	if sense == SenseObjective && m.objective >= 0 {
		return 0, fmt.Errorf("%w: %q after %q", ErrDuplicateObjective, name, m.rows[m.objective].Name)
	}
	i := m.A.AddRow()
	m.rows = append(m.rows, &Row{Name: name, Index: i, Sense: sense})
	m.rowIndex[name] = i
	if sense == SenseObjective {
		m.objective = i
	}
	return i, nil
}

// AddVariable declares a variable with the default bounds [0, +Inf).
func (m *Model) AddVariable(name string) (int, error) {
	if m.finalized {
		return 0, ErrFinalized
	}
	if _, ok := m.varIndex[name]; ok {
		return 0, fmt.Errorf("%w: variable %q", ErrDuplicateName, name)
	}
	j := m.A.AddCol()
	m.vars = append(m.vars, &Variable{Name: name, Index: j, Lower: 0, Upper: math.Inf(1)})
	m.varIndex[name] = j
	return j, nil
}

// AddCoefficient accumulates v into the (row, col) coefficient.
func (m *Model) AddCoefficient(row, col int, v float64) error {
	if m.finalized {
		return ErrFinalized
	}
	m.A.Add(row, col, v)
	return nil
}

// SetRHS sets the right-hand side of a row. On the objective row the
// value is stored as the negated objective constant.
func (m *Model) SetRHS(row int, v float64) error {
	if m.finalized {
		return ErrFinalized
	}
	if row == m.objective {
		m.offset = -v
		return nil
	}
	m.rows[row].RHS = v
	return nil
}

// SetOffset sets the objective constant directly.
func (m *Model) SetOffset(v float64) error {
	if m.finalized {
		return ErrFinalized
	}
	m.offset = v
	return nil
}

func (m *Model) SetRange(row int, v float64) error {
	if m.finalized {
		return ErrFinalized
	}
	m.rows[row].Range = v
	m.rows[row].HasRange = true
	return nil
}

func (m *Model) SetInteger(col int, integer bool) error {
	if m.finalized {
		return ErrFinalized
	}
	m.vars[col].Integer = integer
	return nil
}

// Finalize validates the model and freezes it.
func (m *Model) Finalize() error {
	if m.finalized {
		return nil
	}
	if m.objective < 0 {
		return ErrNoObjective
	}
	for _, v := range m.vars {
		if v.Lower > v.Upper {
			return fmt.Errorf("%w: %s has [%g, %g]", ErrInvalidBounds, v.Name, v.Lower, v.Upper)
		}
	}
	m.finalized = true
	return nil
}

func (m *Model) Finalized() bool {
	return m.finalized
}
