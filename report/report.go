// Package report maps a solver result back onto the names of the model
// it was built from and renders it as text.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"q.log/lpsimplex/model"
	"q.log/lpsimplex/simplex"
	"q.log/lpsimplex/standard"
)

var (
	// ErrUnsolved is returned by New when there is no result to report.
	ErrUnsolved = errors.New("report: no solver result")

	// ErrShape is returned when the result does not fit the form.
	ErrShape = errors.New("report: result does not match the model")
)

type config struct {
	duals  bool
	slacks bool

	iis        bool
	ctx        context.Context
	solverOpts []simplex.Option
}

type Option func(*config)

// WithDuals includes one dual value per constraint row.
func WithDuals() Option {
	return func(c *config) { c.duals = true }
}

// WithSlacks includes the slack or surplus value of every inequality or
// ranged row.
func WithSlacks() Option {
	return func(c *config) { c.slacks = true }
}

// WithIIS isolates an irreducible infeasible subsystem when the result is
// infeasible and reports its rows by name. Every check is a phase 1
// solve run with ctx and opts.
func WithIIS(ctx context.Context, opts ...simplex.Option) Option {
	return func(c *config) {
		c.iis, c.ctx, c.solverOpts = true, ctx, opts
	}
}

// Entry is a named value.
type Entry struct {
	Name  string
	Value float64
}

// Solution contains the results of a solve under the model's names.
// Values, Duals and Slacks are only populated when Status is optimal.
type Solution struct {
	Name      string
	Direction model.Direction
	Status    simplex.Status

	// Objective includes the objective offset.
	Objective float64

	Iterations       int
	Phase1Iterations int

	// Values holds one entry per model variable, in declaration order.
	Values []Entry

	// Duals holds one entry per constraint row when WithDuals is set.
	Duals []Entry

	// Slacks holds one entry per row with a slack column when WithSlacks
	// is set.
	Slacks []Entry

	// IIS names the rows of an irreducible infeasible subsystem when the
	// status is infeasible and WithIIS is set.
	IIS []string

	values map[string]int
	duals  map[string]int
}

// New builds the report for res, which must come from solving f, the
// standard form of m.
func New(m *model.Model, f *standard.Form, res *simplex.Result, opts ...Option) (*Solution, error) {
	if res == nil {
		return nil, ErrUnsolved
	}
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Solution{
		Name:             m.Name(),
		Direction:        m.Direction(),
		Status:           res.Status,
		Iterations:       res.Iterations,
		Phase1Iterations: res.Phase1Iterations,
	}
	if res.Status == simplex.StatusInfeasible && cfg.iis {
		rows, err := simplex.IIS(cfg.ctx, f, cfg.solverOpts...)
		if err != nil {
			return nil, fmt.Errorf("report: isolating infeasible rows: %w", err)
		}
		for _, i := range rows {
			s.IIS = append(s.IIS, m.Row(f.Rows[i].Source).Name)
		}
	}
	if !res.IsOptimal() {
		return s, nil
	}

	rows, cols := f.Dims()
	if len(res.X) != cols || len(res.Duals) != rows || f.NumStructural != m.NumCols() {
		return nil, fmt.Errorf("%w: %d values and %d duals for %d columns and %d rows",
			ErrShape, len(res.X), len(res.Duals), cols, rows)
	}

	s.Objective = res.Objective
	s.Values = make([]Entry, 0, f.NumStructural)
	s.values = make(map[string]int, f.NumStructural)
	for j := range f.NumStructural {
		c := f.Columns[j]
		s.values[c.Name] = len(s.Values)
		s.Values = append(s.Values, Entry{Name: m.Variable(c.Source).Name, Value: res.X[j]})
	}

	if cfg.duals {
		s.Duals = make([]Entry, 0, rows)
		s.duals = make(map[string]int, rows)
		for i, r := range f.Rows {
			s.duals[r.Name] = len(s.Duals)
			s.Duals = append(s.Duals, Entry{Name: r.Name, Value: res.Duals[i]})
		}
	}

	if cfg.slacks {
		for _, r := range f.Rows {
			if r.Slack < 0 {
				continue
			}
			s.Slacks = append(s.Slacks, Entry{Name: r.Name, Value: res.X[r.Slack]})
		}
	}
	return s, nil
}

func (s *Solution) IsOptimal() bool {
	return s.Status == simplex.StatusOptimal
}

// Value returns the value of the named variable.
func (s *Solution) Value(name string) (float64, bool) {
	i, ok := s.values[name]
	if !ok {
		return 0, false
	}
	return s.Values[i].Value, true
}

// Dual returns the dual value of the named row. It reports false unless
// the solution was built WithDuals.
func (s *Solution) Dual(name string) (float64, bool) {
	i, ok := s.duals[name]
	if !ok {
		return 0, false
	}
	return s.Duals[i].Value, true
}

// WriteTo renders the solution as fixed-width text.
func (s *Solution) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Problem:    %s\n", s.Name)
	fmt.Fprintf(&buf, "Status:     %v\n", s.Status)
	if s.IsOptimal() {
		fmt.Fprintf(&buf, "Objective:  %.6f (%v)\n", s.Objective, s.Direction)
	}
	fmt.Fprintf(&buf, "Iterations: %d (phase 1: %d)\n", s.Iterations, s.Phase1Iterations)

	writeSection(&buf, "VALUE", s.Values)
	writeSection(&buf, "DUAL", s.Duals)
	writeSection(&buf, "SLACK", s.Slacks)

	if len(s.IIS) > 0 {
		fmt.Fprintf(&buf, "\nIrreducible infeasible subsystem:\n")
		for i, name := range s.IIS {
			fmt.Fprintf(&buf, "%6d  %s\n", i, name)
		}
	}

	return buf.WriteTo(w)
}

func writeSection(buf *bytes.Buffer, title string, entries []Entry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(buf, "\n%6s  %-16s %15s\n", "INDEX", "NAME", title)
	for i, e := range entries {
		fmt.Fprintf(buf, "%6d  %-16s %15.6f\n", i, e.Name, e.Value)
	}
}
