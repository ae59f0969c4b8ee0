package simplex

import (
	"context"
	"errors"

	"q.log/lpsimplex/sparse"
	"q.log/lpsimplex/standard"
)

var (
	// ErrFeasible is returned by IIS when the form has a feasible point.
	ErrFeasible = errors.New("simplex: model is feasible")

	// ErrIISLimit is returned by IIS when a feasibility check hits the
	// iteration limit.
	ErrIISLimit = errors.New("simplex: iteration limit while isolating infeasible rows")
)

// IIS returns the rows of an irreducible infeasible subsystem of f, in
// increasing order. Rows are dropped one at a time and kept only when the
// rest becomes feasible without them; variable bounds are always part of
// the subsystem. Each check is a separate phase 1 solve with opts.
func IIS(ctx context.Context, f *standard.Form, opts ...Option) ([]int, error) {
	rows, _ := f.Dims()
	keep := make([]bool, rows)
	for i := range keep {
		keep[i] = true
	}

	feasible, err := feasibleRows(ctx, f, keep, opts)
	if err != nil {
		return nil, err
	}
	if feasible {
		return nil, ErrFeasible
	}

	for i := range rows {
		keep[i] = false
		feasible, err := feasibleRows(ctx, f, keep, opts)
		if err != nil {
			return nil, err
		}
		if feasible {
			keep[i] = true
		}
	}

	var iis []int
	for i, k := range keep {
		if k {
			iis = append(iis, i)
		}
	}
	return iis, nil
}

// feasibleRows solves f restricted to the kept rows with a zero objective.
func feasibleRows(ctx context.Context, f *standard.Form, keep []bool, opts []Option) (bool, error) {
	_, cols := f.Dims()
	sub := &standard.Form{
		Name:          f.Name,
		Columns:       make([]standard.Column, cols),
		NumStructural: f.NumStructural,
	}
	copy(sub.Columns, f.Columns)
	for j := range sub.Columns {
		sub.Columns[j].Cost = 0
	}

	var idx []int
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	sub.A = sparse.New(len(idx), cols)
	sub.B = make([]float64, len(idx))
	sub.Rows = make([]standard.Row, len(idx))
	for k, i := range idx {
		for j, v := range f.A.Row(i) {
			sub.A.Add(k, j, v)
		}
		sub.B[k] = f.B[i]
		sub.Rows[k] = f.Rows[i]
	}

	res, err := Solve(ctx, sub, opts...)
	if err != nil {
		return false, err
	}
	switch res.Status {
	case StatusInfeasible:
		return false, nil
	case StatusIterationLimit:
		return false, ErrIISLimit
	}
	return true, nil
}
