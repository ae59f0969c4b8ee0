// Package simplex solves a standard-form LP with a two-phase,
// bounded-variable revised simplex method.
//
// Nonbasic variables rest at a finite bound, or at zero when they are
// free, so bounds never need to be shifted or split into extra columns.
// Entering and leaving variables are chosen by Bland's rule (lowest
// eligible index), which trades iteration count for guaranteed
// termination.
package simplex

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"q.log/lpsimplex/model"
	"q.log/lpsimplex/sparse"
	"q.log/lpsimplex/standard"
)

var (
	// ErrSingularBasis is returned when the basis matrix cannot be
	// inverted during a refactor.
	ErrSingularBasis = errors.New("simplex: singular basis")

	// ErrInvalidOption is returned by New for out-of-range options.
	ErrInvalidOption = errors.New("simplex: invalid option")
)

type varState int8

const (
	basic varState = iota
	atLower
	atUpper
	atZero // nonbasic free variable
)

// Solver holds the working state of one solve. A Solver is not safe for
// concurrent use; independent Solvers share nothing and may run in
// parallel.
type Solver struct {
	form *standard.Form

	tol            float64
	feasTol        float64
	pivTol         float64
	maxIter        int
	refactorEvery  int
	degenThreshold int
	logger         Logger

	m, n     int // rows; columns including artificials
	nForm    int // columns of the form
	a        *sparse.Matrix
	b        []float64
	lower    []float64
	upper    []float64
	cost     []float64
	x        []float64
	state    []varState
	head     []int
	inv      *basis
	artStart int

	iter        int
	degenerate  int
	streak      int
	phase       int
	scratchCol  []float64
	scratchRow  []float64
	scratchDual []float64
}

// New prepares a solver for f. The form is only read.
func New(f *standard.Form, opts ...Option) (*Solver, error) {
	s := &Solver{
		form:           f,
		tol:            DefaultTolerance,
		feasTol:        DefaultFeasibilityTolerance,
		pivTol:         DefaultPivotTolerance,
		maxIter:        DefaultMaxIterations,
		refactorEvery:  DefaultRefactorInterval,
		degenThreshold: DefaultDegeneracyThreshold,
		logger:         noopLogger{},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("applying solver option: %w", err)
		}
	}
	return s, nil
}

// Solve is shorthand for New followed by (*Solver).Solve.
func Solve(ctx context.Context, f *standard.Form, opts ...Option) (*Result, error) {
	s, err := New(f, opts...)
	if err != nil {
		return nil, err
	}
	return s.Solve(ctx)
}

// Solve runs phase 1 and phase 2. Infeasible, unbounded and
// iteration-limited models are reported through Result.Status; an error
// means the solve could not finish, either because ctx was cancelled
// (checked once before every pivot) or because the basis became singular.
func (s *Solver) Solve(ctx context.Context) (*Result, error) {
	s.setup()
	res := &Result{}

	if s.n > s.nForm {
		s.phase = 1
		for j := range s.n {
			s.cost[j] = 0
			if j >= s.artStart {
				s.cost[j] = 1
			}
		}
		st, err := s.run(ctx)
		res.Phase1Iterations = s.iter
		if err != nil {
			return nil, err
		}
		if st == StatusIterationLimit {
			return s.finish(res, st), nil
		}

		s.computeBasics()
		infeas := 0.0
		for j := s.artStart; j < s.n; j++ {
			infeas += s.x[j]
		}
		s.logger.Print(fmt.Sprintf("simplex: phase 1 done after %d iterations, infeasibility %g", s.iter, infeas))
		if infeas > s.feasTol*(1+floats.Norm(s.b, math.Inf(1))) {
			return s.finish(res, StatusInfeasible), nil
		}
		if err := s.driveOutArtificials(); err != nil {
			return nil, err
		}
	}

	s.phase = 2
	sign := 1.0
	if s.form.Direction == model.Maximize {
		sign = -1
	}
	for j := range s.n {
		s.cost[j] = 0
		if j < s.nForm {
			s.cost[j] = sign * s.form.Columns[j].Cost
		}
	}
	st, err := s.run(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Print(fmt.Sprintf("simplex: phase 2 done after %d iterations: %v", s.iter-res.Phase1Iterations, st))
	return s.finish(res, st), nil
}

// setup builds the working matrix and the starting basis: every nonbasic
// column sits at a finite bound (or zero when free), each row's slack is
// made basic when it can absorb the row residual within its bounds, and
// the remaining rows get an artificial column.
func (s *Solver) setup() {
	f := s.form
	s.m, s.nForm = f.Dims()
	s.a = f.A.Clone()
	s.b = append([]float64(nil), f.B...)

	s.lower = make([]float64, s.nForm, s.nForm+s.m)
	s.upper = make([]float64, s.nForm, s.nForm+s.m)
	s.x = make([]float64, s.nForm, s.nForm+s.m)
	s.state = make([]varState, s.nForm, s.nForm+s.m)
	for j, c := range f.Columns {
		s.lower[j], s.upper[j] = c.Lower, c.Upper
		switch {
		case !math.IsInf(c.Lower, -1):
			s.x[j], s.state[j] = c.Lower, atLower
		case !math.IsInf(c.Upper, 1):
			s.x[j], s.state[j] = c.Upper, atUpper
		default:
			s.x[j], s.state[j] = 0, atZero
		}
	}

	residual := append([]float64(nil), s.b...)
	for j := range s.nForm {
		if s.x[j] == 0 {
			continue
		}
		for i, v := range s.a.Column(j) {
			residual[i] -= v * s.x[j]
		}
	}

	s.head = make([]int, s.m)
	diag := make([]float64, s.m)
	s.artStart = s.nForm
	for i := range s.m {
		r := residual[i]
		if math.Abs(r) <= s.tol {
			r = 0
		}
		if j := f.Rows[i].Slack; j >= 0 {
			sigma := s.a.At(i, j)
			v := s.x[j] + r/sigma
			if v >= s.lower[j]-s.tol && v <= s.upper[j]+s.tol {
				s.x[j], s.state[j] = v, basic
				s.head[i], diag[i] = j, sigma
				continue
			}
		}

		sign := 1.0
		if r < 0 {
			sign = -1
		}
		j := s.a.AddCol()
		s.a.Add(i, j, sign)
		s.lower = append(s.lower, 0)
		s.upper = append(s.upper, math.Inf(1))
		s.x = append(s.x, math.Abs(r))
		s.state = append(s.state, basic)
		s.head[i], diag[i] = j, sign
	}
	_, s.n = s.a.Dims()
	s.cost = make([]float64, s.n)
	s.inv = newDiagonalBasis(diag)

	s.scratchCol = make([]float64, s.m)
	s.scratchRow = make([]float64, s.m)
	s.scratchDual = make([]float64, s.m)
	s.iter, s.degenerate, s.streak = 0, 0, 0
}

// run iterates the current phase until it is optimal, unbounded, or out
// of iterations.
func (s *Solver) run(ctx context.Context) (Status, error) {
	alpha := make([]float64, s.m)
	y := make([]float64, s.m)
	for {
		if s.iter >= s.maxIter {
			return StatusIterationLimit, nil
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if s.inv.pivots >= s.refactorEvery {
			if err := s.inv.refactor(s.a, s.head); err != nil {
				return 0, err
			}
		}

		s.computeBasics()
		s.duals(y)
		q, dir := s.price(y)
		if q < 0 {
			return StatusOptimal, nil
		}

		s.a.ScatterColumn(q, s.scratchCol)
		s.inv.solve(alpha, s.scratchCol)
		p, step, toUpper := s.ratio(q, dir, alpha)
		if math.IsInf(step, 1) {
			return StatusUnbounded, nil
		}
		s.pivot(q, dir, p, step, toUpper, alpha)
		s.iter++
	}
}

// computeBasics sets x_B = B^-1 (b - N x_N).
func (s *Solver) computeBasics() {
	rhs := s.scratchRow
	copy(rhs, s.b)
	for j := range s.n {
		if s.state[j] == basic || s.x[j] == 0 {
			continue
		}
		for i, v := range s.a.Column(j) {
			rhs[i] -= v * s.x[j]
		}
	}
	xb := s.scratchDual
	s.inv.solve(xb, rhs)
	for i, j := range s.head {
		v := xb[i]
		if math.Abs(v) <= s.tol {
			v = 0
		}
		s.x[j] = v
	}
}

// duals sets y = B^-T c_B.
func (s *Solver) duals(y []float64) {
	cb := s.scratchRow
	for i, j := range s.head {
		cb[i] = s.cost[j]
	}
	s.inv.solveT(y, cb)
}

func (s *Solver) reducedCost(j int, y []float64) float64 {
	d := s.cost[j]
	for i, v := range s.a.Column(j) {
		d -= y[i] * v
	}
	return d
}

// price returns the lowest-index nonbasic column whose reduced cost
// improves the objective in a direction its bounds allow, and that
// direction (+1 increase, -1 decrease). It returns -1 at optimality.
func (s *Solver) price(y []float64) (int, float64) {
	for j := range s.n {
		st := s.state[j]
		if st == basic || s.lower[j] == s.upper[j] {
			continue
		}
		d := s.reducedCost(j, y)
		switch {
		case d < -s.tol && (st == atLower || st == atZero):
			return j, 1
		case d > s.tol && (st == atUpper || st == atZero):
			return j, -1
		}
	}
	return -1, 0
}

// ratio finds how far the entering column q can move in direction dir.
// It returns the basis position of the leaving variable (-1 when q just
// moves to its opposite bound), the step length (+Inf when nothing
// limits it), and whether the leaving variable stops at its upper bound.
// Ties go to the lowest column index, q included.
func (s *Solver) ratio(q int, dir float64, alpha []float64) (int, float64, bool) {
	best, bestIdx, p, toUpper := math.Inf(1), -1, -1, false
	if !math.IsInf(s.lower[q], -1) && !math.IsInf(s.upper[q], 1) {
		best, bestIdx = s.upper[q]-s.lower[q], q
	}

	for i, jb := range s.head {
		a := alpha[i]
		if math.Abs(a) <= s.pivTol {
			continue
		}
		rate := -dir * a
		var limit float64
		up := rate > 0
		if up {
			if math.IsInf(s.upper[jb], 1) {
				continue
			}
			limit = (s.upper[jb] - s.x[jb]) / rate
		} else {
			if math.IsInf(s.lower[jb], -1) {
				continue
			}
			limit = (s.x[jb] - s.lower[jb]) / -rate
		}
		if limit < 0 {
			limit = 0
		}
		if limit < best-s.tol || (limit <= best+s.tol && jb < bestIdx) {
			best, bestIdx, p, toUpper = limit, jb, i, up
		}
	}
	if bestIdx == q {
		p = -1
	}
	return p, best, toUpper
}

func (s *Solver) pivot(q int, dir float64, p int, step float64, toUpper bool, alpha []float64) {
	if step <= s.tol {
		s.degenerate++
		s.streak++
		if s.streak == s.degenThreshold {
			s.logger.Print(DegeneracyWarning{Phase: s.phase, Iteration: s.iter, Streak: s.streak})
		}
	} else {
		s.streak = 0
	}

	if p < 0 {
		// Bound flip: no basis change.
		if dir > 0 {
			s.x[q], s.state[q] = s.upper[q], atUpper
		} else {
			s.x[q], s.state[q] = s.lower[q], atLower
		}
		return
	}

	s.x[q] += dir * step
	leaving := s.head[p]
	if toUpper {
		s.x[leaving], s.state[leaving] = s.upper[leaving], atUpper
	} else {
		s.x[leaving], s.state[leaving] = s.lower[leaving], atLower
	}
	if leaving >= s.artStart {
		s.retire(leaving)
	}
	s.head[p] = q
	s.state[q] = basic
	s.inv.update(p, alpha)
}

// retire pins an artificial column at zero so it never re-enters.
func (s *Solver) retire(j int) {
	s.lower[j], s.upper[j], s.x[j] = 0, 0, 0
	if s.state[j] != basic {
		s.state[j] = atLower
	}
}

// driveOutArtificials swaps basic artificials, all at zero after a
// feasible phase 1, for nonbasic form columns. An artificial whose row has
// no usable pivot belongs to a redundant row and stays basic, pinned at
// zero.
func (s *Solver) driveOutArtificials() error {
	alpha := make([]float64, s.m)
	for p, j := range s.head {
		if j < s.artStart {
			continue
		}
		s.retire(j)

		row := s.inv.row(p)
		for q := range s.nForm {
			if s.state[q] == basic {
				continue
			}
			s.a.ScatterColumn(q, s.scratchCol)
			if math.Abs(floats.Dot(row, s.scratchCol)) <= s.pivTol {
				continue
			}
			s.inv.solve(alpha, s.scratchCol)
			s.head[p] = q
			s.state[q] = basic
			s.state[j] = atLower
			s.inv.update(p, alpha)
			break
		}
	}
	for j := s.artStart; j < s.n; j++ {
		s.retire(j)
	}
	return s.inv.refactor(s.a, s.head)
}

func (s *Solver) finish(res *Result, st Status) *Result {
	res.Status = st
	res.Iterations = s.iter
	res.DegeneratePivots = s.degenerate
	if st != StatusOptimal {
		return res
	}

	s.computeBasics()
	y := make([]float64, s.m)
	s.duals(y)

	sign := 1.0
	if s.form.Direction == model.Maximize {
		sign = -1
	}
	res.X = make([]float64, s.nForm)
	res.ReducedCosts = make([]float64, s.nForm)
	res.Objective = s.form.Offset
	for j := range s.nForm {
		v := s.x[j]
		if math.Abs(v) <= s.tol {
			v = 0
		}
		res.X[j] = v
		res.Objective += s.form.Columns[j].Cost * v
		res.ReducedCosts[j] = sign * s.reducedCost(j, y)
	}
	res.Duals = make([]float64, s.m)
	for i, v := range y {
		res.Duals[i] = sign * v
	}
	return res
}
