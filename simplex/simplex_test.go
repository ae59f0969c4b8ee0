package simplex

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"q.log/lpsimplex/instance"
	"q.log/lpsimplex/model"
	"q.log/lpsimplex/standard"
)

const (
	delta        = 1e-7 // acceptable numerical deviation for test results
	fixture      = "../instance/testdata/dcopf6.mps"
	fixtureOptim = 2430.4322444723457
)

type testRow struct {
	sense model.Sense
	coef  []float64
	rhs   float64
	rng   *float64
}

type testBound struct {
	col          int
	lower, upper float64
}

// buildForm declares variables x0..x(n-1) with the given costs, one row per
// testRow, and returns the standard form of the result.
func buildForm(t *testing.T, dir model.Direction, cost []float64, rows []testRow, bounds ...testBound) *standard.Form {
	t.Helper()

	m := model.NewModel("test")
	require.NoError(t, m.SetDirection(dir))
	obj, err := m.AddRow("obj", model.SenseObjective)
	require.NoError(t, err)
	for j, c := range cost {
		col, err := m.AddVariable(fmt.Sprintf("x%d", j))
		require.NoError(t, err)
		require.NoError(t, m.AddCoefficient(obj, col, c))
	}
	for i, r := range rows {
		row, err := m.AddRow(fmt.Sprintf("r%d", i), r.sense)
		require.NoError(t, err)
		for j, v := range r.coef {
			if v != 0 {
				require.NoError(t, m.AddCoefficient(row, j, v))
			}
		}
		require.NoError(t, m.SetRHS(row, r.rhs))
		if r.rng != nil {
			require.NoError(t, m.SetRange(row, *r.rng))
		}
	}
	for _, b := range bounds {
		require.NoError(t, m.SetBounds(b.col, b.lower, b.upper))
	}
	require.NoError(t, m.Finalize())

	f, err := standard.Transform(m)
	require.NoError(t, err)
	return f
}

func fixtureForm(t *testing.T) (*model.Model, *standard.Form) {
	t.Helper()

	m, err := instance.ReadFile(fixture)
	require.NoError(t, err)
	f, err := standard.Transform(m)
	require.NoError(t, err)
	return m, f
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []any
}

func (l *recordingLogger) Print(v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, v...)
}

func TestSolveMaximize(t *testing.T) {
	f := buildForm(t, model.Maximize, []float64{3, 5}, []testRow{
		{sense: model.SenseLE, coef: []float64{1, 0}, rhs: 4},
		{sense: model.SenseLE, coef: []float64{0, 2}, rhs: 12},
		{sense: model.SenseLE, coef: []float64{3, 2}, rhs: 18},
	})

	res, err := Solve(context.Background(), f)
	require.NoError(t, err)
	require.True(t, res.IsOptimal())

	assert.InDelta(t, 36, res.Objective, delta)
	assert.InDelta(t, 2, res.X[0], delta)
	assert.InDelta(t, 6, res.X[1], delta)
	assert.InDelta(t, 2, res.X[f.Rows[0].Slack], delta)

	require.Len(t, res.Duals, 3)
	assert.InDelta(t, 0, res.Duals[0], delta)
	assert.InDelta(t, 1.5, res.Duals[1], delta)
	assert.InDelta(t, 1, res.Duals[2], delta)
	assert.Zero(t, res.Phase1Iterations)
}

func TestSolveInfeasible(t *testing.T) {
	f := buildForm(t, model.Minimize, []float64{1}, []testRow{
		{sense: model.SenseEQ, coef: []float64{1}, rhs: 1},
		{sense: model.SenseEQ, coef: []float64{1}, rhs: 2},
	})

	res, err := Solve(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, res.Status)
	assert.Nil(t, res.X)
	assert.Equal(t, "infeasible", res.Status.String())
}

func TestSolveUnbounded(t *testing.T) {
	tests := []struct {
		name string
		form func(t *testing.T) *standard.Form
	}{
		{
			name: "free variable without rows",
			form: func(t *testing.T) *standard.Form {
				return buildForm(t, model.Minimize, []float64{-1}, nil,
					testBound{col: 0, lower: math.Inf(-1), upper: math.Inf(1)})
			},
		},
		{
			name: "open ray",
			form: func(t *testing.T) *standard.Form {
				return buildForm(t, model.Minimize, []float64{-1, 0}, []testRow{
					{sense: model.SenseLE, coef: []float64{1, -1}, rhs: 1},
				})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Solve(context.Background(), tt.form(t))
			require.NoError(t, err)
			assert.Equal(t, StatusUnbounded, res.Status)
		})
	}
}

func TestSolveFreeVariable(t *testing.T) {
	f := buildForm(t, model.Minimize, []float64{1}, []testRow{
		{sense: model.SenseGE, coef: []float64{1}, rhs: -5},
	}, testBound{col: 0, lower: math.Inf(-1), upper: math.Inf(1)})

	res, err := Solve(context.Background(), f)
	require.NoError(t, err)
	require.True(t, res.IsOptimal())
	assert.InDelta(t, -5, res.X[0], delta)
	assert.InDelta(t, -5, res.Objective, delta)
	assert.InDelta(t, 1, res.Duals[0], delta)
}

func TestSolveRangedRowBoundFlip(t *testing.T) {
	f := buildForm(t, model.Maximize, []float64{1}, []testRow{
		{sense: model.SenseGE, coef: []float64{1}, rhs: 2, rng: ptr(3)},
	})

	res, err := Solve(context.Background(), f)
	require.NoError(t, err)
	require.True(t, res.IsOptimal())
	assert.InDelta(t, 5, res.X[0], delta)
	assert.InDelta(t, 3, res.X[f.Rows[0].Slack], delta)
	assert.Positive(t, res.Phase1Iterations)
}

func TestSolveRedundantRows(t *testing.T) {
	f := buildForm(t, model.Minimize, []float64{1, 0}, []testRow{
		{sense: model.SenseEQ, coef: []float64{1, 1}, rhs: 2},
		{sense: model.SenseEQ, coef: []float64{2, 2}, rhs: 4},
	})

	res, err := Solve(context.Background(), f)
	require.NoError(t, err)
	require.True(t, res.IsOptimal())
	assert.InDelta(t, 0, res.X[0], delta)
	assert.InDelta(t, 2, res.X[1], delta)
	assert.InDelta(t, 0, res.Objective, delta)
}

func TestSolveBoundedVariables(t *testing.T) {
	// x0 in [1, 3], x1 in [-2, 2]; x0 + x1 <= 4.
	f := buildForm(t, model.Maximize, []float64{1, 2}, []testRow{
		{sense: model.SenseLE, coef: []float64{1, 1}, rhs: 4},
	}, testBound{col: 0, lower: 1, upper: 3}, testBound{col: 1, lower: -2, upper: 2})

	res, err := Solve(context.Background(), f)
	require.NoError(t, err)
	require.True(t, res.IsOptimal())
	assert.InDelta(t, 2, res.X[0], delta)
	assert.InDelta(t, 2, res.X[1], delta)
	assert.InDelta(t, 6, res.Objective, delta)
}

func TestSolveFixture(t *testing.T) {
	m, f := fixtureForm(t)

	res, err := Solve(context.Background(), f)
	require.NoError(t, err)
	require.True(t, res.IsOptimal())
	assert.InDelta(t, fixtureOptim, res.Objective, 1e-6)

	value := func(name string) float64 {
		j, ok := m.LookupVariable(name)
		require.True(t, ok, name)
		return res.X[j]
	}
	assert.InDelta(t, 103.0864489, value("p[1]"), 1e-6)
	assert.InDelta(t, 111.9135511, value("p[3]"), 1e-6)
	assert.InDelta(t, 105, value("p[5]"), 1e-6)
	assert.InDelta(t, 0, value("theta[1]"), 1e-9)
	assert.InDelta(t, 50, value("f[3,4]"), 1e-6)
	assert.InDelta(t, 60, value("f[5,6]"), 1e-6)

	// All structural columns are free and no slack rests at a nonzero
	// bound, so the optimum equals y·b.
	var dual float64
	for i, y := range res.Duals {
		dual += y * f.B[i]
	}
	assert.InDelta(t, res.Objective, dual+f.Offset, 1e-6)

	// Primal feasibility of A x = b.
	for i := range f.Rows {
		var lhs float64
		for j, v := range f.A.Row(i) {
			lhs += v * res.X[j]
		}
		assert.InDelta(t, f.B[i], lhs, 1e-6, f.Rows[i].Name)
	}
}

// TestSolveMatchesGonum compares against gonum's dense simplex, which
// expects A x = b with x >= 0.
func TestSolveMatchesGonum(t *testing.T) {
	cost := []float64{-1, -2, -3, 1}
	rows := []testRow{
		{sense: model.SenseLE, coef: []float64{1, 1, 1, 1}, rhs: 10},
		{sense: model.SenseLE, coef: []float64{2, 1, 0, -1}, rhs: 12},
		{sense: model.SenseLE, coef: []float64{0, 1, 3, 0}, rhs: 15},
		{sense: model.SenseLE, coef: []float64{1, 0, 1, 2}, rhs: 8},
	}
	f := buildForm(t, model.Minimize, cost, rows)

	res, err := Solve(context.Background(), f)
	require.NoError(t, err)
	require.True(t, res.IsOptimal())

	r, c := f.Dims()
	a := mat.NewDense(r, c, nil)
	dc := make([]float64, c)
	for j := range c {
		dc[j] = f.Columns[j].Cost
		for i, v := range f.A.Column(j) {
			a.Set(i, j, v)
		}
	}
	want, _, err := lp.Simplex(dc, a, f.B, 1e-10, nil)
	require.NoError(t, err)
	assert.InDelta(t, want, res.Objective, delta)
}

func TestIterationLimit(t *testing.T) {
	f := buildForm(t, model.Maximize, []float64{3, 5}, []testRow{
		{sense: model.SenseLE, coef: []float64{1, 0}, rhs: 4},
		{sense: model.SenseLE, coef: []float64{0, 2}, rhs: 12},
		{sense: model.SenseLE, coef: []float64{3, 2}, rhs: 18},
	})

	res, err := Solve(context.Background(), f, WithMaxIterations(1))
	require.NoError(t, err)
	assert.Equal(t, StatusIterationLimit, res.Status)
	assert.Equal(t, 1, res.Iterations)
	assert.Nil(t, res.X)
}

func TestContext(t *testing.T) {
	_, f := fixtureForm(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Solve(ctx, f)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParallel(t *testing.T) {
	_, f := fixtureForm(t)

	const n = 8
	objs := make([]float64, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := Solve(context.Background(), f, WithRefactorInterval(i+1))
			if err != nil {
				errs[i] = err
				return
			}
			objs[i] = res.Objective
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.InDelta(t, fixtureOptim, objs[i], 1e-6)
	}
}

func TestDegeneracyWarning(t *testing.T) {
	f := buildForm(t, model.Minimize, []float64{-1, 0}, []testRow{
		{sense: model.SenseLE, coef: []float64{1, 1}, rhs: 0},
		{sense: model.SenseLE, coef: []float64{1, -1}, rhs: 0},
	})
	logger := &recordingLogger{}

	res, err := Solve(context.Background(), f, WithLogger(logger), WithDegeneracyThreshold(1))
	require.NoError(t, err)
	require.True(t, res.IsOptimal())
	assert.InDelta(t, 0, res.Objective, delta)
	assert.Positive(t, res.DegeneratePivots)

	var warned bool
	for _, e := range logger.entries {
		if w, ok := e.(DegeneracyWarning); ok {
			warned = true
			assert.Equal(t, 1, w.Streak)
			assert.Equal(t, 2, w.Phase)
		}
	}
	assert.True(t, warned)
}

func TestOptions(t *testing.T) {
	f := buildForm(t, model.Minimize, []float64{1}, nil)

	bad := map[string]Option{
		"tolerance":      WithTolerance(0),
		"nan tolerance":  WithTolerance(math.NaN()),
		"feasibility":    WithFeasibilityTolerance(-1),
		"pivot":          WithPivotTolerance(math.Inf(1)),
		"max iterations": WithMaxIterations(0),
		"refactor":       WithRefactorInterval(-3),
		"degeneracy":     WithDegeneracyThreshold(0),
	}
	for name, opt := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := New(f, opt)
			assert.ErrorIs(t, err, ErrInvalidOption)
		})
	}

	s, err := New(f, WithTolerance(1e-8), WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, 1e-8, s.tol)
	assert.Equal(t, noopLogger{}, s.logger)
}

func TestRefactorMatchesEtaUpdates(t *testing.T) {
	_, f := fixtureForm(t)

	eta, err := Solve(context.Background(), f, WithRefactorInterval(1000))
	require.NoError(t, err)
	fresh, err := Solve(context.Background(), f, WithRefactorInterval(1))
	require.NoError(t, err)

	assert.InDelta(t, eta.Objective, fresh.Objective, 1e-9)
	assert.InDeltaSlice(t, eta.X, fresh.X, 1e-6)
}

func ptr(v float64) *float64 { return &v }

// Beale's example cycles under the textbook largest-coefficient rule.
func TestSolveBealeCycling(t *testing.T) {
	f := buildForm(t, model.Minimize, []float64{-0.75, 150, -0.02, 6}, []testRow{
		{sense: model.SenseLE, coef: []float64{0.25, -60, -0.04, 9}, rhs: 0},
		{sense: model.SenseLE, coef: []float64{0.5, -90, -0.02, 3}, rhs: 0},
		{sense: model.SenseLE, coef: []float64{0, 0, 1, 0}, rhs: 1},
	})

	res, err := Solve(context.Background(), f, WithMaxIterations(1000))
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, res.Status)
	assert.InDelta(t, -0.05, res.Objective, delta)
	assert.InDelta(t, 0.04, res.X[0], delta)
	assert.InDelta(t, 1, res.X[2], delta)
	assert.Positive(t, res.DegeneratePivots)
}

// randomForm builds a feasible LP around a random point. Variables cycle
// through free, boxed, upper-only and lower-only bounds.
func randomForm(t *testing.T, rng *rand.Rand, n, m int) *standard.Form {
	t.Helper()

	cost := make([]float64, n)
	point := make([]float64, n)
	var bounds []testBound
	for j := range n {
		cost[j] = float64(rng.IntN(11) - 5)
		lo := float64(rng.IntN(7) - 3)
		switch j % 4 {
		case 0:
			bounds = append(bounds, testBound{col: j, lower: math.Inf(-1), upper: math.Inf(1)})
			point[j] = rng.Float64()*10 - 5
		case 1:
			hi := lo + float64(1+rng.IntN(4))
			bounds = append(bounds, testBound{col: j, lower: lo, upper: hi})
			point[j] = lo + rng.Float64()*(hi-lo)
		case 2:
			bounds = append(bounds, testBound{col: j, lower: math.Inf(-1), upper: lo})
			point[j] = lo - rng.Float64()*3
		default:
			bounds = append(bounds, testBound{col: j, lower: lo, upper: math.Inf(1)})
			point[j] = lo + rng.Float64()*3
		}
	}

	senses := []model.Sense{model.SenseLE, model.SenseGE, model.SenseEQ}
	rows := make([]testRow, m)
	for i := range rows {
		coef := make([]float64, n)
		var ax float64
		for j := range coef {
			coef[j] = float64(rng.IntN(9) - 4)
			ax += coef[j] * point[j]
		}
		r := testRow{sense: senses[rng.IntN(len(senses))], coef: coef, rhs: ax}
		switch r.sense {
		case model.SenseLE:
			r.rhs += rng.Float64() * 2
		case model.SenseGE:
			r.rhs -= rng.Float64() * 2
		}
		rows[i] = r
	}
	return buildForm(t, model.Minimize, cost, rows, bounds...)
}

func TestSolveRandomKKT(t *testing.T) {
	const tol = 1e-6
	rng := rand.New(rand.NewPCG(7, 11))

	var optimal int
	for trial := range 200 {
		f := randomForm(t, rng, 4+rng.IntN(5), 2+rng.IntN(5))

		res, err := Solve(context.Background(), f)
		require.NoError(t, err, "trial %d", trial)
		require.NotEqual(t, StatusInfeasible, res.Status, "trial %d", trial)
		require.NotEqual(t, StatusIterationLimit, res.Status, "trial %d", trial)
		if res.Status != StatusOptimal {
			continue
		}
		optimal++

		rows, cols := f.Dims()
		for i := range rows {
			var lhs float64
			for j, v := range f.A.Row(i) {
				lhs += v * res.X[j]
			}
			require.InDelta(t, f.B[i], lhs, tol, "trial %d row %d", trial, i)
		}

		var obj float64
		for j := range cols {
			c := f.Columns[j]
			x := res.X[j]
			require.GreaterOrEqual(t, x, c.Lower-tol, "trial %d col %d", trial, j)
			require.LessOrEqual(t, x, c.Upper+tol, "trial %d col %d", trial, j)
			obj += c.Cost * x

			d := c.Cost
			for i, v := range f.A.Column(j) {
				d -= res.Duals[i] * v
			}
			require.InDelta(t, d, res.ReducedCosts[j], tol, "trial %d col %d", trial, j)

			atLower := x <= c.Lower+tol
			atUpper := x >= c.Upper-tol
			switch {
			case atLower && atUpper:
			case atLower:
				require.GreaterOrEqual(t, d, -tol, "trial %d col %d", trial, j)
			case atUpper:
				require.LessOrEqual(t, d, tol, "trial %d col %d", trial, j)
			default:
				require.InDelta(t, 0, d, tol, "trial %d col %d", trial, j)
			}
		}
		require.InDelta(t, obj, res.Objective, tol, "trial %d", trial)
	}
	assert.Positive(t, optimal)
}
