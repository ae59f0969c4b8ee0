//go:build glpk

package instance

import (
	"fmt"
	"math"
	"runtime"

	"github.com/lukpank/go-glpk/glpk"
	"q.log/lpsimplex/model"
)

// glpkObjective names the objective row of models built by ReadGLPK;
// GLPK keeps the objective apart from the constraint rows.
const glpkObjective = "OBJ"

func glpkBound(v float64) float64 {
	switch {
	case v >= math.MaxFloat64:
		return math.Inf(1)
	case v <= -math.MaxFloat64:
		return math.Inf(-1)
	}
	return v
}

// ReadGLPK reads a free-format MPS file with GLPK and converts the
// result into a finalized model. It is an independent reader used to
// cross-check Read.
func ReadGLPK(filename string) (*model.Model, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	lp := glpk.New()
	defer lp.Delete()
	if err := lp.ReadMPS(glpk.MPS_FILE, nil, filename); err != nil {
		return nil, fmt.Errorf("instance: glpk: %w", err)
	}

	m := model.NewModel(lp.ProbName())
	if lp.ObjDir() == glpk.MAX {
		if err := m.SetDirection(model.Maximize); err != nil {
			return nil, err
		}
	}
	obj, err := m.AddRow(glpkObjective, model.SenseObjective)
	if err != nil {
		return nil, err
	}

	// GLPK rows and columns are 1-based.
	rows := make([]int, lp.NumRows()+1)
	for r := 1; r <= lp.NumRows(); r++ {
		lo, up := glpkBound(lp.RowLB(r)), glpkBound(lp.RowUB(r))
		var sense model.Sense
		rhs, rng := 0.0, 0.0
		switch lp.RowType(r) {
		case glpk.FR:
			rows[r] = -1
			continue
		case glpk.UP:
			sense, rhs = model.SenseLE, up
		case glpk.LO:
			sense, rhs = model.SenseGE, lo
		case glpk.FX:
			sense, rhs = model.SenseEQ, lo
		case glpk.DB:
			sense, rhs, rng = model.SenseGE, lo, up-lo
		}
		i, err := m.AddRow(lp.RowName(r), sense)
		if err != nil {
			return nil, err
		}
		rows[r] = i
		if err := m.SetRHS(i, rhs); err != nil {
			return nil, err
		}
		if lp.RowType(r) == glpk.DB {
			if err := m.SetRange(i, rng); err != nil {
				return nil, err
			}
		}
	}

	for c := 1; c <= lp.NumCols(); c++ {
		j, err := m.AddVariable(lp.ColName(c))
		if err != nil {
			return nil, err
		}
		if coef := lp.ObjCoef(c); coef != 0 {
			if err := m.AddCoefficient(obj, j, coef); err != nil {
				return nil, err
			}
		}
		idxs, vals := lp.MatCol(c)
		for k, r := range idxs {
			if r == 0 || rows[r] < 0 {
				continue
			}
			if err := m.AddCoefficient(rows[r], j, vals[k]); err != nil {
				return nil, err
			}
		}
		if err := m.SetBounds(j, glpkBound(lp.ColLB(c)), glpkBound(lp.ColUB(c))); err != nil {
			return nil, fmt.Errorf("instance: glpk: column %s: %w", lp.ColName(c), err)
		}
	}
	if err := m.SetOffset(lp.ObjCoef(0)); err != nil {
		return nil, err
	}

	if err := m.Finalize(); err != nil {
		return nil, err
	}
	return m, nil
}

// SolveGLPK solves the MPS file with GLPK's simplex and returns the
// optimal objective value.
func SolveGLPK(filename string) (float64, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	lp := glpk.New()
	defer lp.Delete()
	if err := lp.ReadMPS(glpk.MPS_FILE, nil, filename); err != nil {
		return 0, fmt.Errorf("instance: glpk: %w", err)
	}
	smcp := glpk.NewSmcp()
	smcp.SetMsgLev(glpk.MSG_OFF)
	if err := lp.Simplex(smcp); err != nil {
		return 0, fmt.Errorf("instance: glpk: %w", err)
	}
	if lp.Status() != glpk.OPT {
		return 0, fmt.Errorf("instance: glpk: status %v", lp.Status())
	}
	return lp.ObjVal(), nil
}
