package simplex

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"q.log/lpsimplex/sparse"
)

// basis keeps an explicit inverse of the basis matrix. Pivots apply a
// product-form (eta) update in place; refactor rebuilds the inverse from
// the basic columns.
type basis struct {
	m      int
	inv    *mat.Dense
	pivots int // eta updates since the last refactor
}

// newDiagonalBasis returns the inverse of diag(d).
func newDiagonalBasis(d []float64) *basis {
	b := &basis{m: len(d)}
	if b.m == 0 {
		return b
	}
	b.inv = mat.NewDense(b.m, b.m, nil)
	for i, v := range d {
		b.inv.Set(i, i, 1/v)
	}
	return b
}

// refactor recomputes B^-1 where column i of B is column head[i] of a.
func (b *basis) refactor(a *sparse.Matrix, head []int) error {
	b.pivots = 0
	if b.m == 0 {
		return nil
	}
	bm := mat.NewDense(b.m, b.m, nil)
	for i, j := range head {
		for r, v := range a.Column(j) {
			bm.Set(r, i, v)
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(bm); err != nil {
		return fmt.Errorf("%w: %v", ErrSingularBasis, err)
	}
	b.inv = &inv
	return nil
}

// update replaces the basic column at position p, given alpha = B^-1 a_q
// for the entering column q.
func (b *basis) update(p int, alpha []float64) {
	raw := b.inv.RawMatrix()
	rowP := raw.Data[p*raw.Stride : p*raw.Stride+b.m]
	floats.Scale(1/alpha[p], rowP)
	for i := range b.m {
		if i == p || alpha[i] == 0 {
			continue
		}
		rowI := raw.Data[i*raw.Stride : i*raw.Stride+b.m]
		floats.AddScaled(rowI, -alpha[i], rowP)
	}
	b.pivots++
}

// solve sets dst = B^-1 v.
func (b *basis) solve(dst, v []float64) {
	if b.m == 0 {
		return
	}
	out := mat.NewVecDense(b.m, dst)
	out.MulVec(b.inv, mat.NewVecDense(b.m, v))
}

// solveT sets dst = B^-T v, which is how duals come out of basic costs.
func (b *basis) solveT(dst, v []float64) {
	if b.m == 0 {
		return
	}
	out := mat.NewVecDense(b.m, dst)
	out.MulVec(b.inv.T(), mat.NewVecDense(b.m, v))
}

// row returns row p of B^-1. The slice aliases the inverse.
func (b *basis) row(p int) []float64 {
	return b.inv.RawRowView(p)
}
