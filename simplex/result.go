package simplex

import "fmt"

type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusIterationLimit
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusIterationLimit:
		return "iteration limit"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result is the outcome of one solve. X, Duals and ReducedCosts are
// indexed like the columns and rows of the standard form and are only set
// when Status is StatusOptimal.
type Result struct {
	Status    Status
	Objective float64

	X            []float64
	Duals        []float64
	ReducedCosts []float64

	Iterations       int
	Phase1Iterations int
	DegeneratePivots int
}

func (r *Result) IsOptimal() bool {
	return r.Status == StatusOptimal
}
