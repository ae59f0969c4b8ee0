package simplex

import (
	"fmt"
	"math"
)

const (
	// DefaultTolerance governs zero, bound and pricing comparisons.
	DefaultTolerance = 1e-9

	// DefaultFeasibilityTolerance bounds the phase 1 residual, relative
	// to 1 + max|b|, that still counts as feasible.
	DefaultFeasibilityTolerance = 1e-7

	// DefaultPivotTolerance is the smallest |alpha| accepted as a pivot.
	DefaultPivotTolerance = 1e-9

	DefaultMaxIterations       = 100000
	DefaultRefactorInterval    = 64
	DefaultDegeneracyThreshold = 50
)

type Option func(*Solver) error

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 1) {
		return fmt.Errorf("%w: %s must be positive and finite, got %g", ErrInvalidOption, name, v)
	}
	return nil
}

func WithTolerance(eps float64) Option {
	return func(s *Solver) error {
		if err := positive("tolerance", eps); err != nil {
			return err
		}
		s.tol = eps
		return nil
	}
}

func WithFeasibilityTolerance(tol float64) Option {
	return func(s *Solver) error {
		if err := positive("feasibility tolerance", tol); err != nil {
			return err
		}
		s.feasTol = tol
		return nil
	}
}

func WithPivotTolerance(tol float64) Option {
	return func(s *Solver) error {
		if err := positive("pivot tolerance", tol); err != nil {
			return err
		}
		s.pivTol = tol
		return nil
	}
}

// WithMaxIterations caps the total number of pivots over both phases.
func WithMaxIterations(n int) Option {
	return func(s *Solver) error {
		if n <= 0 {
			return fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidOption, n)
		}
		s.maxIter = n
		return nil
	}
}

// WithRefactorInterval sets how many eta updates are applied to the basis
// inverse before it is rebuilt from scratch.
func WithRefactorInterval(n int) Option {
	return func(s *Solver) error {
		if n <= 0 {
			return fmt.Errorf("%w: refactor interval must be positive, got %d", ErrInvalidOption, n)
		}
		s.refactorEvery = n
		return nil
	}
}

func WithDegeneracyThreshold(n int) Option {
	return func(s *Solver) error {
		if n <= 0 {
			return fmt.Errorf("%w: degeneracy threshold must be positive, got %d", ErrInvalidOption, n)
		}
		s.degenThreshold = n
		return nil
	}
}

func WithLogger(logger Logger) Option {
	return func(s *Solver) error {
		if logger == nil {
			logger = noopLogger{}
		}
		s.logger = logger
		return nil
	}
}
