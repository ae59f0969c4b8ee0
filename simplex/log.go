package simplex

import "fmt"

type Logger interface {
	Print(v ...any)
}

type noopLogger struct{}

func (noopLogger) Print(v ...any) {}

// DegeneracyWarning is logged when a run of consecutive degenerate pivots
// (steps of length zero) reaches the configured threshold. It does not
// stop the solve.
type DegeneracyWarning struct {
	Phase     int
	Iteration int
	Streak    int
}

func (w DegeneracyWarning) String() string {
	return fmt.Sprintf("simplex: phase %d iteration %d: %d consecutive degenerate pivots", w.Phase, w.Iteration, w.Streak)
}
