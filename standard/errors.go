package standard

import (
	"errors"
	"fmt"

	"q.log/lpsimplex/model"
)

// ErrNotFinalized is returned when transforming a model that is still
// being built.
var ErrNotFinalized = errors.New("standard: model is not finalized")

// UnsupportedSenseError reports a row whose sense is none of N, L, G, E.
type UnsupportedSenseError struct {
	Row   string
	Sense model.Sense
}

func (e *UnsupportedSenseError) Error() string {
	return fmt.Sprintf("standard: row %q has unsupported sense %q", e.Row, byte(e.Sense))
}
