package model

import "errors"

var (
	// ErrNoObjective is returned by Finalize when no N row was declared.
	ErrNoObjective = errors.New("model: no objective row")

	// ErrDuplicateObjective is returned when a second N row is declared.
	ErrDuplicateObjective = errors.New("model: duplicate objective row")

	// ErrDuplicateName is returned when a row or variable name is reused.
	ErrDuplicateName = errors.New("model: duplicate name")

	// ErrInvalidBounds is returned when a variable ends up with lower > upper.
	ErrInvalidBounds = errors.New("model: lower bound exceeds upper bound")

	// ErrFinalized is returned by any mutation after Finalize.
	ErrFinalized = errors.New("model: model is finalized")

	// ErrUnknownBound is returned for an unrecognized bound kind.
	ErrUnknownBound = errors.New("model: unknown bound kind")
)
