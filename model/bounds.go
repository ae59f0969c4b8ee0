package model

import (
	"fmt"
	"math"
)

// BoundKind is an MPS bound type code.
type BoundKind string

const (
	BoundLower        BoundKind = "LO"
	BoundUpper        BoundKind = "UP"
	BoundFixed        BoundKind = "FX"
	BoundFree         BoundKind = "FR"
	BoundMinusInf     BoundKind = "MI"
	BoundPlusInf      BoundKind = "PL"
	BoundBinary       BoundKind = "BV"
	BoundLowerInteger BoundKind = "LI"
	BoundUpperInteger BoundKind = "UI"
)

// ParseBoundKind maps an MPS code to a BoundKind.
func ParseBoundKind(code string) (BoundKind, bool) {
	switch k := BoundKind(code); k {
	case BoundLower, BoundUpper, BoundFixed, BoundFree, BoundMinusInf,
		BoundPlusInf, BoundBinary, BoundLowerInteger, BoundUpperInteger:
		return k, true
	}
	return "", false
}

// NeedsValue reports whether a declaration of this kind carries a number.
func (k BoundKind) NeedsValue() bool {
	switch k {
	case BoundFree, BoundMinusInf, BoundPlusInf, BoundBinary:
		return false
	}
	return true
}

// Normalize maps magnitudes at or beyond Infinity to ±Inf.
func Normalize(v float64) float64 {
	switch {
	case v >= Infinity:
		return math.Inf(1)
	case v <= -Infinity:
		return math.Inf(-1)
	}
	return v
}

// ApplyBound applies one bound declaration to variable col. Declarations
// are applied in file order on top of the default [0, +Inf).
//
// UP with a negative value on a variable whose lower bound is still the
// default 0 moves the lower bound to -Inf.
func (m *Model) ApplyBound(col int, kind BoundKind, value float64) error {
	if m.finalized {
		return ErrFinalized
	}
	v := m.vars[col]
	value = Normalize(value)

	switch kind {
	case BoundLower:
		v.Lower = value
	case BoundUpper:
		if value < 0 && v.Lower == 0 {
			v.Lower = math.Inf(-1)
		}
		v.Upper = value
	case BoundFixed:
		v.Lower, v.Upper = value, value
	case BoundFree:
		v.Lower, v.Upper = math.Inf(-1), math.Inf(1)
	case BoundMinusInf:
		v.Lower = math.Inf(-1)
	case BoundPlusInf:
		v.Upper = math.Inf(1)
	case BoundBinary:
		v.Lower, v.Upper = 0, 1
		v.Integer = true
	case BoundLowerInteger:
		v.Lower = value
		v.Integer = true
	case BoundUpperInteger:
		if value < 0 && v.Lower == 0 {
			v.Lower = math.Inf(-1)
		}
		v.Upper = value
		v.Integer = true
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBound, string(kind))
	}
	return nil
}

// SetBounds overwrites both bounds of variable col.
func (m *Model) SetBounds(col int, lower, upper float64) error {
	if m.finalized {
		return ErrFinalized
	}
	m.vars[col].Lower = Normalize(lower)
	m.vars[col].Upper = Normalize(upper)
	return nil
}
