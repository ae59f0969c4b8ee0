package instance

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"

	"q.log/lpsimplex/model"
)

const (
	rhsSetName   = "RHS"
	rangeSetName = "RNG"
	boundSetName = "BND"
)

// Write serializes m in MPS format. Reading the output back yields a model
// with the same names, senses, coefficients, right-hand sides, ranges and
// bounds.
func Write(w io.Writer, m *model.Model) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "NAME          %s\n", m.Name())
	if m.Direction() == model.Maximize {
		fmt.Fprintf(bw, "OBJSENSE\n    MAX\n")
	}

	fmt.Fprintln(bw, "ROWS")
	for i := range m.NumRows() {
		r := m.Row(i)
		fmt.Fprintf(bw, " %c  %s\n", byte(r.Sense), r.Name)
	}

	writeColumns(bw, m)
	writeRHS(bw, m)
	writeRanges(bw, m)
	writeBounds(bw, m)

	fmt.Fprintln(bw, "ENDATA")
	return bw.Flush()
}

func formatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return strconv.FormatFloat(model.Infinity, 'g', -1, 64)
	case math.IsInf(v, -1):
		return strconv.FormatFloat(-model.Infinity, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeColumns(bw *bufio.Writer, m *model.Model) {
	fmt.Fprintln(bw, "COLUMNS")
	integer := false
	for j := range m.NumCols() {
		v := m.Variable(j)
		if v.Integer != integer {
			marker := "'INTORG'"
			if integer {
				marker = "'INTEND'"
			}
			fmt.Fprintf(bw, "    MARKER    'MARKER'    %s\n", marker)
			integer = v.Integer
		}

		empty := true
		for i, a := range m.A.Column(j) {
			fmt.Fprintf(bw, "    %-10s %-10s %s\n", v.Name, m.Row(i).Name, formatNumber(a))
			empty = false
		}
		if empty {
			// A column only exists through its entries.
			obj := m.Row(m.ObjectiveRow()).Name
			fmt.Fprintf(bw, "    %-10s %-10s 0\n", v.Name, obj)
		}
	}
	if integer {
		fmt.Fprintln(bw, "    MARKER    'MARKER'    'INTEND'")
	}
}

func writeRHS(bw *bufio.Writer, m *model.Model) {
	fmt.Fprintln(bw, "RHS")
	for i := range m.NumRows() {
		r := m.Row(i)
		v := r.RHS
		if i == m.ObjectiveRow() {
			v = -m.Offset()
		}
		if v != 0 {
			fmt.Fprintf(bw, "    %-10s %-10s %s\n", rhsSetName, r.Name, formatNumber(v))
		}
	}
}

func writeRanges(bw *bufio.Writer, m *model.Model) {
	header := false
	for i := range m.NumRows() {
		r := m.Row(i)
		if !r.HasRange {
			continue
		}
		if !header {
			fmt.Fprintln(bw, "RANGES")
			header = true
		}
		fmt.Fprintf(bw, "    %-10s %-10s %s\n", rangeSetName, r.Name, formatNumber(r.Range))
	}
}

func writeBounds(bw *bufio.Writer, m *model.Model) {
	fmt.Fprintln(bw, "BOUNDS")
	for j := range m.NumCols() {
		v := m.Variable(j)
		lower, upper := v.Lower, v.Upper
		switch {
		case v.IsFree():
			fmt.Fprintf(bw, " FR %s %s\n", boundSetName, v.Name)
			continue
		case lower == upper:
			fmt.Fprintf(bw, " FX %s %s %s\n", boundSetName, v.Name, formatNumber(lower))
			continue
		case v.Integer && lower == 0 && upper == 1:
			fmt.Fprintf(bw, " BV %s %s\n", boundSetName, v.Name)
			continue
		}

		switch {
		case math.IsInf(lower, -1):
			fmt.Fprintf(bw, " MI %s %s\n", boundSetName, v.Name)
		case lower != 0:
			fmt.Fprintf(bw, " LO %s %s %s\n", boundSetName, v.Name, formatNumber(lower))
		}
		if !math.IsInf(upper, 1) {
			fmt.Fprintf(bw, " UP %s %s %s\n", boundSetName, v.Name, formatNumber(upper))
		}
	}
}
