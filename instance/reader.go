// Package instance reads and writes LP models in MPS format.
//
// Fields are separated by any run of whitespace, so both fixed-column and
// free MPS files are accepted as long as names contain no spaces. Section
// headers start in the first column, data lines are indented, and lines
// starting with '*' are comments.
package instance

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"q.log/lpsimplex/model"
)

type section int

const (
	secNone section = iota
	secName
	secObjSense
	secRows
	secColumns
	secRHS
	secRanges
	secBounds
	secEnd
)

var sections = map[string]section{
	"NAME":     secName,
	"OBJSENSE": secObjSense,
	"ROWS":     secRows,
	"COLUMNS":  secColumns,
	"RHS":      secRHS,
	"RANGES":   secRanges,
	"BOUNDS":   secBounds,
	"ENDATA":   secEnd,
}

// Reader reads an MPS file to construct a model
type Reader struct {
	filename string
}

func NewReader(filename string) *Reader {
	return &Reader{
		filename: filename,
	}
}

// ConstructModelFromFile returns the finalized model read from the file.
func (r *Reader) ConstructModelFromFile() (*model.Model, error) {
	f, err := os.Open(r.filename)
	if err != nil {
		return nil, fmt.Errorf("instance: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// ReadFile is shorthand for NewReader(path).ConstructModelFromFile().
func ReadFile(path string) (*model.Model, error) {
	return NewReader(path).ConstructModelFromFile()
}

// Read parses an MPS stream into a finalized model.
func Read(rd io.Reader) (*model.Model, error) {
	p := &parser{m: model.NewModel("")}

	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		p.line++
		if err := p.parseLine(sc.Text()); err != nil {
			return nil, err
		}
		if p.sec == secEnd {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &FormatError{Line: p.line, Msg: "read failed", Err: err}
	}
	if p.sec != secEnd {
		return nil, &FormatError{Line: p.line, Msg: "missing ENDATA"}
	}

	if err := p.m.Finalize(); err != nil {
		if errors.Is(err, model.ErrNoObjective) {
			return nil, &FormatError{Line: p.line, Msg: "no objective (N) row", Err: err}
		}
		return nil, &FormatError{Line: p.line, Msg: "invalid model", Err: err}
	}
	return p.m, nil
}

type parser struct {
	m    *model.Model
	sec  section
	line int

	integer bool // between INTORG and INTEND markers

	rhsSet   setName
	rangeSet setName
	boundSet setName
}

// setName remembers the first RHS, RANGES or BOUNDS set seen; entries of
// any other named set are skipped. An entry without a set name belongs to
// the active set.
type setName struct {
	name string
	seen bool
}

func (s *setName) accept(name string) bool {
	if !s.seen {
		s.name, s.seen = name, true
	}
	return name == "" || name == s.name
}

func (p *parser) errorf(token, format string, args ...any) error {
	return &FormatError{Line: p.line, Token: token, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) wrap(token, msg string, err error) error {
	return &FormatError{Line: p.line, Token: token, Msg: msg, Err: err}
}

func (p *parser) parseLine(line string) error {
	if strings.HasPrefix(line, "*") {
		return nil
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	if line[0] != ' ' && line[0] != '\t' {
		return p.header(fields)
	}

	switch p.sec {
	case secObjSense:
		return p.objSense(fields[0])
	case secRows:
		return p.rows(fields)
	case secColumns:
		return p.columns(fields)
	case secRHS:
		return p.rhs(fields)
	case secRanges:
		return p.ranges(fields)
	case secBounds:
		return p.bounds(fields)
	}
	return p.errorf(fields[0], "data line outside of a section")
}

func (p *parser) header(fields []string) error {
	keyword := strings.ToUpper(fields[0])
	sec, ok := sections[keyword]
	if !ok {
		return p.errorf(fields[0], "unknown section header")
	}
	if sec <= p.sec {
		return p.errorf(fields[0], "section out of order")
	}
	p.sec = sec

	switch sec {
	case secName:
		if len(fields) > 1 {
			// Names may contain spaces in free MPS.
			return p.m.SetName(strings.Join(fields[1:], " "))
		}
	case secObjSense:
		if len(fields) > 1 {
			return p.objSense(fields[1])
		}
	}
	return nil
}

func (p *parser) objSense(token string) error {
	switch strings.ToUpper(token) {
	case "MAX", "MAXIMIZE":
		return p.m.SetDirection(model.Maximize)
	case "MIN", "MINIMIZE":
		return p.m.SetDirection(model.Minimize)
	}
	return p.errorf(token, "unknown objective sense")
}

func (p *parser) rows(fields []string) error {
	if len(fields) != 2 {
		return p.errorf(strings.Join(fields, " "), "ROWS entry needs a sense and a name")
	}
	code := strings.ToUpper(fields[0])
	if len(code) != 1 || !strings.Contains("NLGE", code) {
		return p.errorf(fields[0], "unknown row sense")
	}
	if _, err := p.m.AddRow(fields[1], model.Sense(code[0])); err != nil {
		return p.wrap(fields[1], "bad row", err)
	}
	return nil
}

func (p *parser) columns(fields []string) error {
	if len(fields) >= 3 && fields[1] == "'MARKER'" {
		switch fields[2] {
		case "'INTORG'":
			p.integer = true
		case "'INTEND'":
			p.integer = false
		default:
			return p.errorf(fields[2], "unknown marker")
		}
		return nil
	}
	if len(fields) != 3 && len(fields) != 5 {
		return p.errorf(fields[0], "COLUMNS entry needs one or two row/value pairs")
	}

	col, ok := p.m.LookupVariable(fields[0])
	if !ok {
		var err error
		if col, err = p.m.AddVariable(fields[0]); err != nil {
			return p.wrap(fields[0], "bad variable", err)
		}
	}
	if p.integer {
		if err := p.m.SetInteger(col, true); err != nil {
			return err
		}
	}

	for i := 1; i+1 < len(fields); i += 2 {
		row, ok := p.m.LookupRow(fields[i])
		if !ok {
			return p.errorf(fields[i], "undeclared row")
		}
		v, err := p.number(fields[i+1])
		if err != nil {
			return err
		}
		if err := p.m.AddCoefficient(row, col, v); err != nil {
			return err
		}
	}
	return nil
}

// pairs splits an RHS or RANGES line into its optional set name and its
// row/value pairs.
func (p *parser) pairs(fields []string, set *setName) ([]string, bool, error) {
	name := ""
	if len(fields)%2 == 1 {
		name, fields = fields[0], fields[1:]
	}
	if len(fields) != 2 && len(fields) != 4 {
		return nil, false, p.errorf(name, "entry needs one or two row/value pairs")
	}
	return fields, set.accept(name), nil
}

func (p *parser) rhs(fields []string) error {
	pairs, ok, err := p.pairs(fields, &p.rhsSet)
	if err != nil || !ok {
		return err
	}
	for i := 0; i < len(pairs); i += 2 {
		row, found := p.m.LookupRow(pairs[i])
		if !found {
			return p.errorf(pairs[i], "undeclared row")
		}
		v, err := p.number(pairs[i+1])
		if err != nil {
			return err
		}
		if err := p.m.SetRHS(row, v); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) ranges(fields []string) error {
	pairs, ok, err := p.pairs(fields, &p.rangeSet)
	if err != nil || !ok {
		return err
	}
	for i := 0; i < len(pairs); i += 2 {
		row, found := p.m.LookupRow(pairs[i])
		if !found {
			return p.errorf(pairs[i], "undeclared row")
		}
		if row == p.m.ObjectiveRow() {
			return p.errorf(pairs[i], "range on objective row")
		}
		v, err := p.number(pairs[i+1])
		if err != nil {
			return err
		}
		if err := p.m.SetRange(row, v); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) bounds(fields []string) error {
	kind, ok := model.ParseBoundKind(strings.ToUpper(fields[0]))
	if !ok {
		return p.errorf(fields[0], "unknown bound type")
	}

	var set, name, value string
	switch {
	case len(fields) == 4:
		set, name, value = fields[1], fields[2], fields[3]
	case len(fields) == 3 && kind.NeedsValue():
		name, value = fields[1], fields[2]
	case len(fields) == 3:
		set, name = fields[1], fields[2]
	case len(fields) == 2 && !kind.NeedsValue():
		name = fields[1]
	default:
		return p.errorf(fields[0], "malformed BOUNDS entry")
	}

	if !p.boundSet.accept(set) {
		return nil
	}

	col, ok := p.m.LookupVariable(name)
	if !ok {
		return &UnknownVariableError{Line: p.line, Name: name}
	}

	v := 0.0
	if value != "" {
		var err error
		if v, err = p.boundValue(value); err != nil {
			return err
		}
	}
	if err := p.m.ApplyBound(col, kind, v); err != nil {
		return p.wrap(fields[0], "bad bound", err)
	}
	return nil
}

// number parses a coefficient, RHS or range value, which must be finite.
func (p *parser) number(token string) (float64, error) {
	if strings.ContainsAny(token, "xX") {
		return 0, p.errorf(token, "malformed number")
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, p.wrap(token, "malformed number", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, p.errorf(token, "number must be finite")
	}
	return v, nil
}

// boundValue parses a BOUNDS value. Infinities and overflowing values are
// allowed here and mean an absent bound.
func (p *parser) boundValue(token string) (float64, error) {
	if strings.ContainsAny(token, "xX") {
		return 0, p.errorf(token, "malformed number")
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || !errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, p.wrap(token, "malformed number", err)
		}
	}
	if math.IsNaN(v) {
		return 0, p.errorf(token, "malformed number")
	}
	return model.Normalize(v), nil
}
