package instance

import "fmt"

// FormatError reports a malformed MPS file. Line is 1-based; Token is the
// offending field when one can be singled out.
type FormatError struct {
	Line  int
	Token string
	Msg   string
	Err   error
}

func (e *FormatError) Error() string {
	s := fmt.Sprintf("instance: line %d: %s", e.Line, e.Msg)
	if e.Token != "" {
		s += fmt.Sprintf(" (%q)", e.Token)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// UnknownVariableError reports a BOUNDS entry naming a variable that never
// appeared in COLUMNS.
type UnknownVariableError struct {
	Line int
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("instance: line %d: bound on unknown variable %q", e.Line, e.Name)
}
