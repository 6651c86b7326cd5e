package gtfs

import "fmt"

// ParseError reports a malformed static CSV row or day-relative time string.
type ParseError struct {
	File  string
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	switch {
	case e.File != "":
		return fmt.Sprintf("parse %s line %d field %q (%q): %v", e.File, e.Line, e.Field, e.Value, e.Err)
	case e.Field != "":
		return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
	default:
		return fmt.Sprintf("parse %q: %v", e.Value, e.Err)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
