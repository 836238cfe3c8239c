package domain

import "fmt"

// MissingFieldError reports a required field absent from the record at Index.
type MissingFieldError struct {
	Field string
	Index int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record %d: missing required field %q", e.Index, e.Field)
}

// DateParseError reports a measurement date that could not be parsed.
type DateParseError struct {
	Value string
	Index int
	Err   error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("record %d: unparseable date %q", e.Index, e.Value)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// NetworkError reports a failed call to the climate provider. StatusCode is 0
// for transport failures.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// InsufficientDataError reports a table too small, or too unbalanced, for the
// requested operation.
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return "insufficient data: " + e.Reason
}
