package errors

import "fmt"

// ParseError wraps a specific error with context about where it occurred.
type ParseError struct {
	Line   int
	Record []string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %v (record: %v)", e.Line, e.Err, e.Record)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError reports run input that was rejected before any computation.
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid builds a ValidationError for field.
func Invalid(field string, value any, err error) error {
	return &ValidationError{Field: field, Value: value, Err: err}
}

// CSV input errors.
var (
	ErrInvalidFieldCount    = fmt.Errorf("invalid field count")
	ErrInvalidHour          = fmt.Errorf("invalid hour")
	ErrInvalidCount         = fmt.Errorf("invalid count")
	ErrInvalidCode          = fmt.Errorf("invalid worker code")
	ErrInvalidJoinDate      = fmt.Errorf("invalid join date")
	ErrInvalidPreferredHour = fmt.Errorf("invalid preferred hour")
)

// Run input errors.
var (
	ErrNegativeDemand    = fmt.Errorf("demand must not be negative")
	ErrHourOutOfRange    = fmt.Errorf("hour must be within 0-23")
	ErrDuplicateHour     = fmt.Errorf("duplicate demand hour")
	ErrDuplicateCode     = fmt.Errorf("duplicate worker code")
	ErrNegativeTotal     = fmt.Errorf("total assigned count must not be negative")
	ErrInvalidPercentage = fmt.Errorf("percentage must be within 0-100")
	ErrPercentageSum     = fmt.Errorf("high and middle percentages exceed 100")
	ErrInvalidConfig     = fmt.Errorf("invalid scheduler configuration")
	ErrInvalidPartition  = fmt.Errorf("time windows must partition the day")
)

// ErrNoWindow means an hour resolved to no time window. The partition is
// validated up front, so this indicates an internal inconsistency.
var ErrNoWindow = fmt.Errorf("no time window covers hour")
