package params

import "fmt"

// MissingParameterError is returned when a table lookup misses. Missing parameters are never defaulted to zero
// because a zero would silently change the cost and balance equations.
type MissingParameterError struct {
	Table string
	Key   string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing parameter %s[%s]", e.Table, e.Key)
}

// RowCountMismatchError is returned when a capacity factor table does not hold exactly one entry per (hour, site).
type RowCountMismatchError struct {
	Table    string
	Expected int
	Actual   int
}

func (e *RowCountMismatchError) Error() string {
	return fmt.Sprintf("table %s: expected %d entries (hours x sites), got %d", e.Table, e.Expected, e.Actual)
}

// InvalidParameterError is returned when a loaded value breaks a data invariant, e.g. an efficiency outside (0,1].
type InvalidParameterError struct {
	Table  string
	Key    string
	Value  float64
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s[%s] = %g: %s", e.Table, e.Key, e.Value, e.Reason)
}
