package milp

import "fmt"

// UnboundReferenceError is returned when an expression refers to a variable the model does not hold, or a
// builder asks for a variable that was never declared.
type UnboundReferenceError struct {
	Context string
	Name    string
}

func (e *UnboundReferenceError) Error() string {
	return fmt.Sprintf("%s: unbound variable %s", e.Context, e.Name)
}

// DuplicateNameError is returned when a variable or constraint name is reused.
type DuplicateNameError struct {
	Kind string
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate %s name %q", e.Kind, e.Name)
}

// InvalidCoefficientError is returned for NaN or infinite coefficients.
type InvalidCoefficientError struct {
	Context  string
	Variable string
	Value    float64
}

func (e *InvalidCoefficientError) Error() string {
	if e.Variable == "" {
		return fmt.Sprintf("%s: invalid constant %g", e.Context, e.Value)
	}
	return fmt.Sprintf("%s: invalid coefficient %g on %s", e.Context, e.Value, e.Variable)
}
