package variable

import (
	"fmt"
	"strings"
)

// CircularDependencyError is returned when the computed variables cannot be
// fully ordered.
type CircularDependencyError struct {
	IDs []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected among: %s", strings.Join(e.IDs, ", "))
}

// FormulaEvaluationError records a single computed variable whose formula could
// not be evaluated. Its value was forced to 0.
type FormulaEvaluationError struct {
	VariableID string
	Formula    string
	Err        error
}

func (e *FormulaEvaluationError) Error() string {
	return fmt.Sprintf("formula error in '%s' (%s): %v", e.VariableID, e.Formula, e.Err)
}

func (e *FormulaEvaluationError) Unwrap() error { return e.Err }

// Validation is the authoring-time result of checking a formula.
type Validation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}
