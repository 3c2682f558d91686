package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/cepro/capacityplanner/milp"
)

// Options are the numeric controls handed to a solver.
type Options struct {
	// RelativeGap is the relative optimality gap at which the search stops, as a fraction.
	RelativeGap float64 `yaml:"relativeGap"`

	// TimeLimit bounds the wall time of the solve. Zero means no limit.
	TimeLimit time.Duration `yaml:"timeLimit"`

	// Threads is a hint; zero leaves the solver's default.
	Threads int `yaml:"threads"`
}

func DefaultOptions() Options {
	return Options{
		RelativeGap: 1e-4,
	}
}

// Status is the solver's own verdict on how the run went.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusAborted Status = "aborted"
	StatusError   Status = "error"
)

// TerminationCondition is why the solver stopped.
type TerminationCondition string

const (
	Optimal               TerminationCondition = "optimal"
	Infeasible            TerminationCondition = "infeasible"
	Unbounded             TerminationCondition = "unbounded"
	InfeasibleOrUnbounded TerminationCondition = "infeasibleOrUnbounded"
	MaxTimeLimit          TerminationCondition = "maxTimeLimit"
	Other                 TerminationCondition = "other"
)

// Solution is what a solver returns. Values holds one entry per model column when the solver produced a point.
type Solution struct {
	Status      Status
	Termination TerminationCondition

	// Message is the solver's raw status text, kept verbatim for reporting.
	Message string

	Objective float64
	Values    []float64
}

// Value returns the solved value of v.
func (s *Solution) Value(v milp.Var) float64 {
	return s.Values[v.Index()]
}

// Solver hands a model to a MILP solver and waits for the result.
type Solver interface {
	Solve(ctx context.Context, m *milp.Model, opts Options) (*Solution, error)
}

// InfeasibleModelError reports a model the solver proved infeasible. No relaxation is attempted.
type InfeasibleModelError struct {
	Status      Status
	Termination TerminationCondition
	Message     string
}

func (e *InfeasibleModelError) Error() string {
	return fmt.Sprintf("model is infeasible (status %s, termination %s): %s", e.Status, e.Termination, e.Message)
}

// SolverNonOptimalError reports any outcome other than optimal or infeasible, with the solver's status verbatim.
type SolverNonOptimalError struct {
	Status      Status
	Termination TerminationCondition
	Message     string
}

func (e *SolverNonOptimalError) Error() string {
	return fmt.Sprintf("solver did not reach an optimum (status %s, termination %s): %s", e.Status, e.Termination, e.Message)
}

// Interpret classifies a solution: nil when it is optimal, *InfeasibleModelError when the model was proven
// infeasible, *SolverNonOptimalError otherwise. A suboptimal point returned at a time limit is still an error.
func Interpret(sol *Solution, numVars int) error {
	switch {
	case sol.Status == StatusOK && sol.Termination == Optimal:
		if len(sol.Values) != numVars {
			return &SolverNonOptimalError{
				Status:      sol.Status,
				Termination: sol.Termination,
				Message:     fmt.Sprintf("expected %d values, got %d: %s", numVars, len(sol.Values), sol.Message),
			}
		}
		return nil
	case sol.Termination == Infeasible || sol.Termination == InfeasibleOrUnbounded:
		return &InfeasibleModelError{Status: sol.Status, Termination: sol.Termination, Message: sol.Message}
	}
	return &SolverNonOptimalError{Status: sol.Status, Termination: sol.Termination, Message: sol.Message}
}
