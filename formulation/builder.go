package formulation

import (
	"fmt"
	"log/slog"

	"github.com/cepro/capacityplanner/milp"
	"github.com/cepro/capacityplanner/params"
	"github.com/cepro/capacityplanner/sets"
	"github.com/dustin/go-humanize"
)

// Formulation is the capacity expansion and dispatch model built over one registry and parameter store.
type Formulation struct {
	Model    *milp.Model
	Registry *sets.Registry
	Store    *params.Store
	Vars     *Variables

	// Costs holds the objective broken down by component. Model's objective is their sum.
	Costs []CostTerm

	// Families counts the constraint instances per family.
	Families map[string]int
}

// Build declares the variables, then the objective, then the constraints. A missing parameter or a reference to
// an undeclared variable fails the build.
func Build(reg *sets.Registry, store *params.Store) (*Formulation, error) {
	logger := slog.Default().With("hours", reg.NumHours(), "techs", len(reg.StorageTechs()))

	capCCUpper, err := store.CapCCUpperBound(reg)
	if err != nil {
		return nil, fmt.Errorf("compute CapCC bound: %w", err)
	}

	m := milp.NewModel()
	vars, err := declareVariables(m, reg, capCCUpper)
	if err != nil {
		return nil, err
	}

	bind := func(rule string) *binder {
		return &binder{reg: reg, store: store, vars: vars, rule: rule}
	}

	costs, err := buildCosts(bind)
	if err != nil {
		return nil, err
	}
	var objective milp.Expr
	for _, c := range costs {
		objective.AddExpr(1, c.Expr)
	}
	if err := m.SetObjective(objective); err != nil {
		return nil, fmt.Errorf("set objective: %w", err)
	}

	counts, err := addConstraints(m, reg, bind)
	if err != nil {
		return nil, err
	}

	logger.Info("Built model",
		"variables", humanize.Comma(int64(m.NumVars())),
		"binaries", humanize.Comma(int64(m.NumBinaries())),
		"constraints", humanize.Comma(int64(m.NumConstraints())),
		"nonzeros", humanize.Comma(int64(m.NumNonZeros())),
		"capCCUpper", capCCUpper,
	)

	return &Formulation{
		Model:    m,
		Registry: reg,
		Store:    store,
		Vars:     vars,
		Costs:    costs,
		Families: counts,
	}, nil
}

// CostBreakdown evaluates every cost term at values.
func (f *Formulation) CostBreakdown(values []float64) map[string]float64 {
	out := make(map[string]float64, len(f.Costs))
	for _, c := range f.Costs {
		out[c.Name] = c.Expr.Eval(values)
	}
	return out
}

// TotalCost evaluates the objective at values.
func (f *Formulation) TotalCost(values []float64) float64 {
	return f.Model.Objective().Eval(values)
}

// Verify returns every constraint or bound that values violate by more than tol.
func (f *Formulation) Verify(values []float64, tol float64) ([]milp.Violation, error) {
	if len(values) != f.Model.NumVars() {
		return nil, fmt.Errorf("verify solution: expected %d values, got %d", f.Model.NumVars(), len(values))
	}
	return f.Model.Violations(values, tol), nil
}
