package simplex

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/cepro/capacityplanner/formulation"
	"github.com/cepro/capacityplanner/milp"
	"github.com/cepro/capacityplanner/params"
	"github.com/cepro/capacityplanner/sets"
	"github.com/cepro/capacityplanner/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type varSpec struct {
	name  string
	lower float64
	upper float64
	kind  milp.VarKind
	cost  float64
}

type rowSpec struct {
	coefs []float64
	sense milp.Sense
	rhs   float64
}

func buildModel(t *testing.T, vars []varSpec, rows []rowSpec) *milp.Model {
	m := milp.NewModel()
	handles := make([]milp.Var, len(vars))
	var obj milp.Expr
	for i, v := range vars {
		h, err := m.AddVar(v.name, v.lower, v.upper, v.kind)
		require.NoError(t, err)
		handles[i] = h
		obj.Add(v.cost, h)
	}
	require.NoError(t, m.SetObjective(obj))
	for i, r := range rows {
		var e milp.Expr
		for j, c := range r.coefs {
			e.Add(c, handles[j])
		}
		require.NoError(t, m.AddConstraint(formulation.VarName("row", i), e, r.sense, r.rhs))
	}
	return m
}

func TestSolveSmallModels(t *testing.T) {
	inf := math.Inf(1)

	type subTest struct {
		name                string
		vars                []varSpec
		rows                []rowSpec
		expectedTermination solver.TerminationCondition
		expectedObjective   float64
		expectedValues      []float64
	}

	subTests := []subTest{
		{
			name: "linear program",
			vars: []varSpec{
				{"x", 0, inf, milp.Continuous, 1},
				{"y", 0, inf, milp.Continuous, 1},
			},
			rows: []rowSpec{
				{[]float64{1, 2}, milp.GreaterEqual, 2},
				{[]float64{3, 1}, milp.GreaterEqual, 3},
			},
			expectedTermination: solver.Optimal,
			expectedObjective:   1.4,
			expectedValues:      []float64{0.8, 0.6},
		},
		{
			name: "knapsack",
			vars: []varSpec{
				{"a", 0, 1, milp.Binary, -5},
				{"b", 0, 1, milp.Binary, -4},
			},
			rows: []rowSpec{
				{[]float64{6, 4}, milp.LessEqual, 9},
			},
			expectedTermination: solver.Optimal,
			expectedObjective:   -5,
			expectedValues:      []float64{1, 0},
		},
		{
			name: "free variable",
			vars: []varSpec{
				{"z", math.Inf(-1), inf, milp.Continuous, 1},
			},
			rows: []rowSpec{
				{[]float64{1}, milp.GreaterEqual, -3},
			},
			expectedTermination: solver.Optimal,
			expectedObjective:   -3,
			expectedValues:      []float64{-3},
		},
		{
			name: "upper bounded only",
			vars: []varSpec{
				{"u", math.Inf(-1), 4, milp.Continuous, -1},
			},
			rows: []rowSpec{
				{[]float64{1}, milp.GreaterEqual, 1},
			},
			expectedTermination: solver.Optimal,
			expectedObjective:   -4,
			expectedValues:      []float64{4},
		},
		{
			name: "infeasible",
			vars: []varSpec{
				{"x", 0, 1, milp.Continuous, 1},
			},
			rows: []rowSpec{
				{[]float64{1}, milp.GreaterEqual, 2},
			},
			expectedTermination: solver.Infeasible,
		},
		{
			name: "integer infeasible",
			vars: []varSpec{
				{"a", 0, 1, milp.Binary, 0},
			},
			rows: []rowSpec{
				{[]float64{2}, milp.Equal, 1},
			},
			expectedTermination: solver.Infeasible,
		},
		{
			name: "repeated equality rows",
			vars: []varSpec{
				{"x", 0, inf, milp.Continuous, 1},
				{"y", 0, inf, milp.Continuous, 2},
			},
			rows: []rowSpec{
				{[]float64{1, 1}, milp.Equal, 2},
				{[]float64{1, 1}, milp.Equal, 2},
				{[]float64{2, 2}, milp.Equal, 4},
			},
			expectedTermination: solver.Optimal,
			expectedObjective:   2,
			expectedValues:      []float64{2, 0},
		},
		{
			name: "conflicting equality rows",
			vars: []varSpec{
				{"x", 0, inf, milp.Continuous, 1},
				{"y", 0, inf, milp.Continuous, 1},
			},
			rows: []rowSpec{
				{[]float64{1, 1}, milp.Equal, 2},
				{[]float64{2, 2}, milp.Equal, 6},
			},
			expectedTermination: solver.Infeasible,
		},
		{
			name: "unbounded",
			vars: []varSpec{
				{"x", 0, inf, milp.Continuous, -1},
			},
			rows: []rowSpec{
				{[]float64{1}, milp.GreaterEqual, 1},
			},
			expectedTermination: solver.Unbounded,
		},
	}
	for _, subTest := range subTests {
		t.Run(subTest.name, func(t *testing.T) {
			m := buildModel(t, subTest.vars, subTest.rows)

			sol, err := New().Solve(context.Background(), m, solver.DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, subTest.expectedTermination, sol.Termination)
			if subTest.expectedTermination != solver.Optimal {
				assert.Error(t, solver.Interpret(sol, m.NumVars()))
				return
			}
			require.NoError(t, solver.Interpret(sol, m.NumVars()))
			assert.InDelta(t, subTest.expectedObjective, sol.Objective, 1e-7)
			assert.InDeltaSlice(t, subTest.expectedValues, sol.Values, 1e-7)
		})
	}
}

func TestSolveRefusesLargeModels(t *testing.T) {
	m := buildModel(t,
		[]varSpec{{"x", 0, 1, milp.Continuous, 1}, {"y", 0, 1, milp.Continuous, 1}},
		[]rowSpec{{[]float64{1, 1}, milp.GreaterEqual, 1}},
	)
	s := &Solver{MaxCells: 4}
	_, err := s.Solve(context.Background(), m, solver.DefaultOptions())
	assert.ErrorContains(t, err, "too large")
}

func TestSolveCancelled(t *testing.T) {
	m := buildModel(t,
		[]varSpec{{"x", 0, 1, milp.Continuous, 1}},
		[]rowSpec{{[]float64{1}, milp.GreaterEqual, 0.5}},
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Solve(ctx, m, solver.DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

const fixtureDir = "../../testdata/two_hour"

func buildFixture(t *testing.T, target float64) *formulation.Formulation {
	return buildFixtureWith(t, target, []sets.StorageTech{sets.LiIon}, "storage_data.csv")
}

// buildFixtureWith builds the two hour fixture with the given technologies and storage data file.
func buildFixtureWith(t *testing.T, target float64, techs []sets.StorageTech, storageData string) *formulation.Formulation {
	reg, err := sets.Load(sets.Files{
		SolarSites: filepath.Join(fixtureDir, "solar_sites.txt"),
		WindSites:  filepath.Join(fixtureDir, "wind_sites.txt"),
		Properties: filepath.Join(fixtureDir, "site_properties.txt"),
	}, 2, techs)
	require.NoError(t, err)

	scalars := params.DefaultScalars()
	scalars.GenMixTarget = target
	store, err := params.Load(params.Files{
		Load:            filepath.Join(fixtureDir, "load_hourly.csv"),
		Nuclear:         filepath.Join(fixtureDir, "nuclear_hourly.csv"),
		LargeHydro:      filepath.Join(fixtureDir, "large_hydro_hourly.csv"),
		OtherRenewables: filepath.Join(fixtureDir, "other_renewables_hourly.csv"),
		CFSolar:         filepath.Join(fixtureDir, "cf_solar.csv"),
		CFWind:          filepath.Join(fixtureDir, "cf_wind.csv"),
		SolarProperties: filepath.Join(fixtureDir, "solar_properties.csv"),
		WindProperties:  filepath.Join(fixtureDir, "wind_properties.csv"),
		StorageData:     filepath.Join(fixtureDir, storageData),
	}, reg, scalars)
	require.NoError(t, err)

	f, err := formulation.Build(reg, store)
	require.NoError(t, err)
	return f
}

func TestTwoHourFixtureOptimum(t *testing.T) {
	f := buildFixture(t, 1.0)

	opts := solver.DefaultOptions()
	opts.RelativeGap = 0
	sol, err := New().Solve(context.Background(), f.Model, opts)
	require.NoError(t, err)
	require.NoError(t, solver.Interpret(sol, f.Model.NumVars()))

	expectedCost := (1000*params.CapitalRecoveryFactor(0.06, 30)+10)*20 + 5000*params.CapitalRecoveryFactor(0.06, 10) + 55
	assert.InDelta(t, expectedCost, sol.Objective, 1e-6)

	expected := map[string]float64{
		"Ypv[s1]":            0.2,
		"Ywind[w1]":          0,
		"Ystorage[Li-Ion,1]": 1,
		"Ystorage[Li-Ion,2]": 0,
		"PC[1,Li-Ion]":       10,
		"PC[2,Li-Ion]":       0,
		"PD[1,Li-Ion]":       0,
		"PD[2,Li-Ion]":       10,
		"SOC[1,Li-Ion]":      10,
		"SOC[2,Li-Ion]":      0,
		"Pcha[Li-Ion]":       10,
		"Pdis[Li-Ion]":       10,
		"Ecap[Li-Ion]":       10,
		"GenPV[1]":           20,
		"GenPV[2]":           0,
		"CurtPV[1]":          0,
		"CurtPV[2]":          0,
		"GenWind[1]":         0,
		"CurtWind[1]":        0,
		"GenCC[1]":           0,
		"GenCC[2]":           0,
		"CapCC":              0,
	}
	for name, value := range expected {
		v, ok := f.Model.VarByName(name)
		require.True(t, ok, name)
		assert.InDelta(t, value, sol.Value(v), 1e-6, name)
	}

	violations, err := f.Verify(sol.Values, 1e-6)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestSolvedFixtureProperties(t *testing.T) {
	f := buildFixture(t, 1.0)

	sol, err := New().Solve(context.Background(), f.Model, solver.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, solver.Interpret(sol, f.Model.NumVars()))

	reg := f.Registry
	for _, h := range reg.Hours() {
		assert.InDelta(t, 0, sol.Value(f.Vars.GenCC[h]), 1e-9, "GenCC[%d]", h)

		c, ok := f.Model.Constraint(formulation.VarName(formulation.PowerBalance, h))
		require.True(t, ok)
		assert.InDelta(t, 0, c.Residual(sol.Values), 1e-6)

		for _, j := range reg.StorageTechs() {
			k := formulation.HourTech{Hour: h, Tech: j}
			pc, pd := sol.Value(f.Vars.PC[k]), sol.Value(f.Vars.PD[k])
			assert.False(t, pc > 1e-6 && pd > 1e-6, "simultaneous charge and discharge at %v", k)
		}
	}
	for _, j := range reg.Coupled() {
		assert.InDelta(t, sol.Value(f.Vars.Pcha[j]), sol.Value(f.Vars.Pdis[j]), 1e-9)
	}
}

func knapsack(t *testing.T) *milp.Model {
	return buildModel(t,
		[]varSpec{{"a", 0, 1, milp.Binary, -5}, {"b", 0, 1, milp.Binary, -4}},
		[]rowSpec{{[]float64{6, 4}, milp.LessEqual, 9}},
	)
}

func TestSolveStopsWhileRelaxationRuns(t *testing.T) {
	type subTest struct {
		name      string
		timeLimit time.Duration
		cancel    bool
	}

	subTests := []subTest{
		{name: "time limit", timeLimit: 50 * time.Millisecond},
		{name: "cancelled", cancel: true},
	}
	for _, subTest := range subTests {
		t.Run(subTest.name, func(t *testing.T) {
			release := make(chan struct{})
			t.Cleanup(func() { close(release) })

			// the relaxation ignores ctx, as a stalled pivot loop would
			s := New()
			s.relaxation = func(context.Context, *milp.Model, []float64, []float64) relaxed {
				<-release
				return relaxed{result: infeasible}
			}

			ctx := context.Background()
			if subTest.cancel {
				var cancel context.CancelFunc
				ctx, cancel = context.WithCancel(ctx)
				time.AfterFunc(50*time.Millisecond, cancel)
			}
			opts := solver.DefaultOptions()
			opts.TimeLimit = subTest.timeLimit

			m := knapsack(t)
			start := time.Now()
			sol, err := s.Solve(ctx, m, opts)
			assert.Less(t, time.Since(start), 5*time.Second)

			if subTest.cancel {
				assert.ErrorIs(t, err, context.Canceled)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, solver.MaxTimeLimit, sol.Termination)
			var nonOptimal *solver.SolverNonOptimalError
			assert.True(t, errors.As(solver.Interpret(sol, m.NumVars()), &nonOptimal))
		})
	}
}

func TestSolveSkipsFailedNodes(t *testing.T) {
	type subTest struct {
		name                string
		fails               func(lo, hi []float64) bool
		expectedStatus      solver.Status
		expectedObjective   float64
		expectedValues      []float64
		expectedMessagePart string
	}

	subTests := []subTest{
		{
			// the optimum a=1, b=0 sits behind the failing node
			name:                "best point survives",
			fails:               func(lo, hi []float64) bool { return hi[1] == 0 },
			expectedStatus:      solver.StatusWarning,
			expectedObjective:   -4,
			expectedValues:      []float64{0, 1},
			expectedMessagePart: "not proven optimal",
		},
		{
			name:                "every node fails",
			fails:               func(lo, hi []float64) bool { return true },
			expectedStatus:      solver.StatusError,
			expectedMessagePart: "no integer feasible point after 1 nodes, 1 failed: singular basis",
		},
	}
	for _, subTest := range subTests {
		t.Run(subTest.name, func(t *testing.T) {
			s := New()
			s.relaxation = func(ctx context.Context, m *milp.Model, lo, hi []float64) relaxed {
				if subTest.fails(lo, hi) {
					return relaxed{err: errors.New("singular basis")}
				}
				return s.relax(ctx, m, lo, hi)
			}

			m := knapsack(t)
			sol, err := s.Solve(context.Background(), m, solver.DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, subTest.expectedStatus, sol.Status)
			assert.Equal(t, solver.Other, sol.Termination)
			assert.Contains(t, sol.Message, subTest.expectedMessagePart)

			var nonOptimal *solver.SolverNonOptimalError
			assert.True(t, errors.As(solver.Interpret(sol, m.NumVars()), &nonOptimal))
			if subTest.expectedValues != nil {
				assert.InDelta(t, subTest.expectedObjective, sol.Objective, 1e-9)
				assert.InDeltaSlice(t, subTest.expectedValues, sol.Values, 1e-9)
			}
		})
	}
}

func TestIndependentRows(t *testing.T) {
	type subTest struct {
		name               string
		a                  []float64
		b                  []float64
		expectedKeep       []int
		expectedConsistent bool
	}

	subTests := []subTest{
		{"full rank", []float64{1, 0, 0, 1}, []float64{1, 2}, []int{0, 1}, true},
		{"repeated row", []float64{1, 1, 1, 1}, []float64{2, 2}, []int{0}, true},
		{"scaled row", []float64{1, 2, 3, 6}, []float64{1, 3}, []int{0}, true},
		{"conflicting row", []float64{1, 1, 2, 2}, []float64{2, 5}, []int{0}, false},
	}
	for _, subTest := range subTests {
		t.Run(subTest.name, func(t *testing.T) {
			a := mat.NewDense(len(subTest.b), len(subTest.a)/len(subTest.b), subTest.a)
			keep, consistent := independentRows(a, subTest.b)
			assert.Equal(t, subTest.expectedConsistent, consistent)
			if consistent {
				assert.Equal(t, subTest.expectedKeep, keep)
			}
		})
	}
}

func TestTwoHourFixtureTimeLimit(t *testing.T) {
	f := buildFixture(t, 1.0)

	opts := solver.DefaultOptions()
	opts.TimeLimit = time.Nanosecond
	sol, err := New().Solve(context.Background(), f.Model, opts)
	require.NoError(t, err)
	assert.Equal(t, solver.StatusAborted, sol.Status)
	assert.Equal(t, solver.MaxTimeLimit, sol.Termination)

	var nonOptimal *solver.SolverNonOptimalError
	require.True(t, errors.As(solver.Interpret(sol, f.Model.NumVars()), &nonOptimal))
	assert.Equal(t, solver.MaxTimeLimit, nonOptimal.Termination)
}

func TestLossyFixtureOptimum(t *testing.T) {
	f := buildFixtureWith(t, 1.0, []sets.StorageTech{sets.LiIon}, "storage_data_lossy.csv")

	opts := solver.DefaultOptions()
	opts.RelativeGap = 0
	sol, err := New().Solve(context.Background(), f.Model, opts)
	require.NoError(t, err)
	require.NoError(t, solver.Interpret(sol, f.Model.NumVars()))

	// Eff 0.81 charges at 0.9 and draws 1/0.9 per unit discharged
	charged := 10 / 0.81
	expected := map[string]float64{
		"PC[1,Li-Ion]":  charged,
		"PC[2,Li-Ion]":  0,
		"PD[1,Li-Ion]":  0,
		"PD[2,Li-Ion]":  10,
		"SOC[1,Li-Ion]": 100.0 / 9,
		"SOC[2,Li-Ion]": 0,
		"Ecap[Li-Ion]":  100.0 / 9,
		"Pcha[Li-Ion]":  charged,
		"Pdis[Li-Ion]":  charged,
		"Ypv[s1]":       (10 + charged) / 100,
		"GenPV[1]":      10 + charged,
		"GenCC[1]":      0,
		"GenCC[2]":      0,
	}
	for name, value := range expected {
		v, ok := f.Model.VarByName(name)
		require.True(t, ok, name)
		assert.InDelta(t, value, sol.Value(v), 1e-6, name)
	}

	violations, err := f.Verify(sol.Values, 1e-6)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestIdenticalTechsFixture(t *testing.T) {
	f := buildFixtureWith(t, 1.0, []sets.StorageTech{sets.LiIon, sets.CAES}, "storage_data_twin.csv")

	opts := solver.DefaultOptions()
	opts.RelativeGap = 0
	sol, err := New().Solve(context.Background(), f.Model, opts)
	require.NoError(t, err)
	require.NoError(t, solver.Interpret(sol, f.Model.NumVars()))

	// a second technology can only match the single technology optimum
	single := (1000*params.CapitalRecoveryFactor(0.06, 30)+10)*20 + 5000*params.CapitalRecoveryFactor(0.06, 10) + 55
	assert.LessOrEqual(t, sol.Objective, single+1e-6)

	discharged := 0.0
	for _, j := range f.Registry.StorageTechs() {
		discharged += sol.Value(f.Vars.PD[formulation.HourTech{Hour: 2, Tech: j}])
	}
	assert.InDelta(t, 10, discharged, 1e-6)

	violations, err := f.Verify(sol.Values, 1e-6)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestMultiTechFixtureAtPartialTarget(t *testing.T) {
	objectives := make(map[float64]float64)
	for _, target := range []float64{0.5, 1.0} {
		f := buildFixtureWith(t, target, sets.DefaultStorageTechs, "storage_data_multi.csv")

		opts := solver.DefaultOptions()
		opts.RelativeGap = 0
		opts.TimeLimit = 5 * time.Minute
		sol, err := New().Solve(context.Background(), f.Model, opts)
		require.NoError(t, err)
		require.NoError(t, solver.Interpret(sol, f.Model.NumVars()), "target %g", target)
		objectives[target] = sol.Objective

		violations, err := f.Verify(sol.Values, 1e-6)
		require.NoError(t, err)
		assert.Empty(t, violations, "target %g", target)

		reg := f.Registry
		var gas, served float64
		for _, h := range reg.Hours() {
			c, ok := f.Model.Constraint(formulation.VarName(formulation.PowerBalance, h))
			require.True(t, ok)
			assert.InDelta(t, 0, c.Residual(sol.Values), 1e-6)

			gas += sol.Value(f.Vars.GenCC[h])
			served += 10
			for _, j := range reg.StorageTechs() {
				k := formulation.HourTech{Hour: h, Tech: j}
				pc, pd := sol.Value(f.Vars.PC[k]), sol.Value(f.Vars.PD[k])
				assert.False(t, pc > 1e-6 && pd > 1e-6, "simultaneous charge and discharge at %v", k)
				served += pc - pd
			}
		}
		assert.LessOrEqual(t, gas, (1-target)*served+1e-6, "target %g", target)

		for _, j := range reg.Coupled() {
			assert.InDelta(t, sol.Value(f.Vars.Pcha[j]), sol.Value(f.Vars.Pdis[j]), 1e-9)
		}
	}
	assert.LessOrEqual(t, objectives[0.5], objectives[1.0]+1e-6)
}
