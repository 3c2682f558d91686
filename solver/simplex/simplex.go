// Package simplex is an in-process MILP solver: depth-first branch and bound over a dense two-phase simplex. It
// suits small models such as regression fixtures; full-year models belong with an external solver.
package simplex

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cepro/capacityplanner/milp"
	"github.com/cepro/capacityplanner/solver"
	"github.com/dustin/go-humanize"
)

// DefaultMaxCells caps the dense constraint matrix, rows times columns, the solver accepts.
const DefaultMaxCells = 2_000_000

const (
	simplexTol  = 1e-9
	integralTol = 1e-6
	boundTol    = 1e-9
	absoluteGap = 1e-9
)

// Solver solves models in process. Threads is ignored.
type Solver struct {
	MaxCells int

	relaxation func(ctx context.Context, m *milp.Model, lo, hi []float64) relaxed
}

func New() *Solver {
	return &Solver{MaxCells: DefaultMaxCells}
}

type node struct {
	lo, hi []float64
}

// Solve runs branch and bound until the tree is exhausted, the time limit passes or ctx is cancelled. Nodes whose
// relaxation fails numerically are skipped, and the result then cannot claim optimality.
func (s *Solver) Solve(ctx context.Context, m *milp.Model, opts solver.Options) (*solver.Solution, error) {
	logger := slog.Default().With("solver", "simplex")

	rows, cols := m.NumConstraints(), m.NumVars()
	for _, v := range m.Variables() {
		if !math.IsInf(v.Upper, 1) {
			rows++
		}
	}
	cells := rows * (cols + rows)
	if s.MaxCells > 0 && cells > s.MaxCells {
		return nil, fmt.Errorf("model too large for in-process solve: %s dense cells, limit %s",
			humanize.Comma(int64(cells)), humanize.Comma(int64(s.MaxCells)))
	}

	solveCtx := ctx
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}
	relax := s.relaxation
	if relax == nil {
		relax = s.relax
	}

	root := node{lo: make([]float64, cols), hi: make([]float64, cols)}
	for i, v := range m.Variables() {
		root.lo[i], root.hi[i] = v.Lower, v.Upper
	}

	var (
		incumbent []float64
		best      = math.Inf(1)
		explored  int
		failed    int
		lastErr   error
		stack     = []node{root}
	)
	start := time.Now()

	stopped := func() (*solver.Solution, error) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("branch and bound: %w", err)
		}
		logger.Warn("Time limit reached", "nodes", explored, "best", best)
		if incumbent != nil {
			finalize(m, incumbent)
		}
		return &solver.Solution{
			Status:      solver.StatusAborted,
			Termination: solver.MaxTimeLimit,
			Message:     fmt.Sprintf("time limit reached after %d nodes", explored),
			Objective:   best,
			Values:      incumbent,
		}, nil
	}

	for len(stack) > 0 {
		if solveCtx.Err() != nil {
			return stopped()
		}

		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		explored++

		// a relaxation still running when the solve stops is abandoned and its result dropped
		done := make(chan relaxed, 1)
		go func() {
			done <- relax(solveCtx, m, n.lo, n.hi)
		}()
		var r relaxed
		select {
		case r = <-done:
		case <-solveCtx.Done():
			return stopped()
		}

		if r.err != nil {
			if solveCtx.Err() != nil {
				return stopped()
			}
			failed++
			lastErr = r.err
			logger.Warn("Skipping node after numerical failure", "node", explored, "error", r.err)
			continue
		}
		switch r.result {
		case infeasible:
			continue
		case unbounded:
			if explored == 1 {
				return &solver.Solution{Status: solver.StatusWarning, Termination: solver.Unbounded, Message: "relaxation is unbounded"}, nil
			}
			continue
		}
		values := r.values

		bound := m.Objective().Eval(values)
		if bound >= best-math.Max(absoluteGap, opts.RelativeGap*math.Abs(best)) {
			continue
		}

		branch := mostFractional(m, values)
		if branch < 0 {
			best = bound
			incumbent = values
			logger.Debug("New incumbent", "objective", best, "nodes", explored)
			continue
		}

		down := node{lo: clone(n.lo), hi: clone(n.hi)}
		down.hi[branch] = 0
		up := node{lo: clone(n.lo), hi: clone(n.hi)}
		up.lo[branch] = 1
		// the child nearer the relaxed value is explored first
		if values[branch] >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	if incumbent == nil {
		if failed > 0 {
			return &solver.Solution{
				Status:      solver.StatusError,
				Termination: solver.Other,
				Message:     fmt.Sprintf("no integer feasible point after %d nodes, %d failed: %v", explored, failed, lastErr),
			}, nil
		}
		return &solver.Solution{
			Status:      solver.StatusWarning,
			Termination: solver.Infeasible,
			Message:     fmt.Sprintf("no integer feasible point after %d nodes", explored),
		}, nil
	}

	finalize(m, incumbent)
	if failed > 0 {
		return &solver.Solution{
			Status:      solver.StatusWarning,
			Termination: solver.Other,
			Message:     fmt.Sprintf("best point after %d nodes is not proven optimal, %d failed: %v", explored, failed, lastErr),
			Objective:   m.Objective().Eval(incumbent),
			Values:      incumbent,
		}, nil
	}
	sol := &solver.Solution{
		Status:      solver.StatusOK,
		Termination: solver.Optimal,
		Message:     fmt.Sprintf("optimal after %d nodes", explored),
		Objective:   m.Objective().Eval(incumbent),
		Values:      incumbent,
	}
	logger.Info("Finished solve", "objective", sol.Objective, "nodes", explored, "duration", time.Since(start).Round(time.Millisecond))
	return sol, nil
}

// relax solves the LP relaxation of m under the given bounds.
func (s *Solver) relax(ctx context.Context, m *milp.Model, lo, hi []float64) relaxed {
	sf, result, err := buildStandardForm(m, lo, hi, boundTol)
	if err != nil || result != solved {
		return relaxed{result: result, err: err}
	}
	if sf.a == nil {
		return relaxed{values: sf.point(nil)}
	}
	values, result, err := sf.solveTableau(ctx, simplexTol)
	return relaxed{values: values, result: result, err: err}
}

// mostFractional returns the binary variable furthest from integral, or -1 when all are integral.
func mostFractional(m *milp.Model, values []float64) int {
	branch, worst := -1, integralTol
	for i, v := range m.Variables() {
		if v.Kind != milp.Binary {
			continue
		}
		frac := math.Abs(values[i] - math.Round(values[i]))
		if frac > worst {
			branch, worst = i, frac
		}
	}
	return branch
}

// finalize rounds binaries and clips round-off outside the bounds.
func finalize(m *milp.Model, values []float64) {
	for i, v := range m.Variables() {
		if v.Kind == milp.Binary {
			values[i] = math.Round(values[i])
		}
		values[i] = math.Min(math.Max(values[i], v.Lower), v.Upper)
	}
}

func clone(s []float64) []float64 {
	return append([]float64(nil), s...)
}
