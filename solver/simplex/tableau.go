package simplex

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	pivotTol       = 1e-9
	ratioTol       = 1e-12
	phaseOneTol    = 1e-7
	ctxCheckPivots = 64
)

// tableau is a dense two-phase simplex tableau. Columns are the structural columns followed by one artificial per
// row and the right hand side. Pivots follow Bland's rule, so degenerate vertices cannot cycle.
type tableau struct {
	rows  [][]float64
	obj   []float64 // reduced costs, with minus the objective value in the last entry
	basis []int
}

func (tb *tableau) rhs() int { return len(tb.obj) - 1 }

func (tb *tableau) pivot(r, c int) {
	pr := tb.rows[r]
	floats.Scale(1/pr[c], pr)
	for i, row := range tb.rows {
		if i != r && row[c] != 0 {
			floats.AddScaled(row, -row[c], pr)
		}
	}
	if tb.obj[c] != 0 {
		floats.AddScaled(tb.obj, -tb.obj[c], pr)
	}
	tb.basis[r] = c
}

// run pivots until no column below limit has a negative reduced cost. It reports false when the entering column
// has no positive entry, that is when the objective falls without bound.
func (tb *tableau) run(ctx context.Context, limit int, tol float64) (bool, error) {
	rhs := tb.rhs()
	for iter := 0; ; iter++ {
		if iter%ctxCheckPivots == 0 {
			if err := ctx.Err(); err != nil {
				return false, err
			}
		}

		entering := -1
		for j := 0; j < limit; j++ {
			if tb.obj[j] < -tol {
				entering = j
				break
			}
		}
		if entering < 0 {
			return true, nil
		}

		leaving := -1
		var best float64
		for i, row := range tb.rows {
			if row[entering] <= pivotTol {
				continue
			}
			ratio := math.Max(row[rhs], 0) / row[entering]
			switch {
			case leaving < 0, ratio < best-ratioTol:
				leaving, best = i, ratio
			case ratio <= best+ratioTol && tb.basis[i] < tb.basis[leaving]:
				leaving = i
			}
		}
		if leaving < 0 {
			return false, nil
		}
		tb.pivot(leaving, entering)
	}
}

// solveTableau solves the standard form with the two-phase tableau method, checking ctx as it pivots.
func (sf *standardForm) solveTableau(ctx context.Context, tol float64) ([]float64, outcome, error) {
	m, n := sf.a.Dims()
	width := n + m + 1
	rhs := width - 1

	tb := &tableau{
		rows:  make([][]float64, m),
		obj:   make([]float64, width),
		basis: make([]int, m),
	}
	total := 0.0
	for i := range tb.rows {
		row := make([]float64, width)
		copy(row, sf.a.RawRowView(i))
		row[n+i] = 1
		row[rhs] = sf.b[i]
		tb.rows[i] = row
		tb.basis[i] = n + i
		total += sf.b[i]

		// phase one minimises the sum of the artificials
		floats.Sub(tb.obj[:n], row[:n])
		tb.obj[rhs] -= row[rhs]
	}

	ok, err := tb.run(ctx, n+m, tol)
	if err != nil {
		return nil, solved, err
	}
	if !ok {
		return nil, solved, errors.New("tableau: phase one is unbounded")
	}
	if -tb.obj[rhs] > phaseOneTol*math.Max(1, total) {
		return nil, infeasible, nil
	}

	// artificials left in the basis sit at zero; swap them for any structural column in their row
	for i, row := range tb.rows {
		if tb.basis[i] < n {
			continue
		}
		for j := 0; j < n; j++ {
			if math.Abs(row[j]) > pivotTol {
				tb.pivot(i, j)
				break
			}
		}
	}

	for j := range tb.obj {
		tb.obj[j] = 0
	}
	copy(tb.obj, sf.c)
	for i, b := range tb.basis {
		if b < n && tb.obj[b] != 0 {
			floats.AddScaled(tb.obj, -tb.obj[b], tb.rows[i])
		}
	}

	ok, err = tb.run(ctx, n, tol)
	if err != nil {
		return nil, solved, err
	}
	if !ok {
		return nil, unbounded, nil
	}

	y := make([]float64, n)
	for i, b := range tb.basis {
		if b < n {
			y[b] = math.Max(tb.rows[i][rhs], 0)
		}
	}
	return sf.point(y), solved, nil
}
