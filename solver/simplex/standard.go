package simplex

import (
	"fmt"
	"math"

	"github.com/cepro/capacityplanner/milp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// columnKind says how a model variable maps onto non-negative standard form columns.
type columnKind int

const (
	fixed   columnKind = iota // x = offset, no column
	shifted                   // x = offset + y
	negated                   // x = offset - y
	split                     // x = y+ - y-
)

type column struct {
	kind   columnKind
	offset float64
	first  int // y, or y+ for split
	second int // y- for split
}

// standardForm is min c'y subject to Ay = b, y >= 0, built from a model and a set of variable bounds.
type standardForm struct {
	columns []column
	c       []float64
	a       *mat.Dense
	b       []float64
}

const (
	rankTol        = 1e-9
	consistencyTol = 1e-7
)

// relaxation outcomes
type outcome int

const (
	solved outcome = iota
	infeasible
	unbounded
)

// buildStandardForm maps the LP relaxation of m under bounds lo, hi onto standard form. Each inequality row and
// each finite upper bound gets its own slack column.
func buildStandardForm(m *milp.Model, lo, hi []float64, tol float64) (*standardForm, outcome, error) {
	vars := m.Variables()
	sf := &standardForm{columns: make([]column, len(vars))}

	n := 0
	for i := range vars {
		l, u := lo[i], hi[i]
		switch {
		case l > u+tol:
			return nil, infeasible, nil
		case u-l <= tol && !math.IsInf(l, 0):
			sf.columns[i] = column{kind: fixed, offset: l}
		case !math.IsInf(l, 0):
			sf.columns[i] = column{kind: shifted, offset: l, first: n}
			n++
		case !math.IsInf(u, 0):
			sf.columns[i] = column{kind: negated, offset: u, first: n}
			n++
		default:
			sf.columns[i] = column{kind: split, first: n, second: n + 1}
			n += 2
		}
	}
	structural := n

	type entry struct {
		col  int
		coef float64
	}
	type stdRow struct {
		entries []entry
		rhs     float64
	}
	var rows []stdRow

	for _, con := range m.Constraints() {
		r := stdRow{rhs: con.RHS}
		for _, t := range con.Expr.Terms {
			col := sf.columns[t.Var.Index()]
			r.rhs -= t.Coef * col.offset
			switch col.kind {
			case shifted:
				r.entries = append(r.entries, entry{col.first, t.Coef})
			case negated:
				r.entries = append(r.entries, entry{col.first, -t.Coef})
			case split:
				r.entries = append(r.entries, entry{col.first, t.Coef}, entry{col.second, -t.Coef})
			}
		}
		empty := true
		for _, e := range r.entries {
			if e.coef != 0 {
				empty = false
				break
			}
		}
		if empty {
			if !emptyRowSatisfied(con.Sense, r.rhs, tol) {
				return nil, infeasible, nil
			}
			continue
		}
		switch con.Sense {
		case milp.LessEqual:
			r.entries = append(r.entries, entry{n, 1})
			n++
		case milp.GreaterEqual:
			r.entries = append(r.entries, entry{n, -1})
			n++
		}
		rows = append(rows, r)
	}

	for i, col := range sf.columns {
		if col.kind != shifted || math.IsInf(hi[i], 1) {
			continue
		}
		rows = append(rows, stdRow{
			entries: []entry{{col.first, 1}, {n, 1}},
			rhs:     hi[i] - lo[i],
		})
		n++
	}

	sf.c = make([]float64, n)
	for _, t := range m.Objective().Terms {
		col := sf.columns[t.Var.Index()]
		switch col.kind {
		case shifted:
			sf.c[col.first] += t.Coef
		case negated:
			sf.c[col.first] -= t.Coef
		case split:
			sf.c[col.first] += t.Coef
			sf.c[col.second] -= t.Coef
		}
	}

	used := make([]bool, n)
	for _, r := range rows {
		for _, e := range r.entries {
			if e.coef != 0 {
				used[e.col] = true
			}
		}
	}
	for j := 0; j < structural; j++ {
		if used[j] {
			continue
		}
		// a column in no row sits at zero unless it lowers the cost, in which case nothing stops it
		if sf.c[j] < 0 {
			return nil, unbounded, nil
		}
	}

	if len(rows) == 0 {
		sf.a = nil
		return sf, solved, nil
	}

	// drop columns that appear in no row
	remap := make([]int, n)
	kept := 0
	for j := 0; j < n; j++ {
		if used[j] {
			remap[j] = kept
			kept++
		} else {
			remap[j] = -1
		}
	}

	a := mat.NewDense(len(rows), kept, nil)
	b := make([]float64, len(rows))
	for i, r := range rows {
		// rows are scaled so that b >= 0
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for _, e := range r.entries {
			if e.coef == 0 {
				continue
			}
			k := remap[e.col]
			a.Set(i, k, a.At(i, k)+sign*e.coef)
		}
		b[i] = sign * r.rhs
	}

	keep, consistent := independentRows(a, b)
	if !consistent {
		return nil, infeasible, nil
	}
	switch {
	case len(keep) == 0:
		sf.a = nil
	case len(keep) == len(rows):
		sf.a, sf.b = a, b
	default:
		sf.a = mat.NewDense(len(keep), kept, nil)
		sf.b = make([]float64, len(keep))
		for i, k := range keep {
			sf.a.SetRow(i, a.RawRowView(k))
			sf.b[i] = b[k]
		}
	}
	if sf.a != nil {
		if r, c := sf.a.Dims(); r > c {
			return nil, solved, fmt.Errorf("standard form has %d independent rows but only %d columns", r, c)
		}
	}

	c := make([]float64, kept)
	for j := 0; j < n; j++ {
		if remap[j] >= 0 {
			c[remap[j]] = sf.c[j]
		}
	}
	sf.c = c
	for i := range sf.columns {
		col := &sf.columns[i]
		switch col.kind {
		case shifted, negated:
			col.first = remap[col.first]
		case split:
			col.first, col.second = remap[col.first], remap[col.second]
		}
	}
	return sf, solved, nil
}

// independentRows returns the indices of the rows of a that are not combinations of earlier rows. Fixing binaries
// makes some rows repeat others, and the simplex needs full row rank. It reports false when a dropped row's right
// hand side disagrees with the rows it depends on, which makes the system infeasible.
func independentRows(a *mat.Dense, b []float64) ([]int, bool) {
	rows, cols := a.Dims()
	var (
		keep    []int
		reduced [][]float64
		pivots  []int
	)
	for i := 0; i < rows; i++ {
		r := make([]float64, cols+1)
		copy(r, a.RawRowView(i))
		r[cols] = b[i]
		scale := floats.Norm(r[:cols], math.Inf(1))

		for k, p := range pivots {
			if f := r[p]; f != 0 {
				floats.AddScaled(r, -f, reduced[k])
			}
		}

		p, largest := -1, 0.0
		for j, v := range r[:cols] {
			if math.Abs(v) > largest {
				p, largest = j, math.Abs(v)
			}
		}
		if p < 0 || largest <= rankTol*scale {
			if math.Abs(r[cols]) > consistencyTol*math.Max(1, math.Abs(b[i])) {
				return nil, false
			}
			continue
		}
		floats.Scale(1/r[p], r)
		reduced = append(reduced, r)
		pivots = append(pivots, p)
		keep = append(keep, i)
	}
	return keep, true
}

func emptyRowSatisfied(sense milp.Sense, rhs, tol float64) bool {
	switch sense {
	case milp.LessEqual:
		return 0 <= rhs+tol
	case milp.GreaterEqual:
		return 0 >= rhs-tol
	}
	return math.Abs(rhs) <= tol
}

// relaxed is the outcome of one node relaxation.
type relaxed struct {
	values []float64
	result outcome
	err    error
}

// point maps a standard form solution back onto model variables. y may be nil when every variable is fixed.
func (sf *standardForm) point(y []float64) []float64 {
	at := func(k int) float64 {
		if k < 0 || y == nil {
			return 0
		}
		return y[k]
	}
	values := make([]float64, len(sf.columns))
	for i, col := range sf.columns {
		switch col.kind {
		case fixed:
			values[i] = col.offset
		case shifted:
			values[i] = col.offset + at(col.first)
		case negated:
			values[i] = col.offset - at(col.first)
		case split:
			values[i] = at(col.first) - at(col.second)
		}
	}
	return values
}
