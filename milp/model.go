package milp

import (
	"fmt"
	"math"
	"sort"
)

// VarKind is the domain of a variable.
type VarKind int

const (
	Continuous VarKind = iota
	Binary
)

func (k VarKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Binary:
		return "binary"
	}
	return fmt.Sprintf("VarKind(%d)", int(k))
}

// Var is a handle to a variable of a Model. The zero Var refers to nothing.
type Var struct {
	id int // index + 1
}

// Index returns the column position of the variable, or -1 for the zero Var.
func (v Var) Index() int { return v.id - 1 }

// IsZero reports whether v was never returned by AddVar.
func (v Var) IsZero() bool { return v.id == 0 }

// Variable describes one column of the model.
type Variable struct {
	Name  string
	Lower float64
	Upper float64
	Kind  VarKind
}

// Term is a coefficient applied to a variable.
type Term struct {
	Var  Var
	Coef float64
}

// Expr is an affine expression: a sum of terms plus a constant.
type Expr struct {
	Terms    []Term
	Constant float64
}

// Add appends coef*v and returns e for chaining.
func (e *Expr) Add(coef float64, v Var) *Expr {
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
	return e
}

// AddConstant adds c to the constant part.
func (e *Expr) AddConstant(c float64) *Expr {
	e.Constant += c
	return e
}

// AddExpr adds coef*o.
func (e *Expr) AddExpr(coef float64, o Expr) *Expr {
	for _, t := range o.Terms {
		e.Terms = append(e.Terms, Term{Var: t.Var, Coef: coef * t.Coef})
	}
	e.Constant += coef * o.Constant
	return e
}

// Eval evaluates the expression at values, indexed by column.
func (e Expr) Eval(values []float64) float64 {
	total := e.Constant
	for _, t := range e.Terms {
		total += t.Coef * values[t.Var.Index()]
	}
	return total
}

// Coefficient returns the summed coefficient of v in e.
func (e Expr) Coefficient(v Var) float64 {
	c := 0.0
	for _, t := range e.Terms {
		if t.Var == v {
			c += t.Coef
		}
	}
	return c
}

// compact merges repeated variables, drops zero coefficients and orders terms by column.
func (e Expr) compact() Expr {
	sums := make(map[Var]float64, len(e.Terms))
	for _, t := range e.Terms {
		sums[t.Var] += t.Coef
	}
	out := Expr{Constant: e.Constant, Terms: make([]Term, 0, len(sums))}
	for v, c := range sums {
		if c != 0 {
			out.Terms = append(out.Terms, Term{Var: v, Coef: c})
		}
	}
	sort.Slice(out.Terms, func(i, j int) bool { return out.Terms[i].Var.id < out.Terms[j].Var.id })
	return out
}

// Sense is the relation of a constraint.
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	}
	return fmt.Sprintf("Sense(%d)", int(s))
}

// Constraint is a row Expr Sense RHS. The expression of a stored constraint has no constant part.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// Residual returns Expr - RHS at values.
func (c Constraint) Residual(values []float64) float64 {
	return c.Expr.Eval(values) - c.RHS
}

// Violation returns how far values are from satisfying the constraint; 0 when satisfied.
func (c Constraint) Violation(values []float64) float64 {
	r := c.Residual(values)
	switch c.Sense {
	case LessEqual:
		return math.Max(0, r)
	case GreaterEqual:
		return math.Max(0, -r)
	default:
		return math.Abs(r)
	}
}

// Violation is a constraint that values fail to satisfy.
type Violation struct {
	Constraint string
	Amount     float64
}

// Model is a minimisation MILP. Variables and constraints are only ever appended.
type Model struct {
	vars      []Variable
	varNames  map[string]Var
	cons      []Constraint
	conNames  map[string]int
	objective Expr
}

func NewModel() *Model {
	return &Model{
		varNames: make(map[string]Var),
		conNames: make(map[string]int),
	}
}

// AddVar adds a variable with the given bounds. Binary variables are bounded to [0,1] whatever bounds are given.
func (m *Model) AddVar(name string, lower, upper float64, kind VarKind) (Var, error) {
	if _, ok := m.varNames[name]; ok {
		return Var{}, &DuplicateNameError{Kind: "variable", Name: name}
	}
	if kind == Binary {
		lower, upper = 0, 1
	}
	if math.IsNaN(lower) || math.IsNaN(upper) || lower > upper {
		return Var{}, fmt.Errorf("add variable %s: invalid bounds [%g, %g]", name, lower, upper)
	}
	m.vars = append(m.vars, Variable{Name: name, Lower: lower, Upper: upper, Kind: kind})
	v := Var{id: len(m.vars)}
	m.varNames[name] = v
	return v, nil
}

// AddConstraint adds the row lhs sense rhs. The constant part of lhs is moved to the right hand side.
func (m *Model) AddConstraint(name string, lhs Expr, sense Sense, rhs float64) error {
	if _, ok := m.conNames[name]; ok {
		return &DuplicateNameError{Kind: "constraint", Name: name}
	}
	if err := m.check(name, lhs); err != nil {
		return err
	}
	if math.IsNaN(rhs) || math.IsInf(rhs, 0) {
		return &InvalidCoefficientError{Context: name, Value: rhs}
	}
	e := lhs.compact()
	rhs -= e.Constant
	e.Constant = 0

	m.conNames[name] = len(m.cons)
	m.cons = append(m.cons, Constraint{Name: name, Expr: e, Sense: sense, RHS: rhs})
	return nil
}

// SetObjective sets the expression to minimise.
func (m *Model) SetObjective(e Expr) error {
	if err := m.check("objective", e); err != nil {
		return err
	}
	m.objective = e.compact()
	return nil
}

func (m *Model) check(context string, e Expr) error {
	for _, t := range e.Terms {
		if t.Var.id < 1 || t.Var.id > len(m.vars) {
			return &UnboundReferenceError{Context: context, Name: fmt.Sprintf("column %d", t.Var.Index())}
		}
		if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
			return &InvalidCoefficientError{Context: context, Variable: m.vars[t.Var.Index()].Name, Value: t.Coef}
		}
	}
	if math.IsNaN(e.Constant) || math.IsInf(e.Constant, 0) {
		return &InvalidCoefficientError{Context: context, Value: e.Constant}
	}
	return nil
}

func (m *Model) NumVars() int { return len(m.vars) }

func (m *Model) NumConstraints() int { return len(m.cons) }

// NumBinaries counts the binary variables.
func (m *Model) NumBinaries() int {
	n := 0
	for _, v := range m.vars {
		if v.Kind == Binary {
			n++
		}
	}
	return n
}

// NumNonZeros counts the constraint matrix entries.
func (m *Model) NumNonZeros() int {
	n := 0
	for _, c := range m.cons {
		n += len(c.Expr.Terms)
	}
	return n
}

func (m *Model) Variables() []Variable { return m.vars }

func (m *Model) Variable(v Var) Variable { return m.vars[v.Index()] }

// VarByName looks a variable up by name.
func (m *Model) VarByName(name string) (Var, bool) {
	v, ok := m.varNames[name]
	return v, ok
}

func (m *Model) Constraints() []Constraint { return m.cons }

// Constraint looks a constraint up by name.
func (m *Model) Constraint(name string) (Constraint, bool) {
	i, ok := m.conNames[name]
	if !ok {
		return Constraint{}, false
	}
	return m.cons[i], true
}

func (m *Model) Objective() Expr { return m.objective }

// Violations returns the constraints violated by more than tol at values, and variables outside their bounds, in
// model order.
func (m *Model) Violations(values []float64, tol float64) []Violation {
	var out []Violation
	for i, v := range m.vars {
		x := values[i]
		switch {
		case x < v.Lower-tol:
			out = append(out, Violation{Constraint: v.Name + " lower bound", Amount: v.Lower - x})
		case x > v.Upper+tol:
			out = append(out, Violation{Constraint: v.Name + " upper bound", Amount: x - v.Upper})
		}
	}
	for _, c := range m.cons {
		if amount := c.Violation(values); amount > tol {
			out = append(out, Violation{Constraint: c.Name, Amount: amount})
		}
	}
	return out
}
