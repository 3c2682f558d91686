package milp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// termsPerLine keeps LP file lines well under the 255 character limit some readers impose.
const termsPerLine = 8

// ColumnName is the name WriteLP gives the variable in column i.
func ColumnName(i int) string { return "x" + strconv.Itoa(i) }

// RowName is the name WriteLP gives constraint i.
func RowName(i int) string { return "c" + strconv.Itoa(i) }

// WriteLP writes the model in CPLEX LP format. Columns and rows are named x<i> and c<i> so that model names, which
// may hold characters LP readers reject, never reach the file. The objective constant is left out.
func (m *Model) WriteLP(w io.Writer) error {
	if len(m.vars) == 0 {
		return errors.New("write LP: model has no variables")
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\\ %d columns, %d rows\n", len(m.vars), len(m.cons))

	bw.WriteString("Minimize\n obj:")
	writeTerms(bw, m.objective.Terms)
	bw.WriteString("\n")

	bw.WriteString("Subject To\n")
	for i, c := range m.cons {
		fmt.Fprintf(bw, " %s:", RowName(i))
		writeTerms(bw, c.Expr.Terms)
		fmt.Fprintf(bw, " %s %s\n", c.Sense, formatNumber(c.RHS))
	}

	bw.WriteString("Bounds\n")
	for i, v := range m.vars {
		name := ColumnName(i)
		switch {
		case math.IsInf(v.Lower, -1) && math.IsInf(v.Upper, 1):
			fmt.Fprintf(bw, " %s free\n", name)
		default:
			fmt.Fprintf(bw, " %s <= %s <= %s\n", formatBound(v.Lower), name, formatBound(v.Upper))
		}
	}

	binaries := 0
	for i, v := range m.vars {
		if v.Kind != Binary {
			continue
		}
		if binaries == 0 {
			bw.WriteString("Binaries\n")
		}
		fmt.Fprintf(bw, " %s", ColumnName(i))
		binaries++
		if binaries%termsPerLine == 0 {
			bw.WriteString("\n")
		}
	}
	if binaries%termsPerLine != 0 {
		bw.WriteString("\n")
	}

	bw.WriteString("End\n")
	return bw.Flush()
}

func writeTerms(bw *bufio.Writer, terms []Term) {
	if len(terms) == 0 {
		// LP readers need at least one term per row
		bw.WriteString(" 0 " + ColumnName(0))
		return
	}
	for i, t := range terms {
		if i > 0 && i%termsPerLine == 0 {
			bw.WriteString("\n  ")
		}
		sign := "+"
		coef := t.Coef
		if coef < 0 {
			sign = "-"
			coef = -coef
		}
		fmt.Fprintf(bw, " %s %s %s", sign, formatNumber(coef), ColumnName(t.Var.Index()))
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatBound(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return formatNumber(v)
}
