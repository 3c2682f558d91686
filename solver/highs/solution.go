package highs

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cepro/capacityplanner/milp"
	"github.com/cepro/capacityplanner/solver"
)

// modelStatuses maps HiGHS model status text onto the status pair.
var modelStatuses = map[string]struct {
	status      solver.Status
	termination solver.TerminationCondition
}{
	"Optimal":                        {solver.StatusOK, solver.Optimal},
	"Infeasible":                     {solver.StatusWarning, solver.Infeasible},
	"Primal infeasible or unbounded": {solver.StatusWarning, solver.InfeasibleOrUnbounded},
	"Unbounded":                      {solver.StatusWarning, solver.Unbounded},
	"Time limit reached":             {solver.StatusAborted, solver.MaxTimeLimit},
	"Iteration limit reached":        {solver.StatusAborted, solver.Other},
	"Solution limit reached":         {solver.StatusAborted, solver.Other},
	"Interrupted by user":            {solver.StatusAborted, solver.Other},
	"Objective bound":                {solver.StatusWarning, solver.Other},
	"Objective target":               {solver.StatusWarning, solver.Other},
}

// parseSolution reads a HiGHS solution file in its raw style: a "Model status" header, then a primal section
// with an objective line and "# Columns N" followed by N "name value" lines. Column names are the x<i> names
// written by WriteLP.
func parseSolution(r io.Reader, numVars int) (*solver.Solution, error) {
	sol := &solver.Solution{Status: solver.StatusError, Termination: solver.Other}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		statusNext bool
		inPrimal   bool
		columns    = -1
		values     []float64
		seen       int
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case statusNext:
			if line == "" {
				continue
			}
			setStatus(sol, line)
			statusNext = false
			continue
		case strings.HasPrefix(line, "Model status"):
			if _, rest, ok := strings.Cut(line, ":"); ok {
				setStatus(sol, strings.TrimSpace(rest))
			} else {
				statusNext = true
			}
			continue
		case strings.HasPrefix(line, "# Primal solution values"):
			inPrimal = true
			continue
		case strings.HasPrefix(line, "# Dual solution values"), strings.HasPrefix(line, "# Basis"):
			inPrimal = false
			continue
		}

		if !inPrimal {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Objective"):
			fields := strings.Fields(line)
			if len(fields) == 2 {
				obj, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					return nil, fmt.Errorf("parse objective %q: %w", line, err)
				}
				sol.Objective = obj
			}
		case strings.HasPrefix(line, "# Columns"):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "# Columns")))
			if err != nil {
				return nil, fmt.Errorf("parse column count %q: %w", line, err)
			}
			if n != numVars {
				return nil, fmt.Errorf("solution has %d columns, model has %d", n, numVars)
			}
			columns = n
			values = make([]float64, n)
		case strings.HasPrefix(line, "# Rows"):
			inPrimal = false
		case columns >= 0 && seen < columns && line != "":
			fields := strings.Fields(line)
			if len(fields) != 2 {
				return nil, fmt.Errorf("parse column line %q", line)
			}
			i, err := columnIndex(fields[0], numVars)
			if err != nil {
				return nil, err
			}
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("parse value of %s: %w", fields[0], err)
			}
			values[i] = v
			seen++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if sol.Message == "" {
		return nil, fmt.Errorf("no model status in solution file")
	}
	if columns >= 0 {
		if seen != columns {
			return nil, fmt.Errorf("solution lists %d of %d columns", seen, columns)
		}
		sol.Values = values
	}
	return sol, nil
}

func setStatus(sol *solver.Solution, text string) {
	sol.Message = text
	if s, ok := modelStatuses[text]; ok {
		sol.Status, sol.Termination = s.status, s.termination
	}
}

func columnIndex(name string, numVars int) (int, error) {
	if !strings.HasPrefix(name, "x") {
		return 0, fmt.Errorf("unexpected column %q", name)
	}
	i, err := strconv.Atoi(name[1:])
	if err != nil || i < 0 || i >= numVars || milp.ColumnName(i) != name {
		return 0, fmt.Errorf("unexpected column %q", name)
	}
	return i, nil
}
