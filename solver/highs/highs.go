// Package highs solves models with the HiGHS command line solver.
package highs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/cepro/capacityplanner/milp"
	"github.com/cepro/capacityplanner/solver"
	"github.com/kballard/go-shellquote"
)

// DefaultExecutable is looked up on PATH when no executable is configured.
const DefaultExecutable = "highs"

const (
	modelFile    = "model.lp"
	optionsFile  = "highs.opt"
	solutionFile = "solution.sol"
)

// Solver runs the HiGHS executable on an LP file written to a scratch directory.
type Solver struct {
	// Executable is the path to the highs binary.
	Executable string

	// Args are passed ahead of the model arguments.
	Args []string

	// WorkDir is where scratch directories are created; empty uses the system temp dir.
	WorkDir string

	// KeepFiles leaves the model, options and solution files behind for inspection.
	KeepFiles bool
}

func New(executable string) *Solver {
	if executable == "" {
		executable = DefaultExecutable
	}
	return &Solver{Executable: executable}
}

// NewCommand splits a shell-style command line, such as "highs --presolve off" or a container wrapper, into the
// executable and its leading arguments.
func NewCommand(command string) (*Solver, error) {
	words, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parse solver command %q: %w", command, err)
	}
	if len(words) == 0 {
		return New(""), nil
	}
	s := New(words[0])
	s.Args = words[1:]
	return s, nil
}

// Solve writes m, runs HiGHS until it finishes or ctx is cancelled, and reads back the solution.
func (s *Solver) Solve(ctx context.Context, m *milp.Model, opts solver.Options) (*solver.Solution, error) {
	logger := slog.Default().With("solver", "highs")

	dir, err := os.MkdirTemp(s.WorkDir, "highs-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	if s.KeepFiles {
		logger.Info("Keeping solver files", "dir", dir)
	} else {
		defer os.RemoveAll(dir)
	}

	modelPath := filepath.Join(dir, modelFile)
	err = writeFile(modelPath, m.WriteLP)
	if err != nil {
		return nil, fmt.Errorf("write model: %w", err)
	}
	optionsPath := filepath.Join(dir, optionsFile)
	err = writeFile(optionsPath, func(w io.Writer) error { return writeOptions(w, opts) })
	if err != nil {
		return nil, fmt.Errorf("write options: %w", err)
	}
	solutionPath := filepath.Join(dir, solutionFile)

	args := append(append([]string(nil), s.Args...),
		"--model_file", modelPath,
		"--options_file", optionsPath,
		"--solution_file", solutionPath,
	)
	cmd := exec.CommandContext(ctx, s.Executable, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	logger.Info("Starting solve", "columns", m.NumVars(), "rows", m.NumConstraints(), "gap", opts.RelativeGap, "timeLimit", opts.TimeLimit)
	start := time.Now()
	runErr := cmd.Run()
	if runErr != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("run highs: %w", ctx.Err())
	}

	// the exit code is the HiGHS run status, so warnings such as a time limit exit non-zero with a solution file
	// in place; only a missing file makes the exit an error here
	f, err := os.Open(solutionPath)
	if err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("run highs: %w: %s", runErr, tail(output.Bytes()))
		}
		return nil, fmt.Errorf("open solution: %w", err)
	}
	defer f.Close()
	if runErr != nil {
		logger.Warn("Solver exited with a non-zero status", "error", runErr, "output", tail(output.Bytes()))
	} else {
		logger.Debug("Solver output", "output", tail(output.Bytes()))
	}

	sol, err := parseSolution(f, m.NumVars())
	if err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("run highs: %w: parse solution: %v", runErr, err)
		}
		return nil, fmt.Errorf("parse solution: %w", err)
	}
	if len(sol.Values) == m.NumVars() {
		sol.Objective = m.Objective().Eval(sol.Values)
	}

	logger.Info("Finished solve", "status", sol.Message, "objective", sol.Objective, "duration", time.Since(start).Round(time.Millisecond))
	return sol, nil
}

// writeOptions writes a HiGHS options file.
func writeOptions(w io.Writer, opts solver.Options) error {
	_, err := fmt.Fprintf(w, "mip_rel_gap = %g\n", opts.RelativeGap)
	if err != nil {
		return err
	}
	if opts.TimeLimit > 0 {
		_, err = fmt.Fprintf(w, "time_limit = %g\n", opts.TimeLimit.Seconds())
		if err != nil {
			return err
		}
	}
	if opts.Threads > 0 {
		_, err = fmt.Fprintf(w, "threads = %d\n", opts.Threads)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// tail returns the last few hundred bytes of solver output for error messages.
func tail(output []byte) string {
	const max = 512
	if len(output) > max {
		output = output[len(output)-max:]
	}
	return string(bytes.TrimSpace(output))
}
