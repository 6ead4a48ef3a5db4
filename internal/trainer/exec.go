package trainer

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/speedy-lang/sweep/internal/models"
	"github.com/speedy-lang/sweep/internal/parser"
	"github.com/speedy-lang/sweep/internal/sweep"
)

// Exec bridges to the external training program. Each Train call launches one
// child process, waits for it, and reads the result payload the trainer wrote
// to the path passed via --results.
type Exec struct {
	// Command is the trainer invocation, split on whitespace, e.g.
	// "python3 train.py". The run's flags are appended after it.
	Command string
	// Dir is the child's working directory. Empty inherits the parent's.
	Dir string

	// Stdout and Stderr default to the parent's streams so the trainer's
	// live progress table stays visible.
	Stdout io.Writer
	Stderr io.Writer
	Logger *log.Logger
}

func (e *Exec) Train(ctx context.Context, spec sweep.RunSpec, opts sweep.TrainOptions) (*models.Metrics, error) {
	argv := strings.Fields(e.Command)
	if len(argv) == 0 {
		return nil, fmt.Errorf("trainer command is empty")
	}

	dir, err := os.MkdirTemp("", "sweep-run-*")
	if err != nil {
		return nil, fmt.Errorf("creating result dir: %w", err)
	}
	defer os.RemoveAll(dir)
	resultPath := filepath.Join(dir, "result.json")

	args := append(argv[1:], BuildArgs(spec, opts, resultPath)...)
	cmd := exec.CommandContext(ctx, argv[0], args...)
	cmd.Dir = e.Dir
	cmd.Stdout = e.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = e.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if e.Logger != nil {
		e.Logger.Debug("launching trainer", "command", argv[0], "args", strings.Join(args, " "))
	}
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("trainer exited: %w", err)
	}

	m, err := parser.LoadResult(resultPath)
	if err != nil {
		return nil, err
	}
	if err := m.Normalize(); err != nil {
		return nil, fmt.Errorf("trainer result: %w", err)
	}
	return m, nil
}

// BuildArgs renders the command-line flags for one training run. Zero-valued
// optional budgets are omitted so the trainer's own defaults apply.
func BuildArgs(spec sweep.RunSpec, opts sweep.TrainOptions, resultPath string) []string {
	args := []string{
		"--depth", strconv.Itoa(spec.Setting.Depth),
		"--width", strconv.Itoa(spec.Setting.Width),
		"--num_heads", strconv.Itoa(spec.Setting.NumHeads),
		"--linear_value", boolFlag(spec.Setting.LinearValue),
		"--model_scale", strconv.FormatFloat(spec.Setting.ModelScale, 'g', -1, 64),
		"--seed", strconv.FormatInt(spec.Seed, 10),
		"--max_epochs", strconv.Itoa(opts.MaxEpochs),
	}
	if opts.MaxSteps > 0 {
		args = append(args, "--max_steps", strconv.FormatInt(opts.MaxSteps, 10))
	}
	if opts.MaxTokens > 0 {
		args = append(args, "--max_tokens", strconv.FormatInt(opts.MaxTokens, 10))
	}
	if opts.MaxEpochsBetweenEvals > 0 {
		args = append(args, "--max_epochs_between_evals", strconv.FormatFloat(opts.MaxEpochsBetweenEvals, 'g', -1, 64))
	}
	if opts.GPUCapacityScalar > 0 && opts.GPUCapacityScalar != 1 {
		args = append(args, "--gpu_capacity_scalar", strconv.FormatFloat(opts.GPUCapacityScalar, 'g', -1, 64))
	}
	return append(args, "--results", resultPath)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
