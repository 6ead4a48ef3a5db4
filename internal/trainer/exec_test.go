package trainer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedy-lang/sweep/internal/sweep"
)

func TestBuildArgs(t *testing.T) {
	spec := sweep.RunSpec{
		Setting: sweep.Setting{ModelScale: 1.5, Depth: 8, Width: 384, NumHeads: 3, LinearValue: true},
		Seed:    102,
	}

	t.Run("defaults omit optional budgets", func(t *testing.T) {
		args := BuildArgs(spec, sweep.TrainOptions{MaxEpochs: 3}, "/tmp/out.json")
		assert.Equal(t, []string{
			"--depth", "8",
			"--width", "384",
			"--num_heads", "3",
			"--linear_value", "1",
			"--model_scale", "1.5",
			"--seed", "102",
			"--max_epochs", "3",
			"--results", "/tmp/out.json",
		}, args)
	})

	t.Run("set budgets are forwarded", func(t *testing.T) {
		args := BuildArgs(spec, sweep.TrainOptions{
			MaxEpochs:             5,
			MaxSteps:              1000,
			MaxTokens:             1 << 20,
			MaxEpochsBetweenEvals: 0.25,
			GPUCapacityScalar:     0.5,
		}, "out.json")
		assert.Contains(t, args, "--max_steps")
		assert.Contains(t, args, "1000")
		assert.Contains(t, args, "--max_tokens")
		assert.Contains(t, args, "--max_epochs_between_evals")
		assert.Contains(t, args, "0.25")
		assert.Contains(t, args, "--gpu_capacity_scalar")
	})

	t.Run("linear_value renders as 0 or 1", func(t *testing.T) {
		off := spec
		off.Setting.LinearValue = false
		args := BuildArgs(off, sweep.TrainOptions{}, "out.json")
		i := indexOf(args, "--linear_value")
		require.GreaterOrEqual(t, i, 0)
		assert.Equal(t, "0", args[i+1])
	})
}

func indexOf(ss []string, want string) int {
	for i, s := range ss {
		if s == want {
			return i
		}
	}
	return -1
}

// writeScript drops a stand-in trainer that scans its args for --results and
// writes the given payload there. The script lives under a space-free temp
// dir because Exec splits its command on whitespace.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "sweeptrainer")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "trainer.sh")
	script := `#!/bin/sh
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "--results" ]; then out="$a"; fi
  prev="$a"
done
` + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestExecTrain(t *testing.T) {
	spec := sweep.RunSpec{
		Setting: sweep.Setting{ModelScale: 1, Depth: 8, Width: 384, NumHeads: 3},
		Seed:    100,
	}
	opts := sweep.TrainOptions{MaxEpochs: 3}

	t.Run("reads the result the trainer writes", func(t *testing.T) {
		script := writeScript(t, `
echo "step 10 loss 3.2"
cat > "$out" <<'EOF'
{"num_params": 1234, "final": {"train_loss": 2.5, "val_loss": 3.0, "val_acc": 0.4}, "history": {"val_loss": [3.0], "val_acc": [0.4]}}
EOF
`)
		var stdout, stderr bytes.Buffer
		e := &Exec{Command: "sh " + script, Stdout: &stdout, Stderr: &stderr}
		m, err := e.Train(context.Background(), spec, opts)
		require.NoError(t, err)
		assert.Equal(t, int64(1234), m.NumParams)
		assert.Equal(t, 3.0, m.Final.ValLoss)
		assert.Contains(t, stdout.String(), "step 10 loss 3.2")
	})

	t.Run("nonzero exit is a training failure", func(t *testing.T) {
		script := writeScript(t, "exit 3\n")
		e := &Exec{Command: "sh " + script, Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
		_, err := e.Train(context.Background(), spec, opts)
		assert.ErrorContains(t, err, "trainer exited")
	})

	t.Run("missing result file is a failure", func(t *testing.T) {
		script := writeScript(t, "true\n")
		e := &Exec{Command: "sh " + script, Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
		_, err := e.Train(context.Background(), spec, opts)
		assert.Error(t, err)
	})

	t.Run("result without a final evaluation is a failure", func(t *testing.T) {
		script := writeScript(t, `printf '{"num_params": 1}' > "$out"`+"\n")
		e := &Exec{Command: "sh " + script, Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
		_, err := e.Train(context.Background(), spec, opts)
		assert.ErrorContains(t, err, "trainer result")
	})

	t.Run("context cancellation kills the trainer", func(t *testing.T) {
		script := writeScript(t, "sleep 10\n")
		e := &Exec{Command: "sh " + script, Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_, err := e.Train(ctx, spec, opts)
		assert.Error(t, err)
	})

	t.Run("empty command", func(t *testing.T) {
		e := &Exec{Command: "  "}
		_, err := e.Train(context.Background(), spec, opts)
		assert.ErrorContains(t, err, "trainer command is empty")
	})
}
