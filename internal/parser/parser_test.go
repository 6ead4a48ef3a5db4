package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSweepFile(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		in := `
axes:
  model_scale: [1.0, 2.0]
  depth: [4, 8]
  width: [192, 384]
  num_heads: [1, 3]
  linear_value: [false, true]
num_runs: 2
seed: 10
max_epochs: 3
max_epochs_between_evals: 0.25
`
		sf, err := ParseYAMLSweepFile(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, []float64{1.0, 2.0}, sf.Axes.ModelScale)
		assert.Equal(t, []int{4, 8}, sf.Axes.Depth)
		assert.Equal(t, []bool{false, true}, sf.Axes.LinearValue)
		require.NotNil(t, sf.NumRuns)
		assert.Equal(t, 2, *sf.NumRuns)
		require.NotNil(t, sf.Seed)
		assert.Equal(t, int64(10), *sf.Seed)
		require.NotNil(t, sf.MaxEpochsBetweenEvals)
		assert.Equal(t, 0.25, *sf.MaxEpochsBetweenEvals)
		assert.Nil(t, sf.MaxSteps)
	})

	t.Run("json", func(t *testing.T) {
		in := `{"axes": {"num_heads": [1, 2, 4]}, "num_runs": 5}`
		sf, err := ParseJSONSweepFile(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 4}, sf.Axes.NumHeads)
		require.NotNil(t, sf.NumRuns)
		assert.Equal(t, 5, *sf.NumRuns)
		assert.Nil(t, sf.Seed)
	})

	t.Run("malformed input", func(t *testing.T) {
		_, err := ParseJSONSweepFile(strings.NewReader("{not json"))
		assert.Error(t, err)
		_, err = ParseYAMLSweepFile(strings.NewReader(":\t:"))
		assert.Error(t, err)
	})
}

func TestParseResult(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		in := `{
  "num_params": 46009736,
  "final": {"train_loss": 2.5, "train_acc": 0.45, "val_loss": 3.0, "val_acc": 0.4, "epoch": 3, "tokens_seen": 1048576, "wall_time_secs": 120.5},
  "history": {"val_loss": [3.5, 3.0], "val_acc": [0.3, 0.4], "epoch": [1.5, 3], "tokens_seen": [524288, 1048576], "cumulative_secs": [60.0, 120.5]}
}`
		m, err := ParseJSONResult(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, int64(46009736), m.NumParams)
		require.NotNil(t, m.Final)
		assert.Equal(t, 3.0, m.Final.ValLoss)
		assert.Equal(t, []float64{3.5, 3.0}, m.History.ValLoss)
		require.NoError(t, m.Normalize())
		assert.InDelta(t, 20.09, m.Final.ValPplx, 0.01)
	})

	t.Run("yaml", func(t *testing.T) {
		in := `
num_params: 1000
final:
  val_loss: 1.5
  val_acc: 0.6
history:
  val_loss: [1.5]
  val_acc: [0.6]
`
		m, err := ParseYAMLResult(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, int64(1000), m.NumParams)
		require.NoError(t, m.Normalize())
	})
}

func TestLoadSweepFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("dispatches on extension", func(t *testing.T) {
		path := filepath.Join(dir, "sweep.yaml")
		require.NoError(t, os.WriteFile(path, []byte("num_runs: 3\n"), 0o644))
		sf, err := LoadSweepFile(path)
		require.NoError(t, err)
		require.NotNil(t, sf.NumRuns)
		assert.Equal(t, 3, *sf.NumRuns)
	})

	t.Run("rejects unknown extensions", func(t *testing.T) {
		path := filepath.Join(dir, "sweep.toml")
		require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
		_, err := LoadSweepFile(path)
		assert.ErrorContains(t, err, "unsupported sweep file format")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSweepFile(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestLoadResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "result.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"num_params": 7, "final": {"val_loss": 1}, "history": {"val_loss": [1]}}`), 0o644))

	m, err := LoadResult(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), m.NumParams)

	_, err = LoadResult(filepath.Join(dir, "result.csv"))
	assert.Error(t, err)
}
