package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedy-lang/sweep/internal/models"
)

type trackedRun struct {
	experimentID string
	name         string
	tags         map[string]string
}

type fakeTracker struct {
	runs     []trackedRun
	params   map[string]map[string]string
	metrics  map[string][]models.Metric
	statuses map[string]models.RunStatus
	uploads  map[string]string
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		params:   map[string]map[string]string{},
		metrics:  map[string][]models.Metric{},
		statuses: map[string]models.RunStatus{},
		uploads:  map[string]string{},
	}
}

func (f *fakeTracker) EnsureExperiment(ctx context.Context, name string) (string, error) {
	return "42", nil
}

func (f *fakeTracker) CreateRun(ctx context.Context, experimentID, runName string, startTime time.Time, tags map[string]string) (string, error) {
	runID := fmt.Sprintf("run-%d", len(f.runs))
	f.runs = append(f.runs, trackedRun{experimentID: experimentID, name: runName, tags: tags})
	return runID, nil
}

func (f *fakeTracker) LogParams(ctx context.Context, runID string, params map[string]string) error {
	f.params[runID] = params
	return nil
}

func (f *fakeTracker) LogMetrics(ctx context.Context, runID string, metrics []models.Metric) error {
	f.metrics[runID] = append(f.metrics[runID], metrics...)
	return nil
}

func (f *fakeTracker) UpdateRun(ctx context.Context, runID string, status models.RunStatus) error {
	f.statuses[runID] = status
	return nil
}

func (f *fakeTracker) UploadArtifact(ctx context.Context, runID, filePath, artifactPath string) error {
	f.uploads[runID] = filePath
	return nil
}

func metricKeys(metrics []models.Metric) map[string]int {
	keys := map[string]int{}
	for _, m := range metrics {
		keys[m.Key]++
	}
	return keys
}

func TestMLflowLog(t *testing.T) {
	ctx := context.Background()
	fake := newFakeTracker()
	s := &MLflow{tracker: fake, experimentID: "42"}

	res := result(102, 2)
	res.StartedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Log(ctx, res))

	require.Len(t, fake.runs, 1)
	run := fake.runs[0]
	assert.Equal(t, "42", run.experimentID)
	assert.Equal(t, "d8-w384-h3-seed102", run.name)
	assert.Equal(t, "102", run.tags["sweep.seed"])
	assert.Equal(t, "2", run.tags["sweep.run_index"])

	params := fake.params["run-0"]
	assert.Equal(t, "384", params["width"])
	assert.Equal(t, "46009736", params["num_params"])

	metrics := fake.metrics["run-0"]
	keys := metricKeys(metrics)
	assert.Equal(t, 2, keys["val_loss"], "one val_loss point per evaluation")
	assert.Equal(t, 1, keys["train_loss"])
	assert.Equal(t, 1, keys["wall_time_secs"])

	// History points carry their step and a timestamp spread from the start.
	assert.Equal(t, int64(0), metrics[0].Step)
	assert.Equal(t, res.StartedAt.Add(time.Minute), metrics[0].Timestamp)

	assert.Equal(t, models.RunStatusFinished, fake.statuses["run-0"])
}

func TestMLflowClose(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches the results file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "results_041.csv")
		require.NoError(t, os.WriteFile(path, []byte("header\nrow\n"), 0o644))

		fake := newFakeTracker()
		s := &MLflow{tracker: fake, experimentID: "42", artifactFile: path}
		require.NoError(t, s.Close(ctx))

		require.Len(t, fake.runs, 1)
		assert.Equal(t, "sweep-results", fake.runs[0].name)
		assert.Equal(t, path, fake.uploads["run-0"])
		assert.Equal(t, models.RunStatusFinished, fake.statuses["run-0"])
	})

	t.Run("no artifact file configured", func(t *testing.T) {
		fake := newFakeTracker()
		s := &MLflow{tracker: fake, experimentID: "42"}
		require.NoError(t, s.Close(ctx))
		assert.Empty(t, fake.runs)
	})

	t.Run("artifact file never written", func(t *testing.T) {
		fake := newFakeTracker()
		s := &MLflow{tracker: fake, experimentID: "42", artifactFile: filepath.Join(t.TempDir(), "nope.csv")}
		require.NoError(t, s.Close(ctx))
		assert.Empty(t, fake.runs)
	})
}
