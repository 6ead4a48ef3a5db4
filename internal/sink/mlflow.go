package sink

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/speedy-lang/sweep/internal/mlflow"
	"github.com/speedy-lang/sweep/internal/models"
	"github.com/speedy-lang/sweep/internal/timeutil"
)

// mlflowTracker is the slice of the MLflow client the sink uses.
type mlflowTracker interface {
	EnsureExperiment(ctx context.Context, name string) (string, error)
	CreateRun(ctx context.Context, experimentID, runName string, startTime time.Time, tags map[string]string) (string, error)
	LogParams(ctx context.Context, runID string, params map[string]string) error
	LogMetrics(ctx context.Context, runID string, metrics []models.Metric) error
	UpdateRun(ctx context.Context, runID string, status models.RunStatus) error
	UploadArtifact(ctx context.Context, runID, filePath, artifactPath string) error
}

// MLflow logs every run result as its own MLflow run under one experiment.
// When artifactFile is set, Close attaches it to a dedicated run so the full
// results table survives next to the tracker data.
type MLflow struct {
	tracker      mlflowTracker
	experimentID string
	artifactFile string
}

func NewMLflow(ctx context.Context, client *mlflow.Client, experiment, artifactFile string) (*MLflow, error) {
	experimentID, err := client.EnsureExperiment(ctx, experiment)
	if err != nil {
		return nil, fmt.Errorf("mlflow: %w", err)
	}
	return &MLflow{tracker: client, experimentID: experimentID, artifactFile: artifactFile}, nil
}

func (s *MLflow) Log(ctx context.Context, res *models.RunResult) error {
	tags := map[string]string{
		"sweep.run_index": strconv.Itoa(res.RunIndex),
		"sweep.seed":      strconv.FormatInt(res.Seed, 10),
	}
	runID, err := s.tracker.CreateRun(ctx, s.experimentID, res.RunName(), res.StartedAt, tags)
	if err != nil {
		return fmt.Errorf("mlflow: %w", err)
	}
	if err := s.tracker.LogParams(ctx, runID, res.Params()); err != nil {
		return fmt.Errorf("mlflow: %w", err)
	}

	metrics := timeutil.HistoryMetrics(res.StartedAt, res.History)
	metrics = append(metrics, finalMetrics(res)...)
	if err := s.tracker.LogMetrics(ctx, runID, metrics); err != nil {
		return fmt.Errorf("mlflow: %w", err)
	}

	if err := s.tracker.UpdateRun(ctx, runID, models.RunStatusFinished); err != nil {
		return fmt.Errorf("mlflow: %w", err)
	}
	return nil
}

func (s *MLflow) Close(ctx context.Context) error {
	if s.artifactFile == "" {
		return nil
	}
	if _, err := os.Stat(s.artifactFile); err != nil {
		// Nothing was written; skip the attachment.
		return nil
	}

	runID, err := s.tracker.CreateRun(ctx, s.experimentID, "sweep-results", time.Now(), map[string]string{
		"sweep.artifact": "results",
	})
	if err != nil {
		return fmt.Errorf("mlflow: %w", err)
	}
	if err := s.tracker.UploadArtifact(ctx, runID, s.artifactFile, ""); err != nil {
		return fmt.Errorf("mlflow: %w", err)
	}
	if err := s.tracker.UpdateRun(ctx, runID, models.RunStatusFinished); err != nil {
		return fmt.Errorf("mlflow: %w", err)
	}
	return nil
}

// finalMetrics covers the train-side finals the evaluation history does not
// carry, stamped at the end of the run.
func finalMetrics(res *models.RunResult) []models.Metric {
	ts := res.StartedAt.Add(time.Duration(res.Final.WallTimeSecs * float64(time.Second)))
	step := int64(res.History.Evals() - 1)
	return []models.Metric{
		{Key: "train_loss", Value: res.Final.TrainLoss, Timestamp: ts, Step: step},
		{Key: "train_acc", Value: res.Final.TrainAcc, Timestamp: ts, Step: step},
		{Key: "wall_time_secs", Value: res.Final.WallTimeSecs, Timestamp: ts, Step: step},
	}
}
