package mlflow

import (
	"context"
	"fmt"
	"time"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/speedy-lang/sweep/internal/models"
)

// EnsureExperiment returns the experiment id for name, creating the
// experiment when it does not exist yet.
func (c *Client) EnsureExperiment(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("experiment name must be provided")
	}

	resp, err := c.client.Experiments.GetByName(ctx, ml.GetByNameRequest{
		ExperimentName: name,
	})
	if err == nil && resp.Experiment != nil {
		return resp.Experiment.ExperimentId, nil
	}

	created, err := c.client.Experiments.CreateExperiment(ctx, ml.CreateExperiment{
		Name: name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create experiment %q: %w", name, err)
	}
	return created.ExperimentId, nil
}

// CreateRun opens a tracker run and returns its id.
func (c *Client) CreateRun(ctx context.Context, experimentID, runName string, startTime time.Time, tags map[string]string) (string, error) {
	if experimentID == "" {
		return "", fmt.Errorf("experiment ID must be provided")
	}
	if runName == "" {
		runName = "run-" + startTime.Format("2006-01-02-15-04-05")
	}

	mlTags := make([]ml.RunTag, 0, len(tags)+1)
	for key, value := range tags {
		mlTags = append(mlTags, ml.RunTag{
			Key:   key,
			Value: value,
		})
	}
	mlTags = append(mlTags, ml.RunTag{
		Key:   "mlflow.runName",
		Value: runName,
	})

	resp, err := c.client.Experiments.CreateRun(ctx, ml.CreateRun{
		ExperimentId: experimentID,
		RunName:      runName,
		StartTime:    startTime.UnixMilli(),
		Tags:         mlTags,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return resp.Run.Info.RunId, nil
}

// UpdateRun moves a run to the given status, stamping the end time for
// terminal statuses.
func (c *Client) UpdateRun(ctx context.Context, runID string, status models.RunStatus) error {
	var mlStatus ml.UpdateRunStatus
	switch status {
	case models.RunStatusRunning:
		mlStatus = ml.UpdateRunStatusRunning
	case models.RunStatusFinished:
		mlStatus = ml.UpdateRunStatusFinished
	case models.RunStatusFailed:
		mlStatus = ml.UpdateRunStatusFailed
	case models.RunStatusKilled:
		mlStatus = ml.UpdateRunStatusKilled
	default:
		mlStatus = ml.UpdateRunStatusFinished
	}

	updateRun := ml.UpdateRun{
		RunId:  runID,
		Status: mlStatus,
	}
	if status != models.RunStatusRunning {
		updateRun.EndTime = time.Now().UnixMilli()
	}

	_, err := c.client.Experiments.UpdateRun(ctx, updateRun)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}
