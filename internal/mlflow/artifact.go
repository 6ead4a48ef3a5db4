package mlflow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/databricks/databricks-sdk-go/service/ml"
)

// UploadArtifact attaches a local file to the run. The storage backend is
// picked from the run's artifact URI; mlflow-artifacts and filesystem URIs
// are supported.
func (c *Client) UploadArtifact(ctx context.Context, runID, filePath, artifactPath string) error {
	artifactURI, err := c.getArtifactURI(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get artifact URI: %w", err)
	}

	if artifactPath == "" {
		artifactPath = filepath.Base(filePath)
	}

	switch {
	case strings.HasPrefix(artifactURI, "mlflow-artifacts:/"):
		return c.uploadToMLflowArtifacts(ctx, artifactURI, filePath, artifactPath)
	case strings.HasPrefix(artifactURI, "file://"), strings.HasPrefix(artifactURI, "/"):
		return c.uploadToLocalFS(artifactURI, filePath, artifactPath)
	default:
		return fmt.Errorf("unsupported artifact URI scheme: %s", artifactURI)
	}
}

func (c *Client) getArtifactURI(ctx context.Context, runID string) (string, error) {
	resp, err := c.client.Experiments.GetRun(ctx, ml.GetRunRequest{
		RunId: runID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get run: %w", err)
	}
	if resp.Run.Info.ArtifactUri == "" {
		return "", fmt.Errorf("artifact URI not found for run %s", runID)
	}
	return resp.Run.Info.ArtifactUri, nil
}

// uploadToMLflowArtifacts uploads through the tracking server's artifacts
// service: PUT /api/2.0/mlflow-artifacts/artifacts/{experiment}/{run}/artifacts/{path}
func (c *Client) uploadToMLflowArtifacts(ctx context.Context, artifactURI, filePath, artifactPath string) error {
	experimentID, runID, err := extractIDsFromArtifactURI(artifactURI)
	if err != nil {
		return err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}

	baseURL := strings.TrimSuffix(c.config.TrackingURI, "/")
	url := fmt.Sprintf("%s/api/2.0/mlflow-artifacts/artifacts/%s/%s/artifacts/%s",
		baseURL, experimentID, runID, artifactPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, file)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = fileInfo.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.config.IsDatabricks() && c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("artifact upload failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) uploadToLocalFS(artifactURI, filePath, artifactPath string) error {
	destPath := filepath.Join(strings.TrimPrefix(artifactURI, "file://"), artifactPath)

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	source, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer source.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, source); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	return nil
}

// extractIDsFromArtifactURI pulls the experiment and run ids out of a URI
// like mlflow-artifacts:/0/47485d6a0b734e37aaddc60be04b7371/artifacts.
func extractIDsFromArtifactURI(artifactURI string) (string, string, error) {
	parts := strings.Split(strings.TrimPrefix(artifactURI, "mlflow-artifacts:/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid mlflow-artifacts URI format: %s", artifactURI)
	}
	return parts[0], parts[1], nil
}
