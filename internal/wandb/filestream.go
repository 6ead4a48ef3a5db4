package wandb

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	historyFile = "wandb-history.jsonl"
	summaryFile = "wandb-summary.json"
)

type fileStreamRequest struct {
	Files    map[string]fileChunk `json:"files,omitempty"`
	Complete *bool                `json:"complete,omitempty"`
	ExitCode *int                 `json:"exitcode,omitempty"`
}

type fileChunk struct {
	Offset  int      `json:"offset"`
	Content []string `json:"content"`
}

// LogHistory streams history lines to the run, one JSON object per step.
// Lines are appended after everything streamed so far.
func (c *Client) LogHistory(ctx context.Context, run *Run, lines []map[string]any) error {
	if len(lines) == 0 {
		return nil
	}
	content := make([]string, len(lines))
	for i, line := range lines {
		encoded, err := json.Marshal(line)
		if err != nil {
			return fmt.Errorf("failed to encode history line: %w", err)
		}
		content[i] = string(encoded)
	}

	req := fileStreamRequest{
		Files: map[string]fileChunk{
			historyFile: {Offset: run.offset, Content: content},
		},
	}
	if err := c.postFileStream(ctx, run, req); err != nil {
		return fmt.Errorf("failed to log history: %w", err)
	}
	run.offset += len(lines)
	return nil
}

// UpdateSummary replaces the run's summary object.
func (c *Client) UpdateSummary(ctx context.Context, run *Run, summary map[string]any) error {
	encoded, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	req := fileStreamRequest{
		Files: map[string]fileChunk{
			summaryFile: {Offset: 0, Content: []string{string(encoded)}},
		},
	}
	if err := c.postFileStream(ctx, run, req); err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}
	return nil
}

// Finish marks the run complete with the given exit code.
func (c *Client) Finish(ctx context.Context, run *Run, exitCode int) error {
	complete := true
	req := fileStreamRequest{Complete: &complete, ExitCode: &exitCode}
	if err := c.postFileStream(ctx, run, req); err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

func (c *Client) postFileStream(ctx context.Context, run *Run, req fileStreamRequest) error {
	path := fmt.Sprintf("/files/%s/%s/%s/file_stream", run.Entity, run.Project, run.Name)
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post(path)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("status %d: %s", res.StatusCode(), res.String())
	}
	return nil
}
