package sink

import (
	"context"
	"fmt"

	"github.com/speedy-lang/sweep/internal/models"
	"github.com/speedy-lang/sweep/internal/wandb"
)

// wandbClient is the slice of the W&B client the sink uses.
type wandbClient interface {
	CreateRun(ctx context.Context, project, displayName string, config map[string]any) (*wandb.Run, error)
	LogHistory(ctx context.Context, run *wandb.Run, lines []map[string]any) error
	UpdateSummary(ctx context.Context, run *wandb.Run, summary map[string]any) error
	Finish(ctx context.Context, run *wandb.Run, exitCode int) error
}

// WandB logs every run result as its own W&B run: setting coordinates as the
// run config, the evaluation history replayed step by step, finals as the
// summary.
type WandB struct {
	client  wandbClient
	project string
	// base carries sweep-wide config (the forwarded training options),
	// merged under each run's own coordinates.
	base map[string]any

	// owned is the concrete client to release on Close.
	owned *wandb.Client
}

func NewWandB(client *wandb.Client, project string, base map[string]any) *WandB {
	return &WandB{client: client, project: project, base: base, owned: client}
}

func (s *WandB) Log(ctx context.Context, res *models.RunResult) error {
	config := make(map[string]any, len(s.base)+8)
	for key, value := range s.base {
		config[key] = value
	}
	for key, value := range map[string]any{
		"model_scale":  res.ModelScale,
		"depth":        res.Depth,
		"width":        res.Width,
		"num_heads":    res.NumHeads,
		"linear_value": res.LinearValue,
		"run_index":    res.RunIndex,
		"seed":         res.Seed,
		"num_params":   res.NumParams,
	} {
		config[key] = value
	}

	run, err := s.client.CreateRun(ctx, s.project, res.RunName(), config)
	if err != nil {
		return fmt.Errorf("wandb: %w", err)
	}
	if err := s.client.LogHistory(ctx, run, historyLines(res.History)); err != nil {
		return fmt.Errorf("wandb: %w", err)
	}

	summary := make(map[string]any)
	for key, value := range res.Summary() {
		summary[key] = value
	}
	if err := s.client.UpdateSummary(ctx, run, summary); err != nil {
		return fmt.Errorf("wandb: %w", err)
	}
	if err := s.client.Finish(ctx, run, 0); err != nil {
		return fmt.Errorf("wandb: %w", err)
	}
	return nil
}

func (s *WandB) Close(ctx context.Context) error {
	if s.owned != nil {
		s.owned.Close()
	}
	return nil
}

// historyLines renders one history line per evaluation pass in the shape the
// W&B file_stream endpoint expects.
func historyLines(h models.History) []map[string]any {
	lines := make([]map[string]any, 0, h.Evals())
	for i := 0; i < h.Evals(); i++ {
		line := map[string]any{
			"_step":    i,
			"val_loss": h.ValLoss[i],
		}
		if i < len(h.ValAcc) {
			line["val_acc"] = h.ValAcc[i]
		}
		if i < len(h.ValPplx) {
			line["val_pplx"] = h.ValPplx[i]
		}
		if i < len(h.Epoch) {
			line["epoch"] = h.Epoch[i]
		}
		if i < len(h.TokensSeen) {
			line["tokens_seen"] = h.TokensSeen[i]
		}
		if i < len(h.CumTimeSecs) {
			line["_runtime"] = h.CumTimeSecs[i]
		}
		lines = append(lines, line)
	}
	return lines
}
