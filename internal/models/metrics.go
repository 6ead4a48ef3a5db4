package models

import (
	"fmt"
	"math"
)

// Metrics is the payload a trainer reports for a single run: model size,
// final metrics from the closing evaluation pass, and the history series
// accumulated while training.
type Metrics struct {
	NumParams int64         `json:"num_params" yaml:"num_params"`
	Final     *FinalMetrics `json:"final" yaml:"final"`
	History   History       `json:"history" yaml:"history"`
}

// FinalMetrics come from the evaluation pass every run ends with.
type FinalMetrics struct {
	TrainLoss    float64 `json:"train_loss" yaml:"train_loss"`
	TrainAcc     float64 `json:"train_acc" yaml:"train_acc"`
	ValLoss      float64 `json:"val_loss" yaml:"val_loss"`
	ValAcc       float64 `json:"val_acc" yaml:"val_acc"`
	ValPplx      float64 `json:"val_pplx,omitempty" yaml:"val_pplx,omitempty"`
	Epoch        float64 `json:"epoch" yaml:"epoch"`
	TokensSeen   int64   `json:"tokens_seen" yaml:"tokens_seen"`
	WallTimeSecs float64 `json:"wall_time_secs" yaml:"wall_time_secs"`
}

// History holds the series a trainer accumulates. The train-side series are
// sampled at the trainer's reporting interval; the val-side series carry one
// entry per evaluation pass, in training order, and share a common length.
type History struct {
	TrainLoss []float64 `json:"train_loss,omitempty" yaml:"train_loss,omitempty"`
	TrainAcc  []float64 `json:"train_acc,omitempty" yaml:"train_acc,omitempty"`
	TrainPplx []float64 `json:"train_pplx,omitempty" yaml:"train_pplx,omitempty"`
	GradNorm  []float64 `json:"grad_norm,omitempty" yaml:"grad_norm,omitempty"`

	ValLoss     []float64 `json:"val_loss,omitempty" yaml:"val_loss,omitempty"`
	ValAcc      []float64 `json:"val_acc,omitempty" yaml:"val_acc,omitempty"`
	ValPplx     []float64 `json:"val_pplx,omitempty" yaml:"val_pplx,omitempty"`
	Epoch       []float64 `json:"epoch,omitempty" yaml:"epoch,omitempty"`
	TokensSeen  []int64   `json:"tokens_seen,omitempty" yaml:"tokens_seen,omitempty"`
	CumTimeSecs []float64 `json:"cumulative_secs,omitempty" yaml:"cumulative_secs,omitempty"`
}

// Evals returns the number of evaluation passes recorded in the history.
func (h History) Evals() int {
	return len(h.ValLoss)
}

// Normalize validates that the trainer honored the end-of-run evaluation
// contract and backfills perplexity from loss where the trainer omitted it.
func (m *Metrics) Normalize() error {
	if m.Final == nil {
		return fmt.Errorf("missing final metrics section")
	}
	if m.History.Evals() == 0 {
		return fmt.Errorf("history records no evaluation pass")
	}
	for name, n := range map[string]int{
		"val_acc":     len(m.History.ValAcc),
		"epoch":       len(m.History.Epoch),
		"tokens_seen": len(m.History.TokensSeen),
	} {
		if n != 0 && n != m.History.Evals() {
			return fmt.Errorf("history series %s has %d entries, want %d", name, n, m.History.Evals())
		}
	}
	if m.Final.ValPplx == 0 && m.Final.ValLoss != 0 {
		m.Final.ValPplx = math.Exp(m.Final.ValLoss)
	}
	if len(m.History.ValPplx) == 0 {
		for _, l := range m.History.ValLoss {
			m.History.ValPplx = append(m.History.ValPplx, math.Exp(l))
		}
	}
	return nil
}
