package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RunResult is the record produced after one training run completes: the
// setting coordinates and seed it ran under, flattened next to everything the
// trainer reported. Each result is written once to every enabled sink and not
// retained afterwards.
type RunResult struct {
	ModelScale  float64
	Depth       int
	Width       int
	NumHeads    int
	LinearValue bool

	RunIndex  int
	Seed      int64
	StartedAt time.Time

	Metrics
}

// RunName is the display name used for tracker runs.
func (r *RunResult) RunName() string {
	name := fmt.Sprintf("d%d-w%d-h%d-seed%d", r.Depth, r.Width, r.NumHeads, r.Seed)
	if r.LinearValue {
		name += "-linv"
	}
	return name
}

// Params flattens the run's coordinates into tracker parameters.
func (r *RunResult) Params() map[string]string {
	return map[string]string{
		"model_scale":  formatFloat(r.ModelScale),
		"depth":        strconv.Itoa(r.Depth),
		"width":        strconv.Itoa(r.Width),
		"num_heads":    strconv.Itoa(r.NumHeads),
		"linear_value": strconv.FormatBool(r.LinearValue),
		"run_index":    strconv.Itoa(r.RunIndex),
		"seed":         strconv.FormatInt(r.Seed, 10),
		"num_params":   strconv.FormatInt(r.NumParams, 10),
	}
}

// Summary holds the final metrics keyed the way trackers report them.
func (r *RunResult) Summary() map[string]float64 {
	return map[string]float64{
		"train_loss":     r.Final.TrainLoss,
		"train_acc":      r.Final.TrainAcc,
		"val_loss":       r.Final.ValLoss,
		"val_acc":        r.Final.ValAcc,
		"val_pplx":       r.Final.ValPplx,
		"epochs":         r.Final.Epoch,
		"tokens_seen":    float64(r.Final.TokensSeen),
		"wall_time_secs": r.Final.WallTimeSecs,
		"num_params":     float64(r.NumParams),
	}
}

// ResultHeader is the column order shared by every tabular sink.
func ResultHeader() []string {
	return []string{
		"model_scale", "depth", "width", "num_heads", "linear_value",
		"run_index", "seed", "num_params",
		"train_loss", "train_acc", "val_loss", "val_acc", "val_pplx",
		"epochs", "tokens_seen", "wall_time_secs",
		"train_losses", "train_accs", "train_pplxs", "grad_norms",
		"val_losses", "val_accs", "val_pplxs",
		"epochs_at_eval", "tokens_at_eval", "cumulative_secs",
	}
}

// Record renders the result in ResultHeader order. History series are encoded
// as bracketed lists so a row stays one line of CSV.
func (r *RunResult) Record() []string {
	return []string{
		formatFloat(r.ModelScale),
		strconv.Itoa(r.Depth),
		strconv.Itoa(r.Width),
		strconv.Itoa(r.NumHeads),
		strconv.FormatBool(r.LinearValue),
		strconv.Itoa(r.RunIndex),
		strconv.FormatInt(r.Seed, 10),
		strconv.FormatInt(r.NumParams, 10),
		formatFloat(r.Final.TrainLoss),
		formatFloat(r.Final.TrainAcc),
		formatFloat(r.Final.ValLoss),
		formatFloat(r.Final.ValAcc),
		formatFloat(r.Final.ValPplx),
		formatFloat(r.Final.Epoch),
		strconv.FormatInt(r.Final.TokensSeen, 10),
		formatFloat(r.Final.WallTimeSecs),
		formatFloatSeries(r.History.TrainLoss),
		formatFloatSeries(r.History.TrainAcc),
		formatFloatSeries(r.History.TrainPplx),
		formatFloatSeries(r.History.GradNorm),
		formatFloatSeries(r.History.ValLoss),
		formatFloatSeries(r.History.ValAcc),
		formatFloatSeries(r.History.ValPplx),
		formatFloatSeries(r.History.Epoch),
		formatIntSeries(r.History.TokensSeen),
		formatFloatSeries(r.History.CumTimeSecs),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatFloatSeries(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func formatIntSeries(vs []int64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
