package sweep

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/speedy-lang/sweep/internal/models"
)

// Trainer runs one training run to completion. Implementations must end
// every run with exactly one full evaluation pass, whatever the budget in
// opts allows, and report its metrics as the final section of the result.
type Trainer interface {
	Train(ctx context.Context, spec RunSpec, opts TrainOptions) (*models.Metrics, error)
}

// Sink receives each completed run's result exactly once, immediately after
// the run finishes. Sinks are acquired and released by the caller; the driver
// only writes.
type Sink interface {
	Log(ctx context.Context, res *models.RunResult) error
}

// Driver executes a sweep strictly in enumeration order, one run at a time.
// Infeasible settings are skipped without error; the first failing run (or
// failing sink write) aborts the sweep, and everything logged before it
// stays logged.
type Driver struct {
	Grid     *Grid
	Trainer  Trainer
	Sinks    []Sink
	NumRuns  int
	BaseSeed int64
	Opts     TrainOptions

	// Out receives the per-run banners. Defaults to io.Discard.
	Out    io.Writer
	Logger *log.Logger
}

func (d *Driver) Run(ctx context.Context) (*Report, error) {
	if d.Grid == nil || d.Trainer == nil {
		return nil, fmt.Errorf("driver needs a grid and a trainer")
	}
	if d.NumRuns < 1 {
		return nil, fmt.Errorf("num_runs must be at least 1, got %d", d.NumRuns)
	}
	out := d.Out
	if out == nil {
		out = io.Discard
	}
	logger := d.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	settings := d.Grid.Settings()
	totalRuns := d.Grid.FeasibleCount() * d.NumRuns
	report := &Report{Planned: len(settings)}

	runNo := 0
	for i, s := range settings {
		if !s.Feasible() {
			report.Skipped++
			report.Outcomes = append(report.Outcomes, SettingOutcome{Setting: s, Status: SettingSkipped})
			logger.Debug("skipping infeasible setting", "setting", s.String())
			continue
		}

		outcome := SettingOutcome{Setting: s, Status: SettingCompleted}
		for _, spec := range RunSpecs(s, d.NumRuns, d.BaseSeed) {
			if err := ctx.Err(); err != nil {
				outcome.Status = SettingAborted
				report.Outcomes = append(report.Outcomes, outcome)
				return report, err
			}
			runNo++
			fmt.Fprint(out, d.banner(spec, runNo, totalRuns, i+1, len(settings)))

			start := time.Now()
			metrics, err := d.Trainer.Train(ctx, spec, d.Opts)
			if err == nil && metrics == nil {
				err = fmt.Errorf("trainer returned no result")
			}
			if err == nil {
				err = metrics.Normalize()
			}
			if err != nil {
				outcome.Status = SettingAborted
				report.Outcomes = append(report.Outcomes, outcome)
				return report, &RunError{Spec: spec, Err: err}
			}
			if metrics.Final.WallTimeSecs == 0 {
				metrics.Final.WallTimeSecs = time.Since(start).Seconds()
			}

			res := newResult(spec, start, metrics)
			for _, sink := range d.Sinks {
				if err := sink.Log(ctx, res); err != nil {
					outcome.Status = SettingAborted
					report.Outcomes = append(report.Outcomes, outcome)
					return report, &RunError{Spec: spec, Err: fmt.Errorf("logging result: %w", err)}
				}
			}

			outcome.Runs = append(outcome.Runs, spec)
			report.Runs++
			logger.Info("run complete",
				"seed", spec.Seed,
				"val_loss", metrics.Final.ValLoss,
				"val_pplx", metrics.Final.ValPplx,
				"elapsed", time.Since(start).Round(time.Millisecond))
		}

		report.Completed++
		report.Outcomes = append(report.Outcomes, outcome)
	}
	return report, nil
}

func newResult(spec RunSpec, start time.Time, m *models.Metrics) *models.RunResult {
	return &models.RunResult{
		ModelScale:  spec.Setting.ModelScale,
		Depth:       spec.Setting.Depth,
		Width:       spec.Setting.Width,
		NumHeads:    spec.Setting.NumHeads,
		LinearValue: spec.Setting.LinearValue,
		RunIndex:    spec.RunIndex,
		Seed:        spec.Seed,
		StartedAt:   start,
		Metrics:     *m,
	}
}

// banner renders the boxed header printed before each run.
func (d *Driver) banner(spec RunSpec, runNo, totalRuns, settingNo, totalSettings int) string {
	lines := []string{
		fmt.Sprintf("STARTING RUN %d/%d (setting %d/%d, run %d/%d)",
			runNo, totalRuns, settingNo, totalSettings, spec.RunIndex+1, d.NumRuns),
		spec.Setting.String(),
		fmt.Sprintf("seed=%d", spec.Seed),
	}
	width := 0
	for _, l := range lines {
		if len(l) > width {
			width = len(l)
		}
	}
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(strings.Repeat(":", width+8))
	b.WriteString("\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "::: %-*s :::\n", width, l)
	}
	b.WriteString(strings.Repeat(":", width+8))
	b.WriteString("\n")
	return b.String()
}
