package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/speedy-lang/sweep/internal/config"
	"github.com/speedy-lang/sweep/internal/mlflow"
	"github.com/speedy-lang/sweep/internal/parser"
	"github.com/speedy-lang/sweep/internal/sink"
	"github.com/speedy-lang/sweep/internal/sweep"
	"github.com/speedy-lang/sweep/internal/trainer"
	"github.com/speedy-lang/sweep/internal/wandb"
)

// sweepParams is the fully merged sweep shape: flags over sweep file over
// defaults.
type sweepParams struct {
	grid     *sweep.Grid
	numRuns  int
	baseSeed int64
	opts     sweep.TrainOptions
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !cfg.SinksEnabled() {
		log.Warn("no sinks enabled; results will only appear in the console output")
	}

	params, err := buildSweepParams(cmd)
	if err != nil {
		return err
	}
	if params.grid.DimsOverrideScale() {
		log.Warn("explicit depth/width override model_scale; scale values are recorded but do not set dimensions")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sinks, cleanup, err := buildSinks(ctx, cfg, params.opts)
	if err != nil {
		return err
	}
	defer cleanup(context.Background())

	driver := &sweep.Driver{
		Grid:     params.grid,
		Trainer:  &trainer.Exec{Command: cfg.TrainerCmd, Logger: log.Default()},
		Sinks:    sinks,
		NumRuns:  params.numRuns,
		BaseSeed: params.baseSeed,
		Opts:     params.opts,
		Out:      os.Stdout,
		Logger:   log.Default(),
	}

	log.Info("starting sweep",
		"settings", params.grid.Count(),
		"feasible", params.grid.FeasibleCount(),
		"runs_per_setting", params.numRuns,
		"total_runs", params.grid.FeasibleCount()*params.numRuns)

	report, err := driver.Run(ctx)
	if err != nil {
		if report != nil && report.Runs > 0 {
			log.Error("sweep aborted; results logged so far are kept", "completed_runs", report.Runs)
		}
		return err
	}

	log.Info("sweep complete",
		"settings", report.Planned,
		"completed", report.Completed,
		"skipped", report.Skipped,
		"runs", report.Runs)

	return nil
}

// buildSweepParams assembles the grid and run shape from the command flags,
// with an optional sweep file underneath: file values apply only where the
// flag was not set on the command line.
func buildSweepParams(cmd *cobra.Command) (*sweepParams, error) {
	flags := cmd.Flags()

	axes := sweep.Axes{}
	axes.ModelScales, _ = flags.GetFloat64Slice("model_scale")
	axes.Depths, _ = flags.GetIntSlice("depth")
	axes.Widths, _ = flags.GetIntSlice("width")
	axes.NumHeads, _ = flags.GetIntSlice("num_heads")
	axes.LinearValues, _ = flags.GetBoolSlice("linear_value")

	numRuns, _ := flags.GetInt("num_runs")
	baseSeed, _ := flags.GetInt64("seed")

	opts := sweep.TrainOptions{}
	opts.MaxEpochs, _ = flags.GetInt("max_epochs")
	opts.MaxSteps, _ = flags.GetInt64("max_steps")
	opts.MaxTokens, _ = flags.GetInt64("max_tokens")
	opts.MaxEpochsBetweenEvals, _ = flags.GetFloat64("max_epochs_between_evals")
	opts.GPUCapacityScalar, _ = flags.GetFloat64("gpu_capacity_scalar")

	if fromFile, _ := flags.GetString("from_file"); fromFile != "" {
		sf, err := parser.LoadSweepFile(fromFile)
		if err != nil {
			return nil, err
		}

		if !flags.Changed("model_scale") && len(sf.Axes.ModelScale) > 0 {
			axes.ModelScales = sf.Axes.ModelScale
		}
		if !flags.Changed("depth") && len(sf.Axes.Depth) > 0 {
			axes.Depths = sf.Axes.Depth
		}
		if !flags.Changed("width") && len(sf.Axes.Width) > 0 {
			axes.Widths = sf.Axes.Width
		}
		if !flags.Changed("num_heads") && len(sf.Axes.NumHeads) > 0 {
			axes.NumHeads = sf.Axes.NumHeads
		}
		if !flags.Changed("linear_value") && len(sf.Axes.LinearValue) > 0 {
			axes.LinearValues = sf.Axes.LinearValue
		}

		if !flags.Changed("num_runs") && sf.NumRuns != nil {
			numRuns = *sf.NumRuns
		}
		if !flags.Changed("seed") && sf.Seed != nil {
			baseSeed = *sf.Seed
		}
		if !flags.Changed("max_epochs") && sf.MaxEpochs != nil {
			opts.MaxEpochs = *sf.MaxEpochs
		}
		if !flags.Changed("max_steps") && sf.MaxSteps != nil {
			opts.MaxSteps = *sf.MaxSteps
		}
		if !flags.Changed("max_tokens") && sf.MaxTokens != nil {
			opts.MaxTokens = *sf.MaxTokens
		}
		if !flags.Changed("max_epochs_between_evals") && sf.MaxEpochsBetweenEvals != nil {
			opts.MaxEpochsBetweenEvals = *sf.MaxEpochsBetweenEvals
		}
		if !flags.Changed("gpu_capacity_scalar") && sf.GPUCapacityScalar != nil {
			opts.GPUCapacityScalar = *sf.GPUCapacityScalar
		}
	}

	if numRuns < 1 {
		return nil, fmt.Errorf("num_runs must be at least 1, got %d", numRuns)
	}

	grid, err := sweep.NewGrid(axes)
	if err != nil {
		return nil, err
	}

	return &sweepParams{grid: grid, numRuns: numRuns, baseSeed: baseSeed, opts: opts}, nil
}

// buildSinks opens every enabled sink. The returned cleanup closes them in
// reverse order once the sweep is over.
func buildSinks(ctx context.Context, cfg *config.Config, opts sweep.TrainOptions) ([]sweep.Sink, func(context.Context), error) {
	type closer interface {
		Close(ctx context.Context) error
	}

	var sinks []sweep.Sink
	var closers []closer

	cleanup := func(ctx context.Context) {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(ctx); err != nil {
				log.Error("failed to close sink", "error", err)
			}
		}
	}

	var csvSink *sink.CSV
	if cfg.LogCSV {
		var err error
		csvSink, err = sink.OpenCSV(cfg.LogFile, cfg.Append)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, csvSink)
		closers = append(closers, csvSink)
		log.Info("logging to CSV", "file", csvSink.Path(), "append", cfg.Append)
	}

	if cfg.LogWandB {
		client, err := wandb.NewClient(wandb.Config{
			BaseURL: cfg.WandBBaseURL,
			APIKey:  cfg.WandBAPIKey,
			Entity:  cfg.WandBEntity,
		})
		if err != nil {
			cleanup(ctx)
			return nil, nil, err
		}
		wb := sink.NewWandB(client, cfg.WandBProject, trainerConfig(opts))
		sinks = append(sinks, wb)
		closers = append(closers, wb)
		log.Info("logging to W&B", "project", cfg.WandBProject)
	}

	if cfg.LogMLflow {
		client, err := mlflow.NewClient(mlflow.Config{
			TrackingURI: cfg.MLflowTrackingURI,
			Token:       cfg.MLflowToken,
		})
		if err != nil {
			cleanup(ctx)
			return nil, nil, err
		}
		// With CSV also enabled the results table gets attached as an
		// artifact when the sink closes.
		artifactFile := ""
		if csvSink != nil {
			artifactFile = csvSink.Path()
		}
		ml, err := sink.NewMLflow(ctx, client, cfg.MLflowExperiment, artifactFile)
		if err != nil {
			cleanup(ctx)
			return nil, nil, err
		}
		sinks = append(sinks, ml)
		closers = append(closers, ml)
		log.Info("logging to MLflow", "experiment", cfg.MLflowExperiment, "tracking_uri", cfg.MLflowTrackingURI)
	}

	return sinks, cleanup, nil
}

// trainerConfig renders the forwarded training options as tracker config, so
// every logged run records the budget it trained under.
func trainerConfig(opts sweep.TrainOptions) map[string]any {
	out := map[string]any{
		"max_epochs":               opts.MaxEpochs,
		"max_epochs_between_evals": opts.MaxEpochsBetweenEvals,
		"gpu_capacity_scalar":      opts.GPUCapacityScalar,
	}
	if opts.MaxSteps > 0 {
		out["max_steps"] = opts.MaxSteps
	}
	if opts.MaxTokens > 0 {
		out["max_tokens"] = opts.MaxTokens
	}
	return out
}
