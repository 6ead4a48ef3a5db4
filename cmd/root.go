package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/speedy-lang/sweep/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Ablation sweep driver for the speedy-lang trainer",
	Long: `Drives the external training program through parameterized ablation sweeps:
enumerate hyperparameter combinations, repeat each setting with deterministic
seeds, and record every run's results to a CSV file and/or experiment trackers.

Every run ends with one full evaluation pass regardless of its epoch or step
budget, so final metrics stay comparable across settings.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(viper.GetString("log_level"))
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		log.SetLevel(level)
		return nil
	},
	RunE: runSweep,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	addSweepFlags(rootCmd)

	// Sink flags, routed through viper so SWEEP_* environment overrides work
	rootCmd.Flags().BoolP("log_csv", "l", false, "log results to the CSV logfile")
	rootCmd.Flags().BoolP("log_wandb", "w", false, "log each run to Weights & Biases")
	rootCmd.Flags().Bool("log_mlflow", false, "log each run to MLflow")
	rootCmd.Flags().String("logfile", config.DefaultLogFile(), "CSV results file")
	rootCmd.Flags().Bool("append", false, "append to the logfile instead of truncating it")
	rootCmd.Flags().String("wandb_project", "speedy-lang", "W&B project to log runs under")
	rootCmd.Flags().String("mlflow_experiment", "speedy-lang", "MLflow experiment to log runs under")
	rootCmd.Flags().String("trainer_cmd", "python3 train.py", "trainer command; per-run flags are appended to it")
	rootCmd.PersistentFlags().String("log_level", "info", "log level (debug/info/warn/error)")

	viper.BindPFlag("log_csv", rootCmd.Flags().Lookup("log_csv"))
	viper.BindPFlag("log_wandb", rootCmd.Flags().Lookup("log_wandb"))
	viper.BindPFlag("log_mlflow", rootCmd.Flags().Lookup("log_mlflow"))
	viper.BindPFlag("logfile", rootCmd.Flags().Lookup("logfile"))
	viper.BindPFlag("append", rootCmd.Flags().Lookup("append"))
	viper.BindPFlag("wandb_project", rootCmd.Flags().Lookup("wandb_project"))
	viper.BindPFlag("mlflow_experiment", rootCmd.Flags().Lookup("mlflow_experiment"))
	viper.BindPFlag("trainer_cmd", rootCmd.Flags().Lookup("trainer_cmd"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log_level"))
}

// addSweepFlags registers the flags that shape a sweep. The root command and
// `plan` share them so a plan previews exactly what a run would do.
func addSweepFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Slice("model_scale", []float64{1.0}, "model scale values to sweep (derives depth/width unless both are given)")
	cmd.Flags().IntSlice("depth", nil, "transformer depth values to sweep (requires --width)")
	cmd.Flags().IntSlice("width", nil, "embedding width values to sweep, snapped to multiples of 64 (requires --depth)")
	cmd.Flags().IntSlice("num_heads", []int{1}, "attention head counts to sweep")
	cmd.Flags().BoolSlice("linear_value", []bool{false}, "whether attention value projections stay linear")
	cmd.Flags().Int("num_runs", 1, "training runs per setting, seeded seed, seed+1, ...")
	cmd.Flags().Int64("seed", 100, "base random seed, restarted for every setting")
	cmd.Flags().Int("max_epochs", 3, "epoch budget per run")
	cmd.Flags().Int64("max_steps", 0, "step budget per run (0 = unlimited)")
	cmd.Flags().Int64("max_tokens", 0, "token budget per run (0 = unlimited)")
	cmd.Flags().Float64("max_epochs_between_evals", 0.25, "evaluation cadence in epochs")
	cmd.Flags().Float64("gpu_capacity_scalar", 1.0, "fraction of GPU memory the trainer may plan for")
	cmd.Flags().String("from_file", "", "sweep declaration file (JSON/YAML); explicit flags override its fields")
}

func initConfig() {
	// Environment variables
	viper.SetEnvPrefix("SWEEP")
	viper.AutomaticEnv()

	// Tracker settings keep their conventional environment names
	viper.BindEnv("wandb_api_key", "WANDB_API_KEY")
	viper.BindEnv("wandb_entity", "WANDB_ENTITY")
	viper.BindEnv("wandb_base_url", "WANDB_BASE_URL")
	viper.BindEnv("mlflow_tracking_uri", "MLFLOW_TRACKING_URI")
	viper.BindEnv("mlflow_experiment", "MLFLOW_EXPERIMENT")
	viper.BindEnv("mlflow_token", "DATABRICKS_TOKEN")

	// Set defaults
	viper.SetDefault("mlflow_tracking_uri", "http://localhost:5000")
	viper.SetDefault("log_level", "info")
}
