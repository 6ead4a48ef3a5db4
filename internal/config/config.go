package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Version is the tool's release tag. The default results file name is
// derived from it so consecutive releases never clobber older sweeps.
const Version = "0.4.1"

// Valid configuration values
var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Config carries everything outside the sweep shape itself: sink settings,
// tracker endpoints and credentials, the trainer command, and logging.
type Config struct {
	LogCSV  bool
	LogFile string
	Append  bool

	LogWandB     bool
	WandBProject string
	WandBEntity  string
	WandBBaseURL string
	WandBAPIKey  string

	LogMLflow         bool
	MLflowTrackingURI string
	MLflowExperiment  string
	MLflowToken       string

	TrainerCmd string
	LogLevel   string
}

func New() *Config {
	return &Config{
		LogCSV:  viper.GetBool("log_csv"),
		LogFile: viper.GetString("logfile"),
		Append:  viper.GetBool("append"),

		LogWandB:     viper.GetBool("log_wandb"),
		WandBProject: viper.GetString("wandb_project"),
		WandBEntity:  viper.GetString("wandb_entity"),
		WandBBaseURL: viper.GetString("wandb_base_url"),
		WandBAPIKey:  viper.GetString("wandb_api_key"),

		LogMLflow:         viper.GetBool("log_mlflow"),
		MLflowTrackingURI: viper.GetString("mlflow_tracking_uri"),
		MLflowExperiment:  viper.GetString("mlflow_experiment"),
		MLflowToken:       viper.GetString("mlflow_token"),

		TrainerCmd: viper.GetString("trainer_cmd"),
		LogLevel:   viper.GetString("log_level"),
	}
}

func (c *Config) Validate() error {
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel)
	}

	if c.LogCSV && c.LogFile == "" {
		return fmt.Errorf("logfile is required when CSV logging is enabled")
	}

	if c.LogWandB {
		if c.WandBProject == "" {
			return fmt.Errorf("wandb project is required when W&B logging is enabled")
		}
		if c.WandBAPIKey == "" {
			return fmt.Errorf("wandb API key is required when W&B logging is enabled (set WANDB_API_KEY)")
		}
	}

	if c.LogMLflow {
		if c.MLflowTrackingURI == "" {
			return fmt.Errorf("MLflow tracking URI is required when MLflow logging is enabled (set MLFLOW_TRACKING_URI)")
		}
		if c.MLflowExperiment == "" {
			return fmt.Errorf("MLflow experiment is required when MLflow logging is enabled")
		}
	}

	if strings.TrimSpace(c.TrainerCmd) == "" {
		return fmt.Errorf("trainer command must not be empty")
	}

	return nil
}

// SinksEnabled reports whether at least one sink is configured. A sweep with
// none is legal; results then only appear in the console output.
func (c *Config) SinksEnabled() bool {
	return c.LogCSV || c.LogWandB || c.LogMLflow
}

// DefaultLogFile is the versioned results file name: 0.4.1 -> results_041.csv.
func DefaultLogFile() string {
	return "results_" + strings.ReplaceAll(Version, ".", "") + ".csv"
}
