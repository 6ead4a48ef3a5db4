package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/speedy-lang/sweep/internal/models"
)

// SweepAxes mirrors the axis flags: one candidate list per axis.
type SweepAxes struct {
	ModelScale  []float64 `json:"model_scale,omitempty" yaml:"model_scale,omitempty"`
	Depth       []int     `json:"depth,omitempty" yaml:"depth,omitempty"`
	Width       []int     `json:"width,omitempty" yaml:"width,omitempty"`
	NumHeads    []int     `json:"num_heads,omitempty" yaml:"num_heads,omitempty"`
	LinearValue []bool    `json:"linear_value,omitempty" yaml:"linear_value,omitempty"`
}

// SweepFile declares a sweep: axes plus run options. Fields left out of the
// file stay nil so callers can tell "absent" from "zero" when merging with
// command-line flags.
type SweepFile struct {
	Axes SweepAxes `json:"axes" yaml:"axes"`

	NumRuns               *int     `json:"num_runs,omitempty" yaml:"num_runs,omitempty"`
	Seed                  *int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
	MaxEpochs             *int     `json:"max_epochs,omitempty" yaml:"max_epochs,omitempty"`
	MaxSteps              *int64   `json:"max_steps,omitempty" yaml:"max_steps,omitempty"`
	MaxTokens             *int64   `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	MaxEpochsBetweenEvals *float64 `json:"max_epochs_between_evals,omitempty" yaml:"max_epochs_between_evals,omitempty"`
	GPUCapacityScalar     *float64 `json:"gpu_capacity_scalar,omitempty" yaml:"gpu_capacity_scalar,omitempty"`
}

// LoadSweepFile reads a sweep declaration, picking the decoder from the file
// extension.
func LoadSweepFile(path string) (*SweepFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sweep file: %w", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return ParseJSONSweepFile(f)
	case ".yaml", ".yml":
		return ParseYAMLSweepFile(f)
	default:
		return nil, fmt.Errorf("unsupported sweep file format: %s", ext)
	}
}

// LoadResult reads a trainer result payload, picking the decoder from the
// file extension.
func LoadResult(path string) (*models.Metrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open result file: %w", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return ParseJSONResult(f)
	case ".yaml", ".yml":
		return ParseYAMLResult(f)
	default:
		return nil, fmt.Errorf("unsupported result file format: %s", ext)
	}
}
