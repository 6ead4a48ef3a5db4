package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/speedy-lang/sweep/internal/sweep"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Enumerate a sweep without training",
	Long: `Resolve and list every setting the sweep would visit, in order, with
derived dimensions, feasibility, and seed assignments. No trainer is invoked
and no sink is touched.`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	addSweepFlags(planCmd)
	planCmd.Flags().String("format", "text", "output format (text/json/yaml)")
}

type planSetting struct {
	ModelScale  float64 `json:"model_scale" yaml:"model_scale"`
	Depth       int     `json:"depth" yaml:"depth"`
	Width       int     `json:"width" yaml:"width"`
	NumHeads    int     `json:"num_heads" yaml:"num_heads"`
	LinearValue bool    `json:"linear_value" yaml:"linear_value"`
	Feasible    bool    `json:"feasible" yaml:"feasible"`
	Seeds       []int64 `json:"seeds,omitempty" yaml:"seeds,omitempty"`
}

type planDoc struct {
	Settings       []planSetting `json:"settings" yaml:"settings"`
	TotalSettings  int           `json:"total_settings" yaml:"total_settings"`
	Feasible       int           `json:"feasible_settings" yaml:"feasible_settings"`
	RunsPerSetting int           `json:"runs_per_setting" yaml:"runs_per_setting"`
	TotalRuns      int           `json:"total_runs" yaml:"total_runs"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	params, err := buildSweepParams(cmd)
	if err != nil {
		return err
	}

	doc := buildPlanDoc(params)

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "text":
		printPlanText(doc)
		return nil
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", format)
	}
}

func buildPlanDoc(params *sweepParams) *planDoc {
	doc := &planDoc{
		TotalSettings:  params.grid.Count(),
		RunsPerSetting: params.numRuns,
	}
	for _, s := range params.grid.Settings() {
		entry := planSetting{
			ModelScale:  s.ModelScale,
			Depth:       s.Depth,
			Width:       s.Width,
			NumHeads:    s.NumHeads,
			LinearValue: s.LinearValue,
			Feasible:    s.Feasible(),
		}
		if entry.Feasible {
			doc.Feasible++
			for _, spec := range sweep.RunSpecs(s, params.numRuns, params.baseSeed) {
				entry.Seeds = append(entry.Seeds, spec.Seed)
			}
		}
		doc.Settings = append(doc.Settings, entry)
	}
	doc.TotalRuns = doc.Feasible * params.numRuns
	return doc
}

func printPlanText(doc *planDoc) {
	for i, s := range doc.Settings {
		status := "run"
		if !s.Feasible {
			status = "skip (width not divisible by num_heads)"
		}
		fmt.Printf("%3d. model_scale=%g depth=%d width=%d num_heads=%d linear_value=%t  %s\n",
			i+1, s.ModelScale, s.Depth, s.Width, s.NumHeads, s.LinearValue, status)
		if len(s.Seeds) > 0 {
			fmt.Printf("     seeds: %v\n", s.Seeds)
		}
	}
	fmt.Printf("\n%d settings, %d feasible, %d runs per setting: %d training runs\n",
		doc.TotalSettings, doc.Feasible, doc.RunsPerSetting, doc.TotalRuns)
}
