package sweep

// RunSpec pins one training run: a setting, its position in the per-setting
// repeat sequence, and the seed derived for it.
type RunSpec struct {
	Setting  Setting
	RunIndex int
	Seed     int64
}

// RunSpecs expands a setting into its runs. Seed i is baseSeed+i, and the
// sequence restarts from baseSeed for every setting, so matched run indices
// stay comparable across settings.
func RunSpecs(s Setting, numRuns int, baseSeed int64) []RunSpec {
	specs := make([]RunSpec, numRuns)
	for i := range specs {
		specs[i] = RunSpec{Setting: s, RunIndex: i, Seed: baseSeed + int64(i)}
	}
	return specs
}

// TrainOptions are forwarded to the trainer unchanged. Zero limits mean
// unlimited.
type TrainOptions struct {
	MaxEpochs             int
	MaxSteps              int64
	MaxTokens             int64
	MaxEpochsBetweenEvals float64
	GPUCapacityScalar     float64
}
