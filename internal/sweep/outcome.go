package sweep

import "fmt"

type SettingStatus string

const (
	SettingCompleted SettingStatus = "completed"
	SettingSkipped   SettingStatus = "skipped"
	SettingAborted   SettingStatus = "aborted"
)

// Report summarizes a sweep: one outcome per enumerated setting, in
// enumeration order, plus totals.
type Report struct {
	Planned   int
	Skipped   int
	Completed int
	// Runs counts training runs that finished and were logged to every sink.
	Runs     int
	Outcomes []SettingOutcome
}

// SettingOutcome records what happened to one setting. Runs lists the run
// specs that completed; an aborted setting keeps the runs that finished
// before the failure.
type SettingOutcome struct {
	Setting Setting
	Status  SettingStatus
	Runs    []RunSpec
}

// RunError identifies the training run a sweep aborted on.
type RunError struct {
	Spec RunSpec
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %d (seed %d) of setting [%s] failed: %v",
		e.Spec.RunIndex, e.Spec.Seed, e.Spec.Setting, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
