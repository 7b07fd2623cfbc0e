package pipeline

import "fmt"

// Stage names used in errors and progress output.
const (
	StageHumanize = "humanize"
	StageCorrect  = "correct"
)

// ConfigError reports an invalid mode, domain or pass count.
type ConfigError struct {
	Field string
	Value interface{}
}

func (e *ConfigError) Error() string {
	switch e.Field {
	case "passes":
		return fmt.Sprintf("invalid passes %v: must be between %d and %d", e.Value, MinPasses, MaxPasses)
	default:
		return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	}
}

// InitError reports an engine that could not be loaded. A Coordinator is
// never returned alongside it.
type InitError struct {
	Engine string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("failed to load %s engine: %v", e.Engine, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// ProcessingError reports a failed humanize or correct call. Unit is the
// 0-based order of the failing unit for the correct stage, -1 otherwise.
type ProcessingError struct {
	Stage string
	Unit  int
	Err   error
}

func (e *ProcessingError) Error() string {
	if e.Stage == StageCorrect && e.Unit >= 0 {
		return fmt.Sprintf("%s stage failed on unit %d: %v", e.Stage, e.Unit+1, e.Err)
	}
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }
