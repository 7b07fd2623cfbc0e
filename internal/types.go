package internal

import (
	"fmt"
	"time"
)

// ProcessingRun records one pass of a text through the pipeline.
type ProcessingRun struct {
	ID          string `json:"id"`
	Mode        string `json:"mode"`
	Domain      string `json:"domain"`
	UseML       bool   `json:"use_ml"`
	Passes      int    `json:"passes"`
	SkipGrammar bool   `json:"skip_grammar"`
	// Engine names the backends that produced the result, e.g.
	// "lexical+rules" or "ollama:llama3.2+rules".
	Engine string `json:"engine"`

	SourceText string `json:"source_text"`
	ResultText string `json:"result_text"`

	OriginalWords int `json:"original_words"`
	ResultWords   int `json:"result_words"`
	OriginalChars int `json:"original_chars"`
	ResultChars   int `json:"result_chars"`

	Duration  time.Duration `json:"duration"`
	Cached    bool          `json:"cached"`
	Timestamp time.Time     `json:"timestamp"`
}

// ConfigKey identifies the settings that determine a run's result. Two runs
// over the same text with the same key are interchangeable.
func (r ProcessingRun) ConfigKey() string {
	return fmt.Sprintf("%s/%s/ml=%t/passes=%d/grammar=%t/%s",
		r.Mode, r.Domain, r.UseML, r.Passes, !r.SkipGrammar, r.Engine)
}
