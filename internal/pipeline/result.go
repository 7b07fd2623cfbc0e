package pipeline

import (
	"strings"
	"unicode/utf8"
)

// Metrics are word and character counts of a processing call. Words are
// whitespace-delimited tokens; characters are Unicode code points.
type Metrics struct {
	OriginalWords int `json:"original_words"`
	ResultWords   int `json:"result_words"`
	OriginalChars int `json:"original_chars"`
	ResultChars   int `json:"result_chars"`
}

// Result is the final text of a processing call and its metrics.
type Result struct {
	Text    string  `json:"result"`
	Metrics Metrics `json:"metrics"`
}

// NewResult computes metrics for an original/result pair.
func NewResult(original, result string) *Result {
	return &Result{
		Text: result,
		Metrics: Metrics{
			OriginalWords: WordCount(original),
			ResultWords:   WordCount(result),
			OriginalChars: CharCount(original),
			ResultChars:   CharCount(result),
		},
	}
}

// WordCount returns the number of whitespace-delimited tokens in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// CharCount returns the number of code points in s.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}
