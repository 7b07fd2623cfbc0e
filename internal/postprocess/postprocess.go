// Package postprocess strips the artifacts language models add around a
// rewritten or corrected text: reasoning blocks, leading preambles, and
// wrapping quotes.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes model artifacts from text and returns the trimmed result.
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removePreambles(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// CleanAgainst behaves like Clean but keeps wrapping quotes when source was
// itself wrapped in the same pair.
func CleanAgainst(text, source string) string {
	text = removeThinkingBlocks(text)
	text = removePreambles(text)
	if _, _, ok := quotePair(strings.TrimSpace(source)); !ok {
		text = removeQuoteWrapping(text)
	}
	return strings.TrimSpace(text)
}

// RE2 has no backreferences, so each tag pair is spelled out.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// An opened tag with no closing tag: the model was cut off mid-thought.
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Preambles are anchored at the start and must end in a colon.
var (
	preambleAdjectives = `(?:rewritten |revised |humanized |corrected |improved |edited |polished )?`
	preambleNouns      = `(?:text|version|sentence|paragraph|passage)`

	preamblePatterns = []*regexp.Regexp{
		// "Here is / Here's [the] [rewritten] text:"
		regexp.MustCompile(`(?i)^here(?:'s| is)(?: the| your)? ` + preambleAdjectives + preambleNouns + `\s*:`),
		// "[The] corrected sentence:" / "Rewritten version:"
		regexp.MustCompile(`(?i)^(?:the )?` + preambleAdjectives + preambleNouns + `\s*:`),
		// "Sure, here's the revised text:"
		regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.!]? here(?:'s| is)(?: the| your)? ` + preambleAdjectives + preambleNouns + `\s*:`),
	}
)

func removePreambles(text string) string {
	for _, re := range preamblePatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

func quotePair(text string) (rune, rune, bool) {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return 0, 0, false
	}
	first, last := runes[0], runes[n-1]
	switch {
	case first == '"' && last == '"',
		first == '\'' && last == '\'',
		first == '«' && last == '»',
		first == '“' && last == '”',
		first == '‘' && last == '’':
		return first, last, true
	}
	return 0, 0, false
}

func removeQuoteWrapping(text string) string {
	if _, _, ok := quotePair(text); !ok {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[1 : len(runes)-1]))
}
