// Package chunker cuts long texts into pieces small enough for a single
// model request, and extracts a trailing-words context snippet so each
// request can see what came before it.
package chunker

import (
	"strings"
	"unicode"
)

// DefaultContextWords is the snippet length used by ExtractContext when
// wordCount is not positive.
const DefaultContextWords = 25

// Split cuts text into pieces of at most maxChars code points. Joining the
// pieces gives back text exactly: whitespace at a cut stays at the end of
// the piece before it. Cuts prefer, in order:
//  1. paragraph breaks
//  2. sentence-ending punctuation followed by whitespace
//  3. any whitespace
//  4. a hard cut at maxChars
//
// maxChars <= 0 means no limit.
func Split(text string, maxChars int) []string {
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return []string{text}
	}

	var pieces []string
	for len(runes) > maxChars {
		cut := findCut(runes[:maxChars])
		pieces = append(pieces, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		pieces = append(pieces, string(runes))
	}
	return pieces
}

// findCut returns the number of runes of window to keep. It is always > 0.
func findCut(window []rune) int {
	n := len(window)

	for i := n - 1; i > 0; i-- {
		if window[i] != '\n' {
			continue
		}
		j := i - 1
		if window[j] == '\r' {
			j--
		}
		if j >= 0 && window[j] == '\n' {
			return i + 1
		}
	}

	for i := n - 2; i > 0; i-- {
		if isTerminal(window[i]) && unicode.IsSpace(window[i+1]) {
			return i + 2
		}
	}

	for i := n - 1; i > 0; i-- {
		if unicode.IsSpace(window[i]) {
			return i + 1
		}
	}

	return n
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

// Trim splits piece into its leading whitespace, core, and trailing
// whitespace, so a rewritten core can be put back in place.
func Trim(piece string) (lead, core, trail string) {
	core = strings.TrimLeftFunc(piece, unicode.IsSpace)
	lead = piece[:len(piece)-len(core)]
	trimmed := strings.TrimRightFunc(core, unicode.IsSpace)
	trail = core[len(trimmed):]
	return lead, trimmed, trail
}

// ExtractContext returns the last wordCount words of text joined by single
// spaces, or all of text when it is shorter. wordCount <= 0 means
// DefaultContextWords.
func ExtractContext(text string, wordCount int) string {
	if wordCount <= 0 {
		wordCount = DefaultContextWords
	}
	words := strings.Fields(text)
	if len(words) > wordCount {
		words = words[len(words)-wordCount:]
	}
	return strings.Join(words, " ")
}
