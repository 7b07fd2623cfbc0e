// Package grammar provides the sentence correctors used by the second
// pipeline stage.
package grammar

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	reSpaces          = regexp.MustCompile(`[ \t]+`)
	reSpaceBeforePunc = regexp.MustCompile(`[ \t]+([,;:.!?]+)(\s|$)`)
	reNoSpaceAfter    = regexp.MustCompile(`([,;:])(\p{L})`)
	reLowerI          = regexp.MustCompile(`\bi('(?:m|ve|d|ll))?\b`)
)

// Doubled forms that are grammatical.
var allowedRepeats = map[string]bool{
	"had":  true,
	"that": true,
}

// Rules applies deterministic fixes to a sentence: whitespace and
// punctuation spacing, doubled words, the pronoun "I", and the leading
// capital. It is stateless and safe for concurrent use.
type Rules struct{}

// NewRules returns a rule-based corrector.
func NewRules() *Rules {
	return &Rules{}
}

// Correct never fails except on a cancelled context.
func (r *Rules) Correct(ctx context.Context, sentence string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Fix(sentence), nil
}

// Fix applies every rule to s.
func Fix(s string) string {
	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
	s = reSpaceBeforePunc.ReplaceAllString(s, "$1$2")
	s = reNoSpaceAfter.ReplaceAllString(s, "$1 $2")
	s = collapseRepeats(s)
	s = capitalizeI(s)
	return capitalizeFirst(s)
}

func collapseRepeats(s string) string {
	words := strings.Split(s, " ")
	out := make([]string, 0, len(words))
	for _, w := range words {
		if len(out) > 0 {
			prev := out[len(out)-1]
			bare := strings.TrimRight(w, ",;:.!?")
			if isBareWord(prev) && strings.EqualFold(prev, bare) && !allowedRepeats[strings.ToLower(bare)] {
				// keep trailing punctuation of the dropped copy
				out[len(out)-1] = prev + w[len(bare):]
				continue
			}
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

func isBareWord(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func capitalizeI(s string) string {
	locs := reLowerI.FindAllStringIndex(s, -1)
	if locs == nil {
		return s
	}
	b := []byte(s)
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		// "i.e." and dotted initials stay as they are.
		if start > 0 && b[start-1] == '.' {
			continue
		}
		if end+1 < len(b) && b[end] == '.' && isASCIILetter(b[end+1]) {
			continue
		}
		b[start] = 'I'
	}
	return string(b)
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// capitalizeFirst upper-cases the first letter, skipping leading quotes and
// brackets. Sentences that open with a digit or symbol are left alone.
func capitalizeFirst(s string) string {
	for i, r := range s {
		if unicode.IsLetter(r) {
			if unicode.IsUpper(r) {
				return s
			}
			_, size := utf8.DecodeRuneInString(s[i:])
			return s[:i] + string(unicode.ToUpper(r)) + s[i+size:]
		}
		if !strings.ContainsRune("\"'“‘«([", r) {
			return s
		}
	}
	return s
}
