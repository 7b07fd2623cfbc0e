// Package humanizer provides the engines behind the first pipeline stage:
// a deterministic lexicon rewriter and an Ollama-backed model rewriter.
package humanizer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/valpere/perepys/internal/catalog"
)

type lexRule struct {
	re           *regexp.Regexp
	alternatives []string
	minPass      int
}

// Lexical rewrites stock phrases from the catalog lexicon. It holds no
// mutable state and is safe for concurrent use.
type Lexical struct {
	rules []lexRule
}

// NewLexical compiles the embedded lexicon plus extra rules, keeping only
// those that apply to mode and domain.
func NewLexical(mode, domain string, extra []catalog.Rule) (*Lexical, error) {
	cat, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	all := append(append([]catalog.Rule(nil), cat.Lexicon...), extra...)
	var active []catalog.Rule
	for _, r := range all {
		if r.Applies(mode, domain) && len(r.Alternatives) > 0 {
			active = append(active, r)
		}
	}

	// Longest phrase first so "in order to" wins over any rule for "order".
	sort.SliceStable(active, func(i, j int) bool {
		return len(active[i].Phrase) > len(active[j].Phrase)
	})

	l := &Lexical{}
	for _, r := range active {
		re, err := compilePhrase(r.Phrase)
		if err != nil {
			return nil, fmt.Errorf("failed to compile lexicon phrase %q: %w", r.Phrase, err)
		}
		l.rules = append(l.rules, lexRule{re: re, alternatives: r.Alternatives, minPass: r.MinPass})
	}
	return l, nil
}

func compilePhrase(phrase string) (*regexp.Regexp, error) {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.Compile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`)
}

// Humanize applies passes rounds of substitution. Within a pass the n-th
// occurrence of a phrase takes alternative (pass + n) mod len.
func (l *Lexical) Humanize(ctx context.Context, text string, passes int) (string, error) {
	for pass := 1; pass <= passes; pass++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		for _, r := range l.rules {
			if pass < r.minPass {
				continue
			}
			n := 0
			text = r.re.ReplaceAllStringFunc(text, func(match string) string {
				alt := r.alternatives[(pass-1+n)%len(r.alternatives)]
				n++
				return matchCase(match, alt)
			})
		}
	}
	return text, nil
}

// matchCase gives repl the capitalisation pattern of orig: ALL CAPS,
// Leading capital, or unchanged.
func matchCase(orig, repl string) string {
	if repl == "" {
		return repl
	}
	if isUpper(orig) {
		return strings.ToUpper(repl)
	}
	first, _ := utf8.DecodeRuneInString(orig)
	if unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(repl)
		return string(unicode.ToUpper(r)) + repl[size:]
	}
	return repl
}

func isUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}
