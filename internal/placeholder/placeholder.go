// Package placeholder shields content a rewrite must not touch (code,
// markup, URLs, numeric citations, inline math) by swapping it for numbered
// markers such as [PH0] before the text reaches a model.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reFencedCode = regexp.MustCompile("(?s)```.*?```")
	reInlineCode = regexp.MustCompile("`[^`]+`")
	reHTMLTag    = regexp.MustCompile(`<[^>]+>`)
	reURL        = regexp.MustCompile(`https?://[^\s<>()\[\]]*[^\s<>()\[\].,;:!?'"]`)
	reCitation   = regexp.MustCompile(`\[\d+(?:\s*[,–-]\s*\d+)*\]`)
	reInlineMath = regexp.MustCompile(`\$[^$\n]+\$`)

	rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Protected is a text with its shielded spans replaced by markers.
type Protected struct {
	Text      string
	originals []string
}

// Len returns how many spans were shielded.
func (p Protected) Len() int {
	return len(p.originals)
}

// Protect replaces shielded spans with [PH0], [PH1], ... Longer constructs
// are matched first so a URL inside a code block stays part of the block.
func Protect(text string) Protected {
	var originals []string
	replace := func(match string) string {
		id := fmt.Sprintf("[PH%d]", len(originals))
		originals = append(originals, match)
		return id
	}

	for _, re := range []*regexp.Regexp{reFencedCode, reInlineCode, reHTMLTag, reURL, reCitation, reInlineMath} {
		text = re.ReplaceAllStringFunc(text, replace)
	}
	return Protected{Text: text, originals: originals}
}

// Restore puts the shielded spans back into out. Unknown indices are left
// as they are.
func (p Protected) Restore(out string) string {
	return rePlaceholder.ReplaceAllStringFunc(out, func(match string) string {
		sub := rePlaceholder.FindStringSubmatch(match)
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx < 0 || idx >= len(p.originals) {
			return match
		}
		return p.originals[idx]
	})
}

// Missing returns the indices of markers absent from out.
func (p Protected) Missing(out string) []int {
	var missing []int
	for i := range p.originals {
		if !strings.Contains(out, fmt.Sprintf("[PH%d]", i)) {
			missing = append(missing, i)
		}
	}
	return missing
}

// RestoreStrict is Restore but fails when a marker was dropped.
func (p Protected) RestoreStrict(out string) (string, error) {
	if missing := p.Missing(out); len(missing) > 0 {
		return "", fmt.Errorf("rewrite dropped %d protected span(s): %v", len(missing), missing)
	}
	return p.Restore(out), nil
}

// InstructionHint is appended to prompts when Len() > 0.
func InstructionHint() string {
	return "Keep every [PHn] marker exactly as written. Do not rewrite, move, or remove them."
}
