package humanizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/perepys/internal/catalog"
	"github.com/valpere/perepys/internal/chunker"
	"github.com/valpere/perepys/internal/ollama"
	"github.com/valpere/perepys/internal/placeholder"
	"github.com/valpere/perepys/internal/postprocess"
	"github.com/valpere/perepys/internal/validator"
)

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var _ Generator = (*ollama.Client)(nil)

// Model rewrites text with a language model, one request per pass and
// chunk.
type Model struct {
	gen        Generator
	mode       string
	domain     string
	guard      *validator.Validator
	chunkChars int
}

// NewModel returns a model-backed humanizer. guard may be nil to skip the
// language check.
func NewModel(gen Generator, mode, domain string, guard *validator.Validator) *Model {
	return &Model{gen: gen, mode: mode, domain: domain, guard: guard}
}

// WithChunkChars makes each pass rewrite the text in pieces of at most n
// code points. Every piece after the first carries the tail of the
// previous rewritten piece as context. n <= 0 sends the whole text.
func (m *Model) WithChunkChars(n int) *Model {
	m.chunkChars = n
	return m
}

// Humanize runs passes rewrite requests, each over the previous output.
// Protected spans are restored after the last pass; a rewrite that drops
// one, comes back empty, or changes language is an error.
func (m *Model) Humanize(ctx context.Context, text string, passes int) (string, error) {
	protected := placeholder.Protect(text)
	current := protected.Text

	for pass := 1; pass <= passes; pass++ {
		rewritten, err := m.rewritePass(ctx, current, pass, protected.Len() > 0)
		if err != nil {
			return "", err
		}
		current = rewritten
	}

	restored, err := protected.RestoreStrict(current)
	if err != nil {
		return "", err
	}

	if m.guard != nil {
		if err := m.guard.SameLanguage(text, restored); err != nil {
			return "", err
		}
	}
	return restored, nil
}

func (m *Model) rewritePass(ctx context.Context, text string, pass int, hasMarkers bool) (string, error) {
	pieces := chunker.Split(text, m.chunkChars)

	var (
		b        strings.Builder
		previous string
	)
	for i, piece := range pieces {
		lead, core, trail := chunker.Trim(piece)
		if core == "" {
			b.WriteString(piece)
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		var preceding string
		if i > 0 {
			preceding = chunker.ExtractContext(previous, chunker.DefaultContextWords)
		}
		prompt := buildRewritePrompt(m.mode, m.domain, core, preceding, pass, hasMarkers)
		raw, err := m.gen.Generate(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("rewrite pass %d failed: %w", pass, err)
		}
		rewritten := postprocess.CleanAgainst(raw, core)
		if rewritten == "" {
			return "", fmt.Errorf("rewrite pass %d returned empty text", pass)
		}

		b.WriteString(lead)
		b.WriteString(rewritten)
		b.WriteString(trail)
		previous = rewritten
	}
	return b.String(), nil
}

var modeGuidance = map[string]string{
	"academic":     "Keep a formal academic register. Do not use contractions. Keep hedging, claims, and citations intact.",
	"professional": "Write clear, confident business prose. Contractions are fine where they read naturally.",
	"balanced":     "Aim for natural, readable prose between formal and conversational.",
}

func buildRewritePrompt(mode, domain, text, preceding string, pass int, hasMarkers bool) string {
	domainLabel := domain
	for _, e := range catalog.Domains() {
		if e.ID == domain {
			domainLabel = fmt.Sprintf("%s (%s)", e.Name, strings.ToLower(e.Description))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an experienced editor of %s writing.\n\n", domainLabel)
	b.WriteString("Rewrite the text below so it reads as if a careful human wrote it. ")
	b.WriteString("Vary sentence length and structure, replace stock phrases, and remove filler. ")
	b.WriteString("Keep the meaning, facts, numbers, names, and domain terminology exactly.\n")
	if g, ok := modeGuidance[mode]; ok {
		b.WriteString(g)
		b.WriteString("\n")
	}
	if pass > 1 {
		b.WriteString("This text has already been revised once; make lighter, finer edits.\n")
	}
	if hasMarkers {
		b.WriteString(placeholder.InstructionHint())
		b.WriteString("\n")
	}
	b.WriteString("Write in the same language as the text.\n\n")
	if preceding != "" {
		fmt.Fprintf(&b, "PRECEDING TEXT (already rewritten; for continuity only, do not repeat it):\n%s\n\n", preceding)
	}
	fmt.Fprintf(&b, "TEXT:\n%s\n\n", text)
	b.WriteString("Output ONLY the rewritten text. Do not include any explanation.")
	return b.String()
}
