package grammar

import (
	"context"
	"fmt"

	"github.com/valpere/perepys/internal/postprocess"
)

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Model corrects one sentence per request with a language model.
type Model struct {
	gen Generator
}

// NewModel returns a model-backed corrector.
func NewModel(gen Generator) *Model {
	return &Model{gen: gen}
}

// Correct sends sentence to the model. An empty answer returns the
// sentence unchanged.
func (m *Model) Correct(ctx context.Context, sentence string) (string, error) {
	raw, err := m.gen.Generate(ctx, buildCorrectionPrompt(sentence))
	if err != nil {
		return "", fmt.Errorf("correction request failed: %w", err)
	}

	corrected := postprocess.CleanAgainst(raw, sentence)
	if corrected == "" {
		return sentence, nil
	}
	return corrected, nil
}

func buildCorrectionPrompt(sentence string) string {
	return fmt.Sprintf(`You are a meticulous copy editor.

Correct the spelling, grammar, and punctuation of the sentence below.
Change as little as possible. Keep the wording, tone, and meaning.
If the sentence is already correct, return it unchanged.
Return exactly one sentence in the same language.

SENTENCE:
%s

Output ONLY the corrected sentence. Do not include any explanation.`, sentence)
}
