// Package validator guards a rewrite against drifting into another language.
package validator

import (
	"fmt"
	"strings"

	"github.com/valpere/perepys/internal/detector"
)

// Texts shorter than this many runes are not checked; detection on them
// is unreliable.
const minValidationLength = 20

// Validator compares the language of a rewrite with that of its source.
type Validator struct {
	det *detector.Detector
}

// New returns a Validator over det.
func New(det *detector.Detector) *Validator {
	return &Validator{det: det}
}

// IsValid reports whether text appears to be written in lang (ISO 639-1,
// any case). Short or undetectable texts pass.
func (v *Validator) IsValid(text, lang string) (bool, error) {
	if lang == "" {
		return true, nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return false, fmt.Errorf("text is empty")
	}
	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return true, nil
	}
	if !strings.EqualFold(detected, lang) {
		return false, fmt.Errorf("expected %s but detected %s", lang, detected)
	}
	return true, nil
}

// SameLanguage returns an error when rewrite is empty or is detected as a
// different language than source.
func (v *Validator) SameLanguage(source, rewrite string) error {
	if strings.TrimSpace(rewrite) == "" {
		return fmt.Errorf("rewrite is empty")
	}
	if len([]rune(strings.TrimSpace(source))) < minValidationLength {
		return nil
	}
	lang, ok := v.det.DetectISO(source)
	if !ok {
		return nil
	}
	if _, err := v.IsValid(rewrite, lang); err != nil {
		return fmt.Errorf("language changed: %w", err)
	}
	return nil
}
