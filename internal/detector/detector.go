// Package detector identifies the language of a text.
package detector

import (
	"fmt"
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over every language lingua knows. Building it is
// slow and memory hungry; share the instance.
func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

// NewForCodes builds a detector limited to the given ISO 639-1 codes
// ("en", "uk", ...). An empty list means every language.
func NewForCodes(codes []string) (*Detector, error) {
	if len(codes) == 0 {
		return New(), nil
	}

	var langs []lingua.Language
	for _, code := range codes {
		lang, ok := languageFor(code)
		if !ok {
			return nil, fmt.Errorf("unknown language code %q", code)
		}
		langs = append(langs, lang)
	}
	if len(langs) < 2 {
		return nil, fmt.Errorf("need at least two languages, got %d", len(langs))
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		Build()
	return &Detector{detector: detector}, nil
}

func languageFor(code string) (lingua.Language, bool) {
	code = strings.TrimSpace(code)
	for _, lang := range lingua.AllLanguages() {
		if strings.EqualFold(lang.IsoCode639_1().String(), code) {
			return lang, true
		}
	}
	return lingua.Unknown, false
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the upper-case ISO 639-1 code, e.g. "EN".
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}
