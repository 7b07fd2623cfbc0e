// Package catalog exposes the discoverable configuration values (domains
// and modes) and the phrase lexicon used by the lexical humanizer. The data
// ships embedded; extra lexicon rules can be loaded from a YAML file.
package catalog

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

// Entry is a discoverable configuration value.
type Entry struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Rule rewrites Phrase to one of Alternatives. Empty Modes or Domains
// match everything. MinPass delays the rule until that pass (1-based).
type Rule struct {
	Phrase       string   `yaml:"phrase"`
	Alternatives []string `yaml:"alternatives"`
	Modes        []string `yaml:"modes"`
	Domains      []string `yaml:"domains"`
	MinPass      int      `yaml:"min_pass"`
}

// Applies reports whether the rule is active for mode and domain.
func (r Rule) Applies(mode, domain string) bool {
	return matches(r.Modes, mode) && matches(r.Domains, domain)
}

func matches(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// Catalog is the parsed catalog file.
type Catalog struct {
	Domains []Entry `yaml:"domains"`
	Modes   []Entry `yaml:"modes"`
	Lexicon []Rule  `yaml:"lexicon"`
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Parse(embedded)
	})
	return defaultCat, defaultErr
}

// Domains returns the embedded domain entries.
func Domains() []Entry {
	c, err := Default()
	if err != nil {
		return nil
	}
	return append([]Entry(nil), c.Domains...)
}

// Modes returns the embedded mode entries.
func Modes() []Entry {
	c, err := Default()
	if err != nil {
		return nil
	}
	return append([]Entry(nil), c.Modes...)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	for i, r := range c.Lexicon {
		if strings.TrimSpace(r.Phrase) == "" {
			return nil, fmt.Errorf("lexicon rule %d: empty phrase", i)
		}
		if len(r.Alternatives) == 0 {
			return nil, fmt.Errorf("lexicon rule %d (%q): no alternatives", i, r.Phrase)
		}
		for _, alt := range r.Alternatives {
			if strings.TrimSpace(alt) == "" {
				return nil, fmt.Errorf("lexicon rule %d (%q): blank alternative", i, r.Phrase)
			}
		}
	}
	return &c, nil
}

// Lexicon is a set of extra rules read from a file. Digest identifies the
// file contents.
type Lexicon struct {
	Path   string
	Rules  []Rule
	Digest string
}

// LoadLexicon reads extra lexicon rules from a YAML file with a top-level
// "lexicon" list.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return &Lexicon{
		Path:   path,
		Rules:  c.Lexicon,
		Digest: hex.EncodeToString(sum[:6]),
	}, nil
}
