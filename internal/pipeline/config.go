package pipeline

import "strings"

// Mode selects the humanizer's rewriting style.
type Mode string

const (
	ModeProfessional Mode = "professional"
	ModeAcademic     Mode = "academic"
	ModeBalanced     Mode = "balanced"
)

// Domain biases the humanizer toward a subject area.
type Domain string

const (
	DomainAcademic   Domain = "academic"
	DomainMedical    Domain = "medical"
	DomainLegal      Domain = "legal"
	DomainScientific Domain = "scientific"
	DomainTechnical  Domain = "technical"
)

// Pass count bounds.
const (
	MinPasses = 1
	MaxPasses = 3
)

// Modes lists every accepted mode.
var Modes = []Mode{ModeProfessional, ModeAcademic, ModeBalanced}

// Domains lists every accepted domain.
var Domains = []Domain{DomainAcademic, DomainMedical, DomainLegal, DomainScientific, DomainTechnical}

// Config is the immutable per-session pipeline configuration. Build it with
// NewConfig; the zero value is not valid.
type Config struct {
	mode        Mode
	domain      Domain
	useML       bool
	passes      int
	skipGrammar bool
}

// NewConfig validates its arguments and returns a Config. Mode and domain
// are matched case-insensitively. Out-of-range pass counts are rejected,
// never clamped.
func NewConfig(mode, domain string, useML bool, passes int, skipGrammar bool) (Config, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(mode)))
	if !validMode(m) {
		return Config{}, &ConfigError{Field: "mode", Value: mode}
	}

	d := Domain(strings.ToLower(strings.TrimSpace(domain)))
	if !validDomain(d) {
		return Config{}, &ConfigError{Field: "domain", Value: domain}
	}

	if passes < MinPasses || passes > MaxPasses {
		return Config{}, &ConfigError{Field: "passes", Value: passes}
	}

	return Config{
		mode:        m,
		domain:      d,
		useML:       useML,
		passes:      passes,
		skipGrammar: skipGrammar,
	}, nil
}

// Mode returns the humanizer mode.
func (c Config) Mode() Mode { return c.mode }

// Domain returns the humanizer domain.
func (c Config) Domain() Domain { return c.domain }

// UseML reports whether the model-backed humanizer is requested.
func (c Config) UseML() bool { return c.useML }

// Passes returns the number of humanization passes.
func (c Config) Passes() int { return c.passes }

// SkipGrammar reports whether grammar correction is disabled.
func (c Config) SkipGrammar() bool { return c.skipGrammar }

func (c Config) valid() bool { return c.passes >= MinPasses }

func validMode(m Mode) bool {
	for _, v := range Modes {
		if v == m {
			return true
		}
	}
	return false
}

func validDomain(d Domain) bool {
	for _, v := range Domains {
		if v == d {
			return true
		}
	}
	return false
}
