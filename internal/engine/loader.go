// Package engine builds humanizer and corrector engines from configuration
// and keeps them loaded for reuse across coordinators.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/valpere/perepys/internal/catalog"
	"github.com/valpere/perepys/internal/config"
	"github.com/valpere/perepys/internal/detector"
	"github.com/valpere/perepys/internal/grammar"
	"github.com/valpere/perepys/internal/humanizer"
	"github.com/valpere/perepys/internal/logging"
	"github.com/valpere/perepys/internal/ollama"
	"github.com/valpere/perepys/internal/pipeline"
	"github.com/valpere/perepys/internal/validator"
)

// availabilityTimeout bounds the Ollama ping done at load time.
const availabilityTimeout = 5 * time.Second

type humanizerKey struct {
	mode   pipeline.Mode
	domain pipeline.Domain
	useML  bool
}

func (k humanizerKey) String() string {
	return fmt.Sprintf("%s/%s/ml=%t", k.mode, k.domain, k.useML)
}

// Loader implements pipeline.EngineLoader. Engines are loaded on first use
// and cached; failed loads are not cached so a later call can retry.
// Concurrent loads of the same engine share one build, and cached engines
// are served without waiting on builds in progress.
type Loader struct {
	cfg    *config.Config
	logger logging.Logger

	group singleflight.Group

	mu         sync.Mutex
	humanizers map[humanizerKey]pipeline.Humanizer
	corrector  pipeline.Corrector
	guard      *validator.Validator

	lexMu   sync.Mutex
	lexicon *catalog.Lexicon
}

var _ pipeline.EngineLoader = (*Loader)(nil)

// NewLoader returns a loader for cfg. A nil logger discards output.
func NewLoader(cfg *config.Config, logger logging.Logger) *Loader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Loader{
		cfg:        cfg,
		logger:     logger.Named("engine"),
		humanizers: make(map[humanizerKey]pipeline.Humanizer),
	}
}

// LoadHumanizer returns the humanizer for cfg's mode, domain, and engine
// choice.
func (l *Loader) LoadHumanizer(cfg pipeline.Config) (pipeline.Humanizer, error) {
	key := humanizerKey{mode: cfg.Mode(), domain: cfg.Domain(), useML: cfg.UseML()}

	l.mu.Lock()
	h, ok := l.humanizers[key]
	l.mu.Unlock()
	if ok {
		return h, nil
	}

	v, err, _ := l.group.Do("humanizer:"+key.String(), func() (interface{}, error) {
		l.mu.Lock()
		h, ok := l.humanizers[key]
		l.mu.Unlock()
		if ok {
			return h, nil
		}

		var (
			built pipeline.Humanizer
			err   error
		)
		if key.useML {
			built, err = l.newModelHumanizer(key)
		} else {
			built, err = l.newLexicalHumanizer(key)
		}
		if err != nil {
			return nil, err
		}
		return l.storeHumanizer(key, built), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(pipeline.Humanizer), nil
}

func (l *Loader) storeHumanizer(key humanizerKey, h pipeline.Humanizer) pipeline.Humanizer {
	l.mu.Lock()
	l.humanizers[key] = h
	l.mu.Unlock()

	l.logger.Debug("humanizer loaded",
		logging.String("mode", string(key.mode)),
		logging.String("domain", string(key.domain)),
		logging.Bool("ml", key.useML))
	return h
}

// extraLexicon loads humanizer.lexicon_path once. It returns nil when no
// path is configured.
func (l *Loader) extraLexicon() (*catalog.Lexicon, error) {
	path := l.cfg.Humanizer.LexiconPath
	if path == "" {
		return nil, nil
	}

	l.lexMu.Lock()
	defer l.lexMu.Unlock()

	if l.lexicon == nil {
		lex, err := catalog.LoadLexicon(path)
		if err != nil {
			return nil, err
		}
		l.lexicon = lex
	}
	return l.lexicon, nil
}

func (l *Loader) newLexicalHumanizer(key humanizerKey) (*humanizer.Lexical, error) {
	lex, err := l.extraLexicon()
	if err != nil {
		return nil, err
	}
	var extra []catalog.Rule
	if lex != nil {
		extra = lex.Rules
	}
	return humanizer.NewLexical(string(key.mode), string(key.domain), extra)
}

func (l *Loader) newModelHumanizer(key humanizerKey) (*humanizer.Model, error) {
	hc := l.cfg.Humanizer
	client := ollama.NewClient(hc.OllamaURL, hc.Model, hc.Timeout).
		WithRetry(hc.MaxAttempts, ollama.DefaultRetryDelay)
	if hc.CheckAvailability {
		if err := ping(client); err != nil {
			return nil, err
		}
	}

	var guard *validator.Validator
	if hc.LanguageGuard {
		var err error
		if guard, err = l.languageGuard(); err != nil {
			return nil, err
		}
	}

	return humanizer.NewModel(client, string(key.mode), string(key.domain), guard).
		WithChunkChars(hc.ChunkChars), nil
}

// languageGuard builds the shared language validator on first use. The
// detector is built without holding l.mu.
func (l *Loader) languageGuard() (*validator.Validator, error) {
	v, err, _ := l.group.Do("guard", func() (interface{}, error) {
		l.mu.Lock()
		guard := l.guard
		l.mu.Unlock()
		if guard != nil {
			return guard, nil
		}

		det, err := detector.NewForCodes(l.cfg.Humanizer.GuardLanguages)
		if err != nil {
			return nil, fmt.Errorf("failed to build language guard: %w", err)
		}
		guard = validator.New(det)

		l.mu.Lock()
		l.guard = guard
		l.mu.Unlock()
		return guard, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*validator.Validator), nil
}

// LoadCorrector returns the configured corrector, shared by every Config.
func (l *Loader) LoadCorrector() (pipeline.Corrector, error) {
	l.mu.Lock()
	c := l.corrector
	l.mu.Unlock()
	if c != nil {
		return c, nil
	}

	v, err, _ := l.group.Do("corrector", func() (interface{}, error) {
		l.mu.Lock()
		c := l.corrector
		l.mu.Unlock()
		if c != nil {
			return c, nil
		}

		c, err := l.newCorrector()
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.corrector = c
		l.mu.Unlock()
		l.logger.Debug("corrector loaded", logging.String("backend", l.cfg.Grammar.Backend))
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(pipeline.Corrector), nil
}

func (l *Loader) newCorrector() (pipeline.Corrector, error) {
	gc := l.cfg.Grammar
	switch gc.Backend {
	case config.BackendRules, "":
		return grammar.NewRules(), nil
	case config.BackendOllama:
		client := ollama.NewClient(gc.OllamaURL, gc.Model, gc.Timeout).
			WithRetry(gc.MaxAttempts, ollama.DefaultRetryDelay)
		if l.cfg.Humanizer.CheckAvailability {
			if err := ping(client); err != nil {
				return nil, err
			}
		}
		return grammar.NewModel(client), nil
	default:
		return nil, fmt.Errorf("unknown grammar backend %q", gc.Backend)
	}
}

func ping(client *ollama.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), availabilityTimeout)
	defer cancel()
	return client.IsAvailable(ctx)
}

// EngineName describes the engines that process cfg and the settings that
// shape their output, e.g. "lexical+rules" or
// "ollama:llama3.2(chunk=4000)+rules". It is part of the result cache key,
// so two runs with the same name produce interchangeable results.
func (l *Loader) EngineName(cfg pipeline.Config) string {
	name := l.humanizerName(cfg)
	if cfg.SkipGrammar() {
		return name
	}

	switch l.cfg.Grammar.Backend {
	case config.BackendOllama:
		return name + "+ollama:" + modelOrDefault(l.cfg.Grammar.Model)
	default:
		return name + "+" + config.BackendRules
	}
}

func (l *Loader) humanizerName(cfg pipeline.Config) string {
	hc := l.cfg.Humanizer
	if cfg.UseML() {
		opts := fmt.Sprintf("chunk=%d", hc.ChunkChars)
		if hc.LanguageGuard {
			opts += ",guard=" + strings.Join(hc.GuardLanguages, "/")
		}
		return "ollama:" + modelOrDefault(hc.Model) + "(" + opts + ")"
	}

	if hc.LexiconPath == "" {
		return "lexical"
	}
	lex, err := l.extraLexicon()
	if err != nil {
		// The load fails the same way, so no result is cached under this name.
		return "lexical(lexicon=" + hc.LexiconPath + ")"
	}
	return "lexical(lexicon=" + lex.Path + "@" + lex.Digest + ")"
}

func modelOrDefault(model string) string {
	if model == "" {
		return ollama.DefaultModel
	}
	return model
}
