// Package pipeline coordinates the two-stage text pipeline: a humanization
// rewrite followed by sentence-level grammar correction.
//
// A Coordinator is built once per Config and may be shared across
// goroutines. It holds only the immutable configuration and the loaded
// engine handles; every Process call keeps its state on the stack.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/valpere/perepys/internal/logging"
	"github.com/valpere/perepys/internal/metrics"
	"github.com/valpere/perepys/internal/segmenter"
)

// Humanizer rewrites text. Mode and domain are bound when the engine is
// loaded; passes is the number of rewrite passes to apply.
type Humanizer interface {
	Humanize(ctx context.Context, text string, passes int) (string, error)
}

// Corrector fixes the grammar of a single, already punctuated sentence.
type Corrector interface {
	Correct(ctx context.Context, sentence string) (string, error)
}

// EngineLoader provides the engines for a Config. Implementations may
// cache handles across calls.
type EngineLoader interface {
	LoadHumanizer(cfg Config) (Humanizer, error)
	LoadCorrector() (Corrector, error)
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used for verbose progress output.
func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records stage timings and outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithWorkers sets how many units are corrected concurrently. Values
// below 1 are treated as 1, which corrects units strictly in order.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n < 1 {
			n = 1
		}
		c.workers = n
	}
}

// WithUnitTimeout bounds each Correct call. Zero means no bound.
func WithUnitTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.unitTimeout = d }
}

// WithStageTimeout bounds the Humanize call. Zero means no bound.
func WithStageTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.stageTimeout = d }
}

// Coordinator runs the pipeline for one Config.
type Coordinator struct {
	cfg       Config
	humanizer Humanizer
	corrector Corrector

	logger       logging.Logger
	metrics      *metrics.Metrics
	workers      int
	unitTimeout  time.Duration
	stageTimeout time.Duration
}

// New loads the engines required by cfg and returns a ready Coordinator.
// The grammar engine is not loaded when cfg.SkipGrammar() is set.
func New(cfg Config, loader EngineLoader, opts ...Option) (*Coordinator, error) {
	if !cfg.valid() {
		return nil, &ConfigError{Field: "passes", Value: cfg.passes}
	}
	if loader == nil {
		return nil, &InitError{Engine: "humanizer", Err: errors.New("no engine loader")}
	}

	c := &Coordinator{
		cfg:     cfg,
		logger:  logging.NewNop(),
		workers: 1,
	}
	for _, opt := range opts {
		opt(c)
	}

	h, err := loader.LoadHumanizer(cfg)
	if err != nil {
		return nil, &InitError{Engine: "humanizer", Err: err}
	}
	c.humanizer = h

	if !cfg.SkipGrammar() {
		corr, err := loader.LoadCorrector()
		if err != nil {
			return nil, &InitError{Engine: "grammar", Err: err}
		}
		c.corrector = corr
	}

	return c, nil
}

// Config returns the configuration the Coordinator was built with.
func (c *Coordinator) Config() Config { return c.cfg }

// Process runs text through the pipeline and returns the final text.
//
// Empty or whitespace-only text is returned unchanged without touching the
// engines. Any engine failure aborts the call with a *ProcessingError and
// an empty result; partially corrected text is never returned. verbose only
// selects where progress goes and never changes the result.
func (c *Coordinator) Process(ctx context.Context, text string, verbose bool) (string, error) {
	rep := c.reporter(verbose)

	if strings.TrimSpace(text) == "" {
		c.metrics.ObserveProcess(metrics.StatusEmpty)
		return text, nil
	}

	result, err := c.process(ctx, text, rep)
	if err != nil {
		c.metrics.ObserveProcess(metrics.StatusError)
		rep.failed(err)
		return "", err
	}

	c.metrics.ObserveProcess(metrics.StatusOK)
	return result, nil
}

// Run is Process plus the word and character metrics of input and output.
func (c *Coordinator) Run(ctx context.Context, text string, verbose bool) (*Result, error) {
	out, err := c.Process(ctx, text, verbose)
	if err != nil {
		return nil, err
	}
	return NewResult(text, out), nil
}

func (c *Coordinator) process(ctx context.Context, text string, rep reporter) (string, error) {
	rep.started(text)
	c.metrics.ObserveInputWords(len(strings.Fields(text)))

	rep.stage(1, StageHumanize)
	start := time.Now()
	humanized, err := c.humanize(ctx, text)
	c.metrics.ObserveStage(metrics.StageHumanize, time.Since(start))
	if err != nil {
		return "", &ProcessingError{Stage: StageHumanize, Unit: -1, Err: err}
	}
	rep.stageDone(StageHumanize, humanized)

	finalText := humanized
	if c.cfg.SkipGrammar() || c.corrector == nil {
		rep.skipped(StageCorrect)
	} else {
		rep.stage(2, StageCorrect)
		start = time.Now()
		finalText, err = c.correct(ctx, humanized, rep)
		c.metrics.ObserveStage(metrics.StageCorrect, time.Since(start))
		if err != nil {
			return "", err
		}
		rep.stageDone(StageCorrect, finalText)
	}

	rep.finished(finalText)
	return finalText, nil
}

func (c *Coordinator) humanize(ctx context.Context, text string) (string, error) {
	if c.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.stageTimeout)
		defer cancel()
	}
	return c.humanizer.Humanize(ctx, text, c.cfg.Passes())
}

// correct segments text, corrects every unit and reassembles the results in
// unit order regardless of completion order.
func (c *Coordinator) correct(ctx context.Context, text string, rep reporter) (string, error) {
	seg := segmenter.Segment(text)
	corrected := make([]string, len(seg.Units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for _, unit := range seg.Units {
		if gctx.Err() != nil {
			break
		}
		unit := unit
		g.Go(func() error {
			// A sibling may have failed while this unit waited for a slot.
			if err := gctx.Err(); err != nil {
				return &ProcessingError{Stage: StageCorrect, Unit: unit.Order, Err: err}
			}
			rep.unit(unit.Index, seg.Pieces)

			out, err := c.correctUnit(gctx, unit.Prepared())
			if err != nil {
				return &ProcessingError{Stage: StageCorrect, Unit: unit.Order, Err: err}
			}
			corrected[unit.Order] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", &ProcessingError{Stage: StageCorrect, Unit: -1, Err: err}
	}

	c.metrics.ObserveUnits(len(corrected))
	return segmenter.Reassemble(corrected), nil
}

func (c *Coordinator) correctUnit(ctx context.Context, sentence string) (string, error) {
	if c.unitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.unitTimeout)
		defer cancel()
	}
	out, err := c.corrector.Correct(ctx, sentence)
	if err != nil {
		return "", fmt.Errorf("failed to correct %q: %w", truncate(sentence, 40), err)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
