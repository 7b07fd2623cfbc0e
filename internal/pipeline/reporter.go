package pipeline

import (
	"github.com/valpere/perepys/internal/logging"
)

// reporter receives progress events from a processing call. The verbose
// implementation writes them to the logger; the quiet one drops them.
type reporter interface {
	started(text string)
	stage(n int, name string)
	stageDone(name, text string)
	skipped(name string)
	unit(index, total int)
	finished(text string)
	failed(err error)
}

func (c *Coordinator) reporter(verbose bool) reporter {
	if !verbose {
		return quietReporter{}
	}
	return logReporter{log: c.logger.Named("pipeline").With(
		logging.String("mode", string(c.cfg.Mode())),
		logging.String("domain", string(c.cfg.Domain())),
	)}
}

type quietReporter struct{}

func (quietReporter) started(string) {}

func (quietReporter) stage(int, string) {}

func (quietReporter) stageDone(string, string) {}

func (quietReporter) skipped(string) {}

func (quietReporter) unit(int, int) {}

func (quietReporter) finished(string) {}

func (quietReporter) failed(error) {}

type logReporter struct {
	log logging.Logger
}

func (r logReporter) started(text string) {
	r.log.Info("processing text",
		logging.Int("chars", CharCount(text)),
		logging.Int("words", WordCount(text)),
	)
}

func (r logReporter) stage(n int, name string) {
	r.log.Info("stage started", logging.Int("step", n), logging.String("stage", name))
}

func (r logReporter) stageDone(name, text string) {
	r.log.Info("stage complete",
		logging.String("stage", name),
		logging.Int("chars", CharCount(text)),
		logging.Int("words", WordCount(text)),
	)
}

func (r logReporter) skipped(name string) {
	r.log.Info("stage skipped", logging.String("stage", name))
}

func (r logReporter) unit(index, total int) {
	r.log.Info("correcting unit", logging.Int("unit", index), logging.Int("of", total))
}

func (r logReporter) finished(text string) {
	r.log.Info("processing complete",
		logging.Int("chars", CharCount(text)),
		logging.Int("words", WordCount(text)),
	)
}

func (r logReporter) failed(err error) {
	r.log.Error("processing failed", logging.Err(err))
}
