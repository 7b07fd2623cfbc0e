package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/valpere/perepys/internal"
	"github.com/valpere/perepys/internal/catalog"
	"github.com/valpere/perepys/internal/logging"
	"github.com/valpere/perepys/internal/pipeline"
)

// Request defaults for omitted fields.
const (
	defaultMode   = "academic"
	defaultDomain = "academic"
	defaultPasses = 1
)

type processRequest struct {
	Text        string `json:"text"`
	Mode        string `json:"mode"`
	Domain      string `json:"domain"`
	UseML       bool   `json:"use_ml"`
	Passes      int    `json:"passes"`
	SkipGrammar bool   `json:"skip_grammar"`
}

type processResponse struct {
	Success bool             `json:"success"`
	Result  string           `json:"result"`
	Metrics pipeline.Metrics `json:"metrics"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (s *Server) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
	c.Next()
}

// admit bounds the number of requests running the pipeline at once. A
// request waits for a slot until its deadline.
func (s *Server) admit(c *gin.Context) {
	ctx := c.Request.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		writeError(c, http.StatusServiceUnavailable, "Server is busy, try again later")
		return
	}
	defer s.sem.Release(1)

	c.Next()
}

func (s *Server) handleProcess(c *gin.Context) {
	req := processRequest{Mode: defaultMode, Domain: defaultDomain, Passes: defaultPasses}
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(c, http.StatusBadRequest, "No text provided")
		return
	}

	cfg, err := pipeline.NewConfig(req.Mode, req.Domain, req.UseML, req.Passes, req.SkipGrammar)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	start := time.Now()
	result, err := s.run(ctx, cfg, req.Text)
	if err != nil {
		s.logger.Error("processing failed", logging.Err(err))
		writeError(c, statusFor(err), err.Error())
		return
	}

	s.save(ctx, cfg, req.Text, result, time.Since(start))

	c.JSON(http.StatusOK, processResponse{
		Success: true,
		Result:  result.Text,
		Metrics: result.Metrics,
	})
}

func (s *Server) run(ctx context.Context, cfg pipeline.Config, text string) (*pipeline.Result, error) {
	coord, err := pipeline.New(cfg, s.loader,
		pipeline.WithLogger(s.logger),
		pipeline.WithMetrics(s.metrics),
		pipeline.WithWorkers(s.pipe.Workers),
		pipeline.WithUnitTimeout(s.pipe.UnitTimeout),
		pipeline.WithStageTimeout(s.pipe.StageTimeout),
	)
	if err != nil {
		return nil, err
	}
	return coord.Run(ctx, text, false)
}

// save records a completed run. Failures are logged, never returned: the
// client already has a valid result.
func (s *Server) save(ctx context.Context, cfg pipeline.Config, text string, result *pipeline.Result, d time.Duration) {
	if s.store == nil {
		return
	}
	run := &internal.ProcessingRun{
		Mode:          string(cfg.Mode()),
		Domain:        string(cfg.Domain()),
		UseML:         cfg.UseML(),
		Passes:        cfg.Passes(),
		SkipGrammar:   cfg.SkipGrammar(),
		Engine:        s.loader.EngineName(cfg),
		SourceText:    text,
		ResultText:    result.Text,
		OriginalWords: result.Metrics.OriginalWords,
		ResultWords:   result.Metrics.ResultWords,
		OriginalChars: result.Metrics.OriginalChars,
		ResultChars:   result.Metrics.ResultChars,
		Duration:      d,
	}
	if err := s.store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn("failed to save run", logging.Err(err))
	}
}

func statusFor(err error) int {
	var cfgErr *pipeline.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleDomains(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"domains": catalog.Domains()})
}

func (s *Server) handleModes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"modes": catalog.Modes()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}
