// Package api exposes the generation engine over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"

	"github.com/samcharles93/vamp/internal/constraint"
	"github.com/samcharles93/vamp/internal/grid"
	"github.com/samcharles93/vamp/internal/logger"
	"github.com/samcharles93/vamp/internal/logits"
	"github.com/samcharles93/vamp/internal/schedule"
	"github.com/samcharles93/vamp/internal/vamp"
	"github.com/samcharles93/vamp/internal/version"
)

// Server wires the engine into echo routes. Generation is accelerator-bound
// so admission is throttled by a token-bucket limiter rather than queued
// without bound.
type Server struct {
	engine  *vamp.Engine
	store   *GenerationStore
	limiter *rate.Limiter
	log     logger.Logger
	clock   func() time.Time
}

// Config bounds request admission.
type Config struct {
	// RequestsPerSecond throttles generation admission; 0 disables limiting.
	RequestsPerSecond float64
	Burst             int
}

func NewServer(engine *vamp.Engine, cfg Config, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &Server{
		engine:  engine,
		store:   NewGenerationStore(),
		limiter: limiter,
		log:     log,
		clock:   time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/generate", s.handleGenerate)
	e.GET("/v1/generations/:id", s.handleGetGeneration)
	e.DELETE("/v1/generations/:id", s.handleDeleteGeneration)
	e.GET("/v1/healthz", s.handleHealth)
}

func (s *Server) handleGetGeneration(c *echo.Context) error {
	id := c.Param("id")
	resp, ok := s.store.Get(id)
	if !ok {
		return writeError(c, http.StatusNotFound, "not_found", "no generation with id "+id)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDeleteGeneration(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeError(c, http.StatusNotFound, "not_found", "no generation with id "+id)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"id":      id,
		"object":  "vamp.generation",
		"deleted": true,
	})
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.String(),
	})
}

func (s *Server) handleGenerate(c *echo.Context) error {
	if s.engine == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "engine not configured")
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return writeError(c, http.StatusTooManyRequests, "rate_limited", "generation capacity exhausted, retry later")
	}

	req, err := decodeJSON[GenerateRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	coreReq, err := s.toCoreRequest(req)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	id := "gen_" + uuid.NewString()
	ctx := c.Request().Context()
	s.log.Info("generation request", "id", id, "steps", req.Steps, "loop", req.Loop)

	res, err := s.engine.Generate(ctx, coreReq)
	if err != nil {
		return s.writeGenerateError(c, id, err)
	}

	resp := GenerateResponse{
		ID:          id,
		Object:      "vamp.generation",
		CreatedAt:   s.clock().Unix(),
		Layers:      res.Grid.Layers,
		Steps:       res.Grid.Steps,
		Vocab:       res.Grid.Vocab,
		Tokens:      res.Grid.Tokens,
		CoarseStats: toStatsDTO(res.CoarseStats),
		FineStats:   toStatsDTO(res.FineStats),
	}
	if req.IncludeWaveform {
		resp.Waveform = res.Waveform
		resp.SampleRate = res.SampleRate
	}
	s.store.Put(resp)
	return c.JSON(http.StatusOK, resp)
}

// toCoreRequest validates and translates the wire request.
func (s *Server) toCoreRequest(req GenerateRequest) (*vamp.Request, error) {
	if req.Steps <= 0 {
		return nil, newInvalidRequest("steps must be positive")
	}

	coarse, err := toStageConfig(req.Coarse)
	if err != nil {
		return nil, err
	}
	fine, err := toStageConfig(req.Fine)
	if err != nil {
		return nil, err
	}

	out := &vamp.Request{
		Steps:        req.Steps,
		Seed:         req.Seed,
		Loop:         req.Loop,
		LoopWidth:    req.LoopWidth,
		CoarseConfig: coarse,
		FineConfig:   fine,
	}
	for _, r := range req.Keep {
		out.Keep = append(out.Keep, constraint.Region{Start: r.Start, End: r.End})
	}
	if len(req.Prompt) > 0 {
		vocab := 0
		if s.engine.Codec != nil {
			vocab = s.engine.Codec.Vocab()
		}
		g, err := grid.FromTokens(req.Prompt, vocab)
		if err != nil {
			return nil, newInvalidRequest("prompt: " + err.Error())
		}
		out.Prompt = g
	}
	// Rendering audio is the expensive half; skip it when the caller only
	// wants tokens.
	out.SkipDecode = !req.IncludeWaveform
	return out, nil
}

func toStageConfig(dto StageDTO) (vamp.StageConfig, error) {
	filter, err := logits.ParseFilter(dto.Filter)
	if err != nil {
		return vamp.StageConfig{}, newInvalidRequest(err.Error())
	}
	curve, err := schedule.ParseCurve(dto.Curve)
	if err != nil {
		return vamp.StageConfig{}, newInvalidRequest(err.Error())
	}
	iters := dto.Iterations
	if iters < 1 {
		iters = 1
	}
	return vamp.StageConfig{
		Iterations: iters,
		Curve:      curve,
		Sampling: logits.SamplerConfig{
			Temperature: float32(dto.Temperature),
			Filter:      filter,
			TopK:        dto.TopK,
			TopP:        float32(dto.TopP),
			TypicalMass: float32(dto.TypicalMass),
		},
	}, nil
}

func toStatsDTO(s vamp.StageStats) StageStatsDTO {
	return StageStatsDTO{
		Iterations:     s.Iterations,
		Positions:      s.Positions,
		MeanConfidence: s.MeanConfidence,
		MinConfidence:  s.MinConfidence,
		DurationMS:     s.Duration.Milliseconds(),
	}
}

// writeGenerateError maps core errors onto HTTP statuses.
func (s *Server) writeGenerateError(c *echo.Context, id string, err error) error {
	s.log.Warn("generation failed", "id", id, "error", err)
	switch {
	case errors.Is(err, constraint.ErrPromptTooLong),
		errors.Is(err, constraint.ErrPromptShape),
		errors.Is(err, constraint.ErrBadRegion),
		errors.Is(err, constraint.ErrLoopWidth),
		errors.Is(err, ErrInvalidRequest):
		return writeBadRequest(c, err.Error())
	case errors.Is(err, logits.ErrInvalidDistribution):
		return writeError(c, http.StatusUnprocessableEntity, "invalid_distribution", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client went away; nothing useful to send.
		return nil
	default:
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": ErrorBody{Message: msg, Type: errType},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, newInvalidRequest("malformed JSON body: " + err.Error())
	}
	return out, nil
}
