package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driven"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driving"
	"github.com/custodia-labs/htp-rag/internal/logger"
)

// Ensure AnalysisService implements the interface.
var _ driving.AnalysisService = (*AnalysisService)(nil)

// Analysis outcomes reported to an AnalysisRecorder.
const (
	OutcomeAnswered = "answered"
	OutcomeRejected = "rejected"
	OutcomeCached   = "cached"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

const cacheKeyPrefix = "htp:answer:"

// AnalysisRecorder receives one outcome per Analyze call.
type AnalysisRecorder interface {
	RecordAnalysis(subject, outcome string, elapsed time.Duration)
}

// AnalysisService validates requests, runs the interpretation workflow and
// shapes the answer.
type AnalysisService struct {
	engine   *Engine
	cache    driven.AnswerCache
	cacheTTL time.Duration
	recorder AnalysisRecorder
}

// NewAnalysisService creates a new analysis service.
func NewAnalysisService(engine *Engine) *AnalysisService {
	return &AnalysisService{
		engine:   engine,
		cacheTTL: domain.DefaultCacheTTL,
	}
}

// SetCache enables answer caching. A nil cache disables it.
func (s *AnalysisService) SetCache(cache driven.AnswerCache, ttl time.Duration) {
	s.cache = cache
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

// SetRecorder sets the outcome recorder.
func (s *AnalysisService) SetRecorder(r AnalysisRecorder) {
	s.recorder = r
}

// Analyze answers a question about a drawing.
func (s *AnalysisService) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResponse, error) {
	start := time.Now()
	question, category, err := validateRequest(req)
	if err != nil {
		s.record(category, OutcomeInvalid, start)
		return nil, err
	}

	logger.Section("Analysis")
	logger.Debug("Category: %s (%s)", category, category.Subject())
	logger.Debug("Question: %q", question)

	key := cacheKey(category, question)
	if answer, ok := s.lookup(ctx, key); ok {
		logger.Info("Answer served from cache")
		s.record(category, OutcomeCached, start)
		return &domain.AnalysisResponse{Answer: answer}, nil
	}

	state, err := s.engine.Run(ctx, question, category)
	if err != nil {
		logger.Warn("Analysis failed: %v", err)
		s.record(category, OutcomeError, start)
		return nil, fmt.Errorf("analyze: %w", err)
	}

	if state.Rejected() {
		s.record(category, OutcomeRejected, start)
		return &domain.AnalysisResponse{Answer: domain.FallbackAnswer}, nil
	}

	s.store(ctx, key, state.Generation)
	s.record(category, OutcomeAnswered, start)
	return &domain.AnalysisResponse{Answer: state.Generation}, nil
}

// Trace runs the workflow and returns its final state, bypassing the cache.
func (s *AnalysisService) Trace(ctx context.Context, req domain.AnalysisRequest) (*domain.WorkflowState, error) {
	question, category, err := validateRequest(req)
	if err != nil {
		return nil, err
	}
	state, err := s.engine.Run(ctx, question, category)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	return state, nil
}

func validateRequest(req domain.AnalysisRequest) (string, domain.Category, error) {
	question := strings.TrimSpace(req.Question)
	category, ok := domain.ParseCategory(req.Category)
	if question == "" {
		return "", category, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	if category == "" {
		return "", category, fmt.Errorf("%w: category is required", domain.ErrInvalidInput)
	}
	if !ok {
		return "", category, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, req.Category)
	}
	return question, category, nil
}

// lookup consults the cache. Cache failures are logged and treated as misses.
func (s *AnalysisService) lookup(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	answer, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("Answer cache read failed: %v", err)
		return "", false
	}
	return answer, ok
}

func (s *AnalysisService) store(ctx context.Context, key, answer string) {
	if s.cache == nil || answer == "" {
		return
	}
	if err := s.cache.Set(ctx, key, answer, s.cacheTTL); err != nil {
		logger.Warn("Answer cache write failed: %v", err)
	}
}

func (s *AnalysisService) record(category domain.Category, outcome string, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordAnalysis(category.Subject(), outcome, time.Since(start))
	}
}

// cacheKey fingerprints a validated request.
func cacheKey(category domain.Category, question string) string {
	sum := sha256.Sum256([]byte(string(category) + "\x00" + question))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
