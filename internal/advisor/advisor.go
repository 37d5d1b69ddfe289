// Package advisor prompts a generative model for watch picks and parses its reply
// into a provenance-tagged recommendation. The advisor is untrusted input;
// policy enforcement happens downstream.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/strategyconfig"
	"github.com/wonny/aegis-watch/pkg/config"
	"github.com/wonny/aegis-watch/pkg/logger"
	"github.com/wonny/aegis-watch/pkg/metrics"
)

// NewProvider builds the completion provider selected by configuration
// A missing credential returns *contracts.ConfigMissingError
func NewProvider(ctx context.Context, cfg config.AdvisorConfig) (contracts.Advisor, error) {
	if cfg.APIKey == "" {
		return nil, &contracts.ConfigMissingError{Setting: "ADVISOR_API_KEY"}
	}

	switch cfg.Provider {
	case "openai", "":
		return NewOpenAI(cfg), nil
	case "claude":
		return NewClaude(cfg), nil
	case "gemini":
		g, err := NewGemini(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported advisor provider: %s", cfg.Provider)
	}
}

// Request is the ranked table handed to the advisor
type Request struct {
	Table  []contracts.ScoredCandidate
	Winner contracts.IndustryWinner
	Policy *strategyconfig.Config
	TopN   int
}

// Result is the parsed advisor outcome plus diagnostics
type Result struct {
	Recommendation
	Provider string        `json:"provider"`
	Raw      string        `json:"raw"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"-"`
}

// Service wraps a completion provider with a deadline and the parser chain
type Service struct {
	provider contracts.Advisor
	timeout  time.Duration
	logger   *logger.Logger
	metrics  *metrics.Registry
}

// NewService creates an advisor service. provider may be nil when no credential is configured.
func NewService(provider contracts.Advisor, timeout time.Duration, log *logger.Logger, reg *metrics.Registry) *Service {
	return &Service{
		provider: provider,
		timeout:  timeout,
		logger:   log,
		metrics:  reg,
	}
}

// Ready reports ConfigMissingError when no provider is configured
func (s *Service) Ready() error {
	if s == nil || s.provider == nil {
		return &contracts.ConfigMissingError{Setting: "ADVISOR_API_KEY"}
	}
	return nil
}

// Advise prompts the provider and parses its reply.
// It never fails: provider errors and timeouts yield a Failed recommendation with Error set.
func (s *Service) Advise(ctx context.Context, req Request) Result {
	started := time.Now()
	defer s.metrics.ObserveStage("advisor", started)

	res := Result{Provider: s.provider.Name()}
	prompt := BuildPrompt(req.Table, req.Winner, req.Policy, req.TopN)

	known := make([]string, len(req.Table))
	for i, c := range req.Table {
		known[i] = c.Ticker
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.provider.Complete(callCtx, prompt.System, prompt.User)
	res.Duration = time.Since(started)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: advisor after %s: %w", contracts.ErrUpstreamTimeout, s.timeout, err)
		}
		res.Error = err.Error()
		s.logger.WithError(err).WithField("provider", res.Provider).Warn("Advisor call failed")
	}

	res.Raw = raw
	res.Recommendation = Parse(raw, known)

	if res.Provenance == ProvenanceFailed && res.Error == "" {
		res.Error = fmt.Errorf("%w: no tickers recovered", contracts.ErrMalformedAdvisorOutput).Error()
	}

	s.metrics.Advisor(res.Provider, string(res.Provenance))
	s.logger.WithFields(map[string]interface{}{
		"provider":    res.Provider,
		"provenance":  res.Provenance,
		"stage":       res.Stage,
		"picks":       res.Picks,
		"duration_ms": res.Duration.Milliseconds(),
	}).Info("Advisor replied")

	return res
}
