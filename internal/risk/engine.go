package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/offer-guard/internal/ai"
	"github.com/spigell/offer-guard/internal/logger"
	"github.com/spigell/offer-guard/internal/metrics"
	"github.com/spigell/offer-guard/internal/offer"
)

// DefaultTimeout bounds the remote analysis call.
const DefaultTimeout = 60 * time.Second

var ErrNoAnalyzer = errors.New("remote analyzer is not configured")

const (
	fallbackRedFlag        = "Analysis engine encountered an error."
	fallbackRecommendation = "Proceed with caution."
	fallbackReasoning      = "The AI analysis could not be completed. Please manually verify details."
)

// Engine runs the local heuristics, the remote analysis and the fusion step.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	analyzer ai.OfferAnalyzer
	policy   Policy
	timeout  time.Duration
	logger   *zap.Logger
}

// NewEngine creates an Engine. A non-positive timeout selects DefaultTimeout.
func NewEngine(analyzer ai.OfferAnalyzer, policy Policy, timeout time.Duration, log *zap.Logger) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{
		analyzer: analyzer,
		policy:   policy,
		timeout:  timeout,
		logger:   logger.Component(log, "risk"),
	}
}

// Policy returns the policy the engine was built with.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Analyze produces the verdict for o. Remote failures of any kind are replaced by
// the fallback analysis; only engine misconfiguration is returned as an error.
func (e *Engine) Analyze(ctx context.Context, o offer.JobOffer) (*Result, error) {
	if e == nil || e.analyzer == nil {
		return nil, ErrNoAnalyzer
	}

	start := time.Now()
	log := e.logger.With(logger.OfferFields(o.CompanyName, o.JobTitle)...)

	local := e.policy.Evaluate(o)
	log.Debug("local heuristics evaluated",
		zap.Float64("base_score", local.BaseScore),
		zap.Strings("triggered_rules", local.Triggered),
	)

	remote, err := e.remote(ctx, o)
	fallback := err != nil
	if fallback {
		log.Warn("remote analysis failed, using fallback", zap.Error(err))
		metrics.RemoteFailures.WithLabelValues(failureReason(err)).Inc()
		remote = e.policy.Fallback(o)
	}

	score := e.policy.Fuse(local.BaseScore, remote.RiskScore)
	result := &Result{
		RiskLevel:         e.policy.Level(score),
		RiskScore:         score,
		RedFlags:          Merge(local.RedFlags, remote.RedFlags),
		TrustIndicators:   Merge(local.TrustIndicators, remote.TrustIndicators),
		AIRecommendation:  remote.Recommendation,
		DetailedAnalysis:  remote.Reasoning,
		VerificationLinks: remote.VerificationLinks,
		Fallback:          fallback,
	}
	if result.VerificationLinks == nil {
		result.VerificationLinks = []ai.VerificationLink{}
	}

	path := metrics.PathRemote
	if fallback {
		path = metrics.PathFallback
	}
	elapsed := time.Since(start)
	metrics.AnalysesTotal.WithLabelValues(string(result.RiskLevel), path).Inc()
	metrics.AnalysisDuration.WithLabelValues(path).Observe(elapsed.Seconds())

	log.Info("analysis completed",
		zap.Int("risk_score", result.RiskScore),
		zap.String("risk_level", string(result.RiskLevel)),
		zap.Float64("base_score", local.BaseScore),
		zap.Float64("remote_score", remote.RiskScore),
		zap.Bool("fallback", fallback),
		zap.Duration("elapsed", elapsed),
	)

	return result, nil
}

// Fallback is the remote analysis substituted when the remote call fails.
func (p Policy) Fallback(o offer.JobOffer) *ai.RemoteAnalysis {
	score := p.FallbackScore
	if o.AskedForMoney {
		score = p.FallbackScoreMoney
	}
	return &ai.RemoteAnalysis{
		RiskScore:         score,
		RedFlags:          []string{fallbackRedFlag},
		TrustIndicators:   []string{},
		Recommendation:    fallbackRecommendation,
		Reasoning:         fallbackReasoning,
		VerificationLinks: []ai.VerificationLink{},
	}
}

type remoteOutcome struct {
	analysis *ai.RemoteAnalysis
	err      error
}

// remote calls the analyzer under the engine timeout. The call runs in its own
// goroutine so an analyzer that ignores its context cannot hang the pipeline.
func (e *Engine) remote(ctx context.Context, o offer.JobOffer) (*ai.RemoteAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan remoteOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- remoteOutcome{err: fmt.Errorf("remote analyzer panicked: %v", r)}
			}
		}()
		analysis, err := e.analyzer.AnalyzeOffer(ctx, o)
		done <- remoteOutcome{analysis: analysis, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("remote analysis: %w", ctx.Err())
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		if out.analysis == nil {
			return nil, ai.ErrEmptyResponse
		}
		if math.IsNaN(out.analysis.RiskScore) || math.IsInf(out.analysis.RiskScore, 0) {
			return nil, fmt.Errorf("%w: riskScore is not a finite number", ai.ErrSchemaMismatch)
		}
		return out.analysis, nil
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ai.ErrSchemaMismatch):
		return "schema"
	case errors.Is(err, ai.ErrEmptyResponse):
		return "empty"
	default:
		return "error"
	}
}
