package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/followthefloww9/gold-digger/internal/signal"
)

// Config tunes the validator's transport and adjustment behavior. The
// boost/penalty/demote-threshold values are exposed as config rather
// than hardcoded so they can be tuned without a rebuild.
type Config struct {
	Timeout           time.Duration
	CacheTTL          time.Duration
	RequestsPerMinute int
	MaxRetries        int
	RetryDelay        time.Duration
	ConfidenceBoost   float64
	ConfidencePenalty float64
	DemoteThreshold   float64
}

// DefaultConfig returns the standard validator settings.
func DefaultConfig() Config {
	return Config{
		Timeout:           20 * time.Second,
		CacheTTL:          300 * time.Second,
		RequestsPerMinute: 60,
		MaxRetries:        3,
		RetryDelay:        1 * time.Second,
		ConfidenceBoost:   0.20,
		ConfidencePenalty: 0.30,
		DemoteThreshold:   0.30,
	}
}

// Validator is the AI second-opinion gate: it wraps Client,
// ResponseCache, and a rate limiter with the retry, caching, and
// confidence-adjustment policy. It may corroborate, weaken, or veto a
// non-HOLD signal; it never promotes HOLD to BUY/SELL.
type Validator struct {
	client  *Client
	cache   *ResponseCache
	limiter *rate.Limiter
	cfg     Config
	logger  zerolog.Logger
}

// NewValidator builds a Validator. cache may be nil, in which case
// every call skips the cache lookup (used by tests).
func NewValidator(client *Client, cache *ResponseCache, cfg Config, logger zerolog.Logger) *Validator {
	return &Validator{
		client:  client,
		cache:   cache,
		limiter: newRateLimiter(cfg.RequestsPerMinute),
		cfg:     cfg,
		logger:  logger.With().Str("component", "ai-validator").Logger(),
	}
}

// Configured reports whether the underlying client has an API key. A
// daemon with no AI key runs fully technical-only from boot, which is
// not an error condition.
func (v *Validator) Configured() bool {
	return v.client != nil && v.client.IsConfigured()
}

// Validate takes a non-HOLD Signal and a compact PromptContext and
// returns a (possibly mutated) Signal. It never returns an error: an
// AI outage degrades to a technical-only signal rather than blocking
// the pipeline.
func (v *Validator) Validate(ctx context.Context, sig *signal.Signal, promptCtx PromptContext) *signal.Signal {
	if sig.Direction == signal.Hold {
		return sig
	}
	if !v.Configured() {
		return technicalOnly(sig, "AI not configured")
	}

	systemPrompt, userPrompt := BuildPrompt(sig, promptCtx)
	key := HashPrompt(systemPrompt + "\n" + userPrompt)

	if v.cache != nil {
		if cached, ok := v.cache.Get(ctx, key); ok {
			return v.applyDecision(sig, cached)
		}
	}

	if err := wait(ctx, v.limiter); err != nil {
		return technicalOnly(sig, "AI rate limit wait: "+err.Error())
	}

	maxRetries := v.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
		reply, err := v.client.Complete(callCtx, systemPrompt, userPrompt)
		cancel()

		if err != nil {
			lastErr = err
			if !sleepOrDone(ctx, v.cfg.RetryDelay) {
				break
			}
			continue
		}

		decision, perr := Parse(reply)
		if perr != nil {
			lastErr = perr
			if !sleepOrDone(ctx, v.cfg.RetryDelay) {
				break
			}
			continue
		}

		if v.cache != nil {
			v.cache.Set(ctx, key, decision)
		}
		return v.applyDecision(sig, decision)
	}

	v.logger.Warn().Err(lastErr).Msg("AI validation failed after retries, continuing technical-only")
	return technicalOnly(sig, fmt.Sprintf("AI validation failed after retries: %v", lastErr))
}

// sleepOrDone waits d or returns false early if ctx is cancelled.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// applyDecision folds the AI's verdict into the signal: a
// corroborating decision boosts confidence, an AI HOLD penalizes it
// and demotes the signal to HOLD once confidence falls below the
// threshold.
func (v *Validator) applyDecision(sig *signal.Signal, d Decision) *signal.Signal {
	sig.AIConfidence = d.Confidence

	if d.Decision != "HOLD" {
		sig.AIValidated = true
		sig.Confidence = minF(1.0, sig.Confidence+v.cfg.ConfidenceBoost)
		return sig
	}

	sig.AIValidated = false
	sig.Confidence = maxF(0.0, sig.Confidence-v.cfg.ConfidencePenalty)
	if sig.Confidence < v.cfg.DemoteThreshold {
		sig.Direction = signal.Hold
		sig.Reasons = append(sig.Reasons, "AI validation failed")
	}
	return sig
}

// technicalOnly marks sig as unvalidated-by-AI without changing its
// confidence, and appends reason for the audit trail.
func technicalOnly(sig *signal.Signal, reason string) *signal.Signal {
	sig.AIValidated = false
	sig.Reasons = append(sig.Reasons, reason)
	return sig
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
