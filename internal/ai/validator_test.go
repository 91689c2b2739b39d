package ai

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/followthefloww9/gold-digger/internal/analysis"
	"github.com/followthefloww9/gold-digger/internal/signal"
)

func buySignal(confidence float64) *signal.Signal {
	return &signal.Signal{
		Direction:  signal.Buy,
		Confidence: confidence,
		Entry:      2680,
		StopLoss:   2678.95,
		TakeProfit: 2682.1,
		Analysis: &analysis.MarketAnalysis{
			BOS:        analysis.BOSFinding{Direction: analysis.BOSBullish},
			Indicators: analysis.Indicators{},
		},
	}
}

func TestValidatorSkipsHoldSignals(t *testing.T) {
	v := NewValidator(nil, nil, DefaultConfig(), zerolog.Nop())
	sig := &signal.Signal{Direction: signal.Hold}
	out := v.Validate(context.Background(), sig, PromptContext{})
	if out.AIValidated {
		t.Error("HOLD signals should never be marked ai_validated")
	}
}

func TestValidatorTechnicalOnlyWhenUnconfigured(t *testing.T) {
	client := NewClient(ClientConfig{}) // no API key
	v := NewValidator(client, nil, DefaultConfig(), zerolog.Nop())
	sig := buySignal(0.70)
	out := v.Validate(context.Background(), sig, PromptContext{Symbol: "XAUUSD"})
	if out.AIValidated {
		t.Error("expected ai_validated=false when AI is not configured")
	}
	if out.Confidence != 0.70 {
		t.Errorf("expected confidence unchanged at 0.70, got %f", out.Confidence)
	}
	if out.Direction != signal.Buy {
		t.Errorf("expected direction unchanged, got %s", out.Direction)
	}
}

func TestApplyDecisionBoostsOnCorroboration(t *testing.T) {
	v := NewValidator(nil, nil, DefaultConfig(), zerolog.Nop())
	sig := buySignal(0.70)
	out := v.applyDecision(sig, Decision{Decision: "BUY", Confidence: 0.8})
	if !out.AIValidated {
		t.Error("expected ai_validated=true on corroboration")
	}
	if diff := out.Confidence - 0.90; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected confidence 0.90, got %f", out.Confidence)
	}
}

func TestApplyDecisionPenalizesOnHoldWithoutDemoting(t *testing.T) {
	v := NewValidator(nil, nil, DefaultConfig(), zerolog.Nop())
	sig := buySignal(0.8125)
	out := v.applyDecision(sig, Decision{Decision: "HOLD", Confidence: 0.2})
	if out.AIValidated {
		t.Error("expected ai_validated=false on AI HOLD")
	}
	if out.Confidence < 0.50 || out.Confidence > 0.52 {
		t.Errorf("expected confidence near 0.5125, got %f", out.Confidence)
	}
	if out.Direction != signal.Buy {
		t.Errorf("expected direction to remain BUY above the demote threshold, got %s", out.Direction)
	}
}

func TestApplyDecisionDemotesToHoldBelowThreshold(t *testing.T) {
	v := NewValidator(nil, nil, DefaultConfig(), zerolog.Nop())
	sig := buySignal(0.40)
	out := v.applyDecision(sig, Decision{Decision: "HOLD", Confidence: 0.1})
	if out.Direction != signal.Hold {
		t.Errorf("expected demotion to HOLD, got %s", out.Direction)
	}
}
