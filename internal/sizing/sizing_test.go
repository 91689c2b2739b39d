package sizing

import "testing"

// Balance 100000, risk 1%, entry
// 2680.00, stop 2678.95.
func TestCalculateMatchesScenarioOne(t *testing.T) {
	ps, err := Calculate(100000, 0.01, 1000, 2680.00, 2678.95)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ps.LotSize < MinLot || ps.LotSize > MaxLot {
		t.Errorf("lot size out of bounds: %f", ps.LotSize)
	}
	wantOunces := ps.LotSize * ContractSize
	if ps.Ounces != wantOunces {
		t.Errorf("ounces = %f, want %f", ps.Ounces, wantOunces)
	}
	wantPipValue := ps.LotSize * PipValuePerLot
	if ps.PipValue != wantPipValue {
		t.Errorf("pip value = %f, want %f", ps.PipValue, wantPipValue)
	}
}

func TestCalculateCapsAtMaxRiskAmount(t *testing.T) {
	// 5% of a huge balance would demand far more risk than the $1000 cap.
	ps, err := Calculate(1000000, 0.05, 1000, 2680.00, 2679.00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ps.RiskAmount > 1000+1e-9 {
		t.Errorf("expected risk amount capped at 1000, got %f", ps.RiskAmount)
	}
}

func TestCalculateRejectsZeroStopDistance(t *testing.T) {
	_, err := Calculate(100000, 0.01, 1000, 2680.00, 2680.00)
	if err != ErrInvalidStop {
		t.Fatalf("expected ErrInvalidStop, got %v", err)
	}
}

func TestCalculateClampsToMinLot(t *testing.T) {
	// A tiny risk budget against a wide stop should floor at min_lot,
	// not round down to zero.
	ps, err := Calculate(100, 0.01, 1000, 2680.00, 2670.00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ps.LotSize != MinLot {
		t.Errorf("expected lot size floored to min_lot %f, got %f", MinLot, ps.LotSize)
	}
	// Actual risk after the min-lot floor should be reported, not the
	// pre-floor target risk.
	wantRisk := MinLot * ContractSize * 10.00
	if ps.RiskAmount != wantRisk {
		t.Errorf("actual risk = %f, want %f", ps.RiskAmount, wantRisk)
	}
}
