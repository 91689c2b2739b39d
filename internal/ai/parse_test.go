package ai

import "testing"

func TestParseStrictJSON(t *testing.T) {
	reply := `{"decision":"BUY","confidence":0.82,"entry":2680.0,"stop_loss":2678.95,"take_profit":2682.1,"reasoning":"strong bullish structure"}`
	d, err := Parse(reply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Decision != "BUY" {
		t.Errorf("expected BUY, got %s", d.Decision)
	}
	if d.Confidence != 0.82 {
		t.Errorf("expected confidence 0.82, got %f", d.Confidence)
	}
}

func TestParseStrictJSONWrappedInMarkdownFence(t *testing.T) {
	reply := "```json\n{\"decision\":\"SELL\",\"confidence\":0.7}\n```"
	d, err := Parse(reply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Decision != "SELL" {
		t.Errorf("expected SELL, got %s", d.Decision)
	}
}

func TestParsePermissiveTaggedText(t *testing.T) {
	reply := "decision: HOLD\nconfidence: 0.25\nreasoning: weak structure, skipping\n"
	d, err := Parse(reply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Decision != "HOLD" {
		t.Errorf("expected HOLD, got %s", d.Decision)
	}
	if d.Confidence != 0.25 {
		t.Errorf("expected confidence 0.25, got %f", d.Confidence)
	}
}

func TestParseUnparseableReturnsError(t *testing.T) {
	_, err := Parse("the market looks uncertain today, hard to say")
	if err == nil {
		t.Fatal("expected an error for an unparseable reply")
	}
}
