package processing

import (
	"testing"

	"github.com/quorumtrade/quorumtrade/internal/models"
)

func TestParseDirectiveLines(t *testing.T) {
	p := NewRulingProcessor()
	text := `The bull case is stronger on every axis that matters.

DECISION: BUY
CONFIDENCE: 0.85
RISK: low`

	v := p.Parse(text, 0.5)
	if !v.HasAction || v.Action != models.ActionBuy {
		t.Fatalf("expected BUY action, got %+v", v)
	}
	if !v.HasConfidence || v.Confidence != 0.85 {
		t.Fatalf("expected confidence 0.85, got %v", v.Confidence)
	}
	if !v.HasRisk || v.Risk != models.RiskLow {
		t.Fatalf("expected low risk, got %v", v.Risk)
	}
	if v.Override != nil {
		t.Fatalf("override must not be inferred, got %v", *v.Override)
	}
}

func TestParseDirectiveWinsOverSentiment(t *testing.T) {
	p := NewRulingProcessor()
	// Bearish vocabulary everywhere, but the directive line says HOLD.
	text := `Sell pressure, bearish momentum, deteriorating fundamentals, downside risk.
DECISION: HOLD`

	v := p.Parse(text, 0.5)
	if v.Action != models.ActionHold {
		t.Fatalf("directive line must win over sentiment, got %v", v.Action)
	}
}

func TestParsePatternFallback(t *testing.T) {
	p := NewRulingProcessor()
	text := "The stock looks oversold and undervalued; accumulate on weakness for the upside."

	v := p.Parse(text, 0.5)
	if !v.HasAction || v.Action != models.ActionBuy {
		t.Fatalf("expected fallback BUY, got %+v", v)
	}
}

func TestParseNeutralDefaults(t *testing.T) {
	p := NewRulingProcessor()
	v := p.Parse("No recognizable content whatsoever.", 0.4)

	if v.HasAction {
		t.Fatalf("expected no action, got %v", v.Action)
	}
	if v.HasConfidence || v.Confidence != 0.4 {
		t.Fatalf("expected neutral confidence 0.4, got %v", v.Confidence)
	}
	if v.Risk != models.RiskMedium {
		t.Fatalf("expected default medium risk, got %v", v.Risk)
	}
}

func TestParseOverrideDirective(t *testing.T) {
	p := NewRulingProcessor()
	text := `RISK: high
CONFIDENCE: 0.6
OVERRIDE: SELL`

	v := p.Parse(text, 0.5)
	if v.Override == nil || *v.Override != models.ActionSell {
		t.Fatalf("expected SELL override, got %+v", v.Override)
	}
	if v.Risk != models.RiskHigh {
		t.Fatalf("expected high risk, got %v", v.Risk)
	}
}

func TestParseConfidenceClamped(t *testing.T) {
	p := NewRulingProcessor()
	v := p.Parse("CONFIDENCE: 1.7", 0.5)
	if v.Confidence != 1 {
		t.Fatalf("expected confidence clamped to 1, got %v", v.Confidence)
	}

	v = p.Parse("nothing here", 3)
	if v.Confidence != 1 {
		t.Fatalf("expected neutral confidence clamped to 1, got %v", v.Confidence)
	}
}
