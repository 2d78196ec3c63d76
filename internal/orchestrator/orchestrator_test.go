package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/quorumtrade/quorumtrade/internal/dataflows"
	"github.com/quorumtrade/quorumtrade/internal/engine"
	"github.com/quorumtrade/quorumtrade/internal/models"
)

func testConfig(roles ...models.AnalystRole) models.SessionConfig {
	if len(roles) == 0 {
		roles = []models.AnalystRole{models.AnalystMarket}
	}
	return models.SessionConfig{
		MaxDebateRounds:      1,
		MaxRiskDiscussRounds: 1,
		AnalystRoles:         roles,
		NeutralConfidence:    0.5,
		MaxRetries:           0,
		RetryBaseDelay:       time.Millisecond,
	}
}

func staticProvider() dataflows.SnapshotProvider {
	return dataflows.ProviderFunc(func(ctx context.Context, instrument, asOfDate string, kind models.AnalystRole) (*dataflows.Snapshot, error) {
		return &dataflows.Snapshot{
			Kind:       kind,
			Instrument: instrument,
			AsOf:       asOfDate,
			Summary:    fmt.Sprintf("%s snapshot for %s", kind, instrument),
		}, nil
	})
}

func TestRunSessionRejectsInvalidConfig(t *testing.T) {
	orch := New(engine.NewScripted("ok"), staticProvider(), nil)

	cfg := testConfig()
	cfg.MaxDebateRounds = -1
	if _, err := orch.RunSession(context.Background(), "AAPL", "2026-03-02", cfg); !errors.Is(err, models.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	if _, err := orch.RunSession(context.Background(), "  ", "2026-03-02", testConfig()); !errors.Is(err, models.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for blank instrument, got %v", err)
	}
}

func TestRunSessionHappyPath(t *testing.T) {
	// One analyst and one round per debate makes the call order deterministic:
	// analyst, bull, bear, investment judge, trader, three risk turns, risk
	// judge.
	eng := engine.NewScripted(
		"Market looks constructive.\n- trend intact\n- volume supportive",
		"Bull argument.",
		"Bear argument.",
		"The bull case is stronger.\nDECISION: BUY\nCONFIDENCE: 0.7",
		"Enter a starter position, add on confirmation.\nDECISION: BUY",
		"Aggressive take.",
		"Conservative take.",
		"Neutral take.",
		"The plan's sizing is sound.\nRISK: low\nCONFIDENCE: 0.8",
	)
	orch := New(eng, staticProvider(), nil)

	session, err := orch.RunSession(context.Background(), "aapl", "2026-03-02", testConfig())
	if err != nil {
		t.Fatalf("run session: %v", err)
	}

	if session.Phase != models.PhaseDone {
		t.Fatalf("expected done phase, got %s", session.Phase)
	}
	if session.Instrument != "AAPL" {
		t.Fatalf("instrument must be normalized, got %q", session.Instrument)
	}
	if !session.Context.HasAllReports(session.Config.AnalystRoles) {
		t.Fatal("all reports must land before the decision")
	}
	if session.Context.InvestmentDebate.Ruling == nil || session.Context.RiskDebate.Ruling == nil {
		t.Fatal("both debates must carry rulings")
	}

	decision := session.Context.Decision
	if decision == nil {
		t.Fatal("session must end with a decision")
	}
	if decision.Action != models.ActionBuy {
		t.Fatalf("expected BUY, got %s", decision.Action)
	}
	if decision.Confidence != 0.8 {
		t.Fatalf("expected risk judge confidence 0.8, got %v", decision.Confidence)
	}
	if decision.Risk != models.RiskLow {
		t.Fatalf("expected low risk, got %s", decision.Risk)
	}
	if len(decision.DegradedInputs) != 0 {
		t.Fatalf("healthy run must not report degraded inputs: %v", decision.DegradedInputs)
	}
	if !strings.Contains(decision.Rationale, "Degraded inputs: none") {
		t.Fatalf("rationale must account for degraded inputs explicitly:\n%s", decision.Rationale)
	}
}

func TestRunSessionFourAnalystsNoOverride(t *testing.T) {
	// Four concurrent analysts make the call order nondeterministic, so one
	// shared response drives every stage. No OVERRIDE line, so the final
	// action is the draft plan's.
	eng := engine.NewScripted("Constructive setup.\n- a finding\nDECISION: BUY\nCONFIDENCE: 0.7\nRISK: medium")
	orch := New(eng, staticProvider(), nil)

	cfg := testConfig(models.DefaultAnalystRoles...)
	cfg.MaxDebateRounds = 2

	session, err := orch.RunSession(context.Background(), "AAPL", "2026-03-02", cfg)
	if err != nil {
		t.Fatalf("run session: %v", err)
	}

	if !session.Context.HasAllReports(models.DefaultAnalystRoles) {
		t.Fatal("every configured analyst must land a report")
	}
	decision := session.Context.Decision
	if decision.Action != session.Context.DraftPlan.Action {
		t.Fatalf("without an override the draft action stands: draft %s, decision %s",
			session.Context.DraftPlan.Action, decision.Action)
	}
	if decision.Confidence < 0 || decision.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", decision.Confidence)
	}
	if !decision.Action.Valid() {
		t.Fatalf("invalid action %q", decision.Action)
	}
}

func TestRunSessionRiskOverrideIsAuthoritative(t *testing.T) {
	eng := engine.NewScripted(
		"Market analysis.\n- a finding",
		"Bull argument.",
		"Bear argument.",
		"DECISION: BUY\nCONFIDENCE: 0.7",
		"Buy plan.\nDECISION: BUY",
		"Aggressive take.",
		"Conservative take.",
		"Neutral take.",
		"Position risk is unacceptable at current leverage.\nRISK: high\nCONFIDENCE: 0.6\nOVERRIDE: SELL",
	)
	orch := New(eng, staticProvider(), nil)

	session, err := orch.RunSession(context.Background(), "AAPL", "2026-03-02", testConfig())
	if err != nil {
		t.Fatalf("run session: %v", err)
	}

	decision := session.Context.Decision
	if session.Context.DraftPlan.Action != models.ActionBuy {
		t.Fatalf("draft plan should be BUY, got %s", session.Context.DraftPlan.Action)
	}
	if decision.Action != models.ActionSell {
		t.Fatalf("explicit override must win: expected SELL, got %s", decision.Action)
	}
	if decision.Risk != models.RiskHigh {
		t.Fatalf("expected high risk, got %s", decision.Risk)
	}
	if !strings.Contains(decision.Rationale, "overrode") {
		t.Fatalf("rationale must mention the override:\n%s", decision.Rationale)
	}
}

func TestRunSessionDegradedAnalystStillDecides(t *testing.T) {
	provider := dataflows.ProviderFunc(func(ctx context.Context, instrument, asOfDate string, kind models.AnalystRole) (*dataflows.Snapshot, error) {
		if kind == models.AnalystMarket {
			return nil, fmt.Errorf("%w: vendor outage", models.ErrDataUnavailable)
		}
		return &dataflows.Snapshot{Kind: kind, Instrument: instrument, AsOf: asOfDate, Summary: "headlines"}, nil
	})

	// Deterministic order no longer holds with two concurrent analysts, so
	// every reasoning call shares one response carrying the directive lines.
	eng := engine.NewScripted("Working from available data.\nDECISION: HOLD\nCONFIDENCE: 0.5\nRISK: medium")
	orch := New(eng, provider, nil)

	session, err := orch.RunSession(context.Background(), "AAPL", "2026-03-02",
		testConfig(models.AnalystMarket, models.AnalystNews))
	if err != nil {
		t.Fatalf("run session: %v", err)
	}

	decision := session.Context.Decision
	if decision == nil {
		t.Fatal("degraded inputs must not prevent a decision")
	}
	if len(decision.DegradedInputs) == 0 {
		t.Fatal("decision must carry the degraded-input ledger")
	}
	found := false
	for _, input := range decision.DegradedInputs {
		if strings.Contains(input, "market") {
			found = true
		}
	}
	if !found {
		t.Fatalf("degraded inputs must name the market analyst: %v", decision.DegradedInputs)
	}
	if !strings.Contains(decision.Rationale, "market") {
		t.Fatalf("rationale must name the degraded discipline:\n%s", decision.Rationale)
	}
}

func TestRunSessionEngineDeadStillDecides(t *testing.T) {
	eng := engine.NewScripted()
	eng.Err = fmt.Errorf("%w: connection refused", models.ErrReasoningFailed)
	orch := New(eng, staticProvider(), nil)

	session, err := orch.RunSession(context.Background(), "AAPL", "2026-03-02", testConfig())
	if err != nil {
		t.Fatalf("a dead engine must not abort the session: %v", err)
	}

	decision := session.Context.Decision
	if decision == nil {
		t.Fatal("session must still end with a decision")
	}
	if decision.Action != models.ActionHold {
		t.Fatalf("with no reasoning anywhere the decision must be HOLD, got %s", decision.Action)
	}
	if !session.Context.InvestmentDebate.Ruling.Forced || !session.Context.RiskDebate.Ruling.Forced {
		t.Fatal("both rulings must be forced fallbacks")
	}
	if len(decision.DegradedInputs) == 0 {
		t.Fatal("the degraded-input ledger must record the failures")
	}
}

func TestRunSessionDeadlinePropagates(t *testing.T) {
	// The session deadline is already expired; every stage sees a cancelled
	// context and the pipeline still runs to a decision.
	cfg := testConfig()
	cfg.SessionDeadline = time.Nanosecond

	eng := engine.NewScripted("DECISION: BUY\nCONFIDENCE: 0.9")
	orch := New(eng, staticProvider(), nil)

	session, err := orch.RunSession(context.Background(), "AAPL", "2026-03-02", cfg)
	if err != nil {
		t.Fatalf("deadline must not abort the session: %v", err)
	}
	if session.Context.Decision == nil {
		t.Fatal("deadline-hit session must still decide")
	}
	if session.Phase != models.PhaseDone {
		t.Fatalf("expected done phase, got %s", session.Phase)
	}
}
