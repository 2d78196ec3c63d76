package trader

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/quorumtrade/quorumtrade/internal/engine"
	"github.com/quorumtrade/quorumtrade/internal/models"
)

func sessionWithRuling(rulingText string) *models.Session {
	session := models.NewSession("test", "AAPL", "2026-03-02", models.SessionConfig{
		MaxDebateRounds:      1,
		MaxRiskDiscussRounds: 1,
		AnalystRoles:         []models.AnalystRole{models.AnalystMarket},
		NeutralConfidence:    0.5,
		RetryBaseDelay:       time.Millisecond,
	})
	state := models.NewDebateState("investment stance")
	state.Ruling = &models.Ruling{
		Speaker:   "Research Manager",
		Text:      rulingText,
		CreatedAt: time.Now(),
	}
	session.Context.InvestmentDebate = state
	return session
}

func TestDraftFollowsOwnDecisionLine(t *testing.T) {
	session := sessionWithRuling("DECISION: BUY\nCONFIDENCE: 0.7")
	stage := NewStage(engine.NewScripted("Scale in over two sessions.\nDECISION: BUY"), nil)

	plan := stage.Draft(context.Background(), session)
	if plan.Action != models.ActionBuy {
		t.Fatalf("expected BUY, got %s", plan.Action)
	}
	if session.Context.DraftPlan != plan {
		t.Fatal("draft must land in the session context")
	}
	if len(session.Context.DegradedInputs) != 0 {
		t.Fatalf("healthy draft must not degrade: %v", session.Context.DegradedInputs)
	}
}

func TestDraftFallsBackToRulingAction(t *testing.T) {
	// The trader's own text carries no directive line; the ruling's action
	// carries through.
	session := sessionWithRuling("DECISION: SELL\nCONFIDENCE: 0.8")
	stage := NewStage(engine.NewScripted("Trim into strength and keep powder dry."), nil)

	plan := stage.Draft(context.Background(), session)
	if plan.Action != models.ActionSell {
		t.Fatalf("expected ruling's SELL to carry through, got %s", plan.Action)
	}
}

func TestDraftDegradesWhenEngineFails(t *testing.T) {
	session := sessionWithRuling("DECISION: BUY\nCONFIDENCE: 0.7")
	eng := engine.NewScripted()
	eng.Err = fmt.Errorf("%w: 502", models.ErrReasoningFailed)
	stage := NewStage(eng, nil)

	plan := stage.Draft(context.Background(), session)
	if plan.Action != models.ActionBuy {
		t.Fatalf("fallback plan must follow the ruling, got %s", plan.Action)
	}
	if len(session.Context.DegradedInputs) == 0 {
		t.Fatal("a failed draft must be recorded as degraded input")
	}
}
