package models

import (
	"strings"
	"testing"
)

func TestContextStoreMergeBarrier(t *testing.T) {
	roles := []AnalystRole{AnalystMarket, AnalystNews}
	store := NewContextStore()

	if store.HasAllReports(roles) {
		t.Fatal("empty store must not satisfy the barrier")
	}

	store.AddReport(&AgentReport{Role: AnalystNews, Body: "news body"})
	if store.HasAllReports(roles) {
		t.Fatal("one missing role must not satisfy the barrier")
	}

	store.AddReport(&AgentReport{Role: AnalystMarket, Body: "market body"})
	if !store.HasAllReports(roles) {
		t.Fatal("all roles reported, barrier must pass")
	}
}

func TestAddReportRecordsDegradation(t *testing.T) {
	store := NewContextStore()
	store.AddReport(&AgentReport{
		Role:           AnalystMarket,
		Body:           "Insufficient data",
		Degraded:       true,
		DegradedReason: "data unavailable",
	})

	if len(store.DegradedInputs) != 1 {
		t.Fatalf("expected one degraded input, got %v", store.DegradedInputs)
	}
	if !strings.Contains(store.DegradedInputs[0], "market") {
		t.Fatalf("degraded input must name the role: %q", store.DegradedInputs[0])
	}
}

func TestReportsDigestStableOrder(t *testing.T) {
	roles := []AnalystRole{AnalystMarket, AnalystNews}
	store := NewContextStore()

	// Completion order is news first, but the digest follows configured order.
	store.AddReport(&AgentReport{Role: AnalystNews, Body: "news body"})
	store.AddReport(&AgentReport{Role: AnalystMarket, Body: "market body"})

	digest := store.ReportsDigest(roles)
	marketAt := strings.Index(digest, "market body")
	newsAt := strings.Index(digest, "news body")
	if marketAt == -1 || newsAt == -1 {
		t.Fatalf("digest must include every report:\n%s", digest)
	}
	if marketAt > newsAt {
		t.Fatal("digest must follow configured role order, not completion order")
	}
}

func TestSessionConfigValidate(t *testing.T) {
	valid := SessionConfig{
		MaxDebateRounds:      2,
		MaxRiskDiscussRounds: 1,
		AnalystRoles:         DefaultAnalystRoles,
		NeutralConfidence:    0.5,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	zeroRounds := valid
	zeroRounds.MaxDebateRounds = 0
	if err := zeroRounds.Validate(); err != nil {
		t.Fatalf("zero debate rounds is legal: %v", err)
	}

	cases := map[string]SessionConfig{
		"negative rounds":    {MaxDebateRounds: -1, AnalystRoles: DefaultAnalystRoles, NeutralConfidence: 0.5},
		"no roles":           {MaxDebateRounds: 1, NeutralConfidence: 0.5},
		"unknown role":       {MaxDebateRounds: 1, AnalystRoles: []AnalystRole{"astrology"}, NeutralConfidence: 0.5},
		"duplicate role":     {MaxDebateRounds: 1, AnalystRoles: []AnalystRole{AnalystMarket, AnalystMarket}, NeutralConfidence: 0.5},
		"confidence too big": {MaxDebateRounds: 1, AnalystRoles: DefaultAnalystRoles, NeutralConfidence: 1.2},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestDebateStateHistory(t *testing.T) {
	state := NewDebateState("topic")
	state.Append(DebateTurn{Speaker: "Bull Analyst", Round: 1, Content: "up"})
	state.Append(DebateTurn{Speaker: "Bear Analyst", Round: 1, Content: "down"})

	history := state.History()
	if !strings.Contains(history, "Bull Analyst: up") || !strings.Contains(history, "Bear Analyst: down") {
		t.Fatalf("history missing turns:\n%s", history)
	}

	own := state.SpeakerHistory("Bull Analyst")
	if own != "up" {
		t.Fatalf("speaker history wrong: %q", own)
	}
	if state.Ruled() {
		t.Fatal("state must not be ruled before a ruling is set")
	}
}
