package config

import (
	"testing"
	"time"

	"github.com/quorumtrade/quorumtrade/internal/models"
)

func TestSessionConfigRoleParsing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AnalystRoles = "market, momentum ,macro"

	sc := cfg.SessionConfig()
	want := []models.AnalystRole{models.AnalystMarket, models.AnalystMomentum, models.AnalystMacro}
	if len(sc.AnalystRoles) != len(want) {
		t.Fatalf("expected %d roles, got %d", len(want), len(sc.AnalystRoles))
	}
	for i, role := range want {
		if sc.AnalystRoles[i] != role {
			t.Fatalf("role %d: expected %s, got %s", i, role, sc.AnalystRoles[i])
		}
	}
}

func TestSessionConfigDurations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionDeadlineSec = 60
	cfg.CallTimeoutSec = 5
	cfg.RetryBaseDelayMs = 250

	sc := cfg.SessionConfig()
	if sc.SessionDeadline != 60*time.Second {
		t.Fatalf("expected 60s deadline, got %v", sc.SessionDeadline)
	}
	if sc.CallTimeout != 5*time.Second {
		t.Fatalf("expected 5s call timeout, got %v", sc.CallTimeout)
	}
	if sc.RetryBaseDelay != 250*time.Millisecond {
		t.Fatalf("expected 250ms base delay, got %v", sc.RetryBaseDelay)
	}
}

func TestValidateRejectsUnknownRole(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AnalystRoles = "market,astrology"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown role")
	}
}

func TestValidateRejectsDuplicateRole(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AnalystRoles = "market,market"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for duplicate role")
	}
}

func TestValidateRejectsNegativeRounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDebateRounds = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for negative debate rounds")
	}
}

func TestValidateRejectsOutOfRangeNeutralConfidence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NeutralConfidence = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for neutral confidence > 1")
	}
}

func TestValidateDefaultsPass(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration must validate: %v", err)
	}
}
