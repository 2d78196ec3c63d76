package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/quorumtrade/quorumtrade/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSession(id string) *models.Session {
	session := models.NewSession(id, "AAPL", "2026-03-02", models.SessionConfig{
		MaxDebateRounds:      1,
		MaxRiskDiscussRounds: 1,
		AnalystRoles:         []models.AnalystRole{models.AnalystMarket},
		NeutralConfidence:    0.5,
	})
	session.Phase = models.PhaseDone
	session.Context.Decision = &models.Decision{
		ID:         "decision-" + id,
		Instrument: "AAPL",
		TradeDate:  "2026-03-02",
		Action:     models.ActionBuy,
		Confidence: 0.7,
		Risk:       models.RiskMedium,
		Rationale:  "test rationale",
		MemoryIDs:  []string{"mem-1", "mem-2"},
		CreatedAt:  time.Now(),
	}
	return session
}

func TestSaveAndGetSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SaveSession(ctx, sampleSession("s1")); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.GetSession(ctx, "AAPL", "2026-03-02")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a session")
	}
	if loaded.ID != "s1" || loaded.Phase != models.PhaseDone {
		t.Fatalf("roundtrip mismatch: %+v", loaded)
	}
	if loaded.Context.Decision == nil || loaded.Context.Decision.Action != models.ActionBuy {
		t.Fatalf("decision lost in roundtrip: %+v", loaded.Context.Decision)
	}
}

func TestGetSessionMissing(t *testing.T) {
	store := openTestStore(t)

	loaded, err := store.GetSession(context.Background(), "TSLA", "2026-03-02")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected nil for missing session, got %+v", loaded)
	}
}

func TestSaveSessionUpserts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SaveSession(ctx, sampleSession("first")); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.SaveSession(ctx, sampleSession("second")); err != nil {
		t.Fatalf("second save: %v", err)
	}

	rows, err := store.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("same instrument/date must upsert, got %d rows", len(rows))
	}
	if rows[0].ID != "second" {
		t.Fatalf("expected the replacement session, got %s", rows[0].ID)
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older := sampleSession("older")
	if err := store.SaveSession(ctx, older); err != nil {
		t.Fatalf("save older: %v", err)
	}

	newer := sampleSession("newer")
	newer.Instrument = "MSFT"
	newer.Context.Decision.Instrument = "MSFT"
	if err := store.SaveSession(ctx, newer); err != nil {
		t.Fatalf("save newer: %v", err)
	}

	rows, err := store.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Instrument != "MSFT" {
		t.Fatalf("expected newest first, got %s", rows[0].Instrument)
	}
}

func TestMemoryIDsForDecision(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	session := sampleSession("s1")
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("save: %v", err)
	}

	ids, err := store.MemoryIDsForDecision(ctx, session.Context.Decision.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 linked memory ids, got %v", ids)
	}

	// Re-saving must not duplicate the links.
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	ids, err = store.MemoryIDsForDecision(ctx, session.Context.Decision.ID)
	if err != nil {
		t.Fatalf("lookup after re-save: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("links must be idempotent, got %v", ids)
	}

	ids, err = store.MemoryIDsForDecision(ctx, "unknown")
	if err != nil {
		t.Fatalf("lookup unknown: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("unknown decision must have no links, got %v", ids)
	}
}
