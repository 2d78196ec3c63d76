package orchestrator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quorumtrade/quorumtrade/internal/engine"
	"github.com/quorumtrade/quorumtrade/internal/memory"
	"github.com/quorumtrade/quorumtrade/internal/storage"
)

func TestSessionRecordsMemoryAndReflects(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "quorumtrade.db")

	mem, err := memory.Open(dbPath)
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	defer mem.Close()

	store, err := storage.Open(dbPath)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	defer store.Close()

	eng := engine.NewScripted("Session output.\nDECISION: BUY\nCONFIDENCE: 0.7\nRISK: medium")
	orch := New(eng, staticProvider(), mem, WithStore(store))

	session, err := orch.RunSession(ctx, "AAPL", "2026-03-02", testConfig())
	if err != nil {
		t.Fatalf("run session: %v", err)
	}

	decision := session.Context.Decision
	if len(decision.MemoryIDs) == 0 {
		t.Fatal("a finished session must seed at least one memory record")
	}

	// The session document and its memory links round-trip.
	loaded, err := store.GetSession(ctx, "AAPL", "2026-03-02")
	if err != nil || loaded == nil {
		t.Fatalf("load session: %v (%v)", err, loaded)
	}
	ids, err := store.MemoryIDsForDecision(ctx, decision.ID)
	if err != nil {
		t.Fatalf("memory links: %v", err)
	}
	if len(ids) != len(decision.MemoryIDs) {
		t.Fatalf("expected %d linked records, got %d", len(decision.MemoryIDs), len(ids))
	}

	// Reflecting a realized outcome reweights the seeded records.
	if err := orch.ReflectOutcome(ctx, decision.ID, decimal.NewFromFloat(0.08)); err != nil {
		t.Fatalf("reflect: %v", err)
	}
	records, err := mem.Retrieve(ctx, "AAPL", 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	reflected := false
	for _, rec := range records {
		if rec.ID == decision.MemoryIDs[0] && rec.Outcome != nil {
			reflected = true
		}
	}
	if !reflected {
		t.Fatal("the seeded record must carry the reflected outcome")
	}

	// An unknown decision has nothing to reflect into.
	if err := orch.ReflectOutcome(ctx, "no-such-decision", decimal.NewFromFloat(0.01)); err == nil {
		t.Fatal("expected an error for an unknown decision")
	}
}

func TestDeadlineExpiredSessionStillRecordsAndPersists(t *testing.T) {
	// The deadline is already expired when the session starts. The pipeline
	// degrades but the finalization writes run outside the session deadline,
	// so the memory record and the persisted document survive.
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "quorumtrade.db")

	mem, err := memory.Open(dbPath)
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	defer mem.Close()

	store, err := storage.Open(dbPath)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	defer store.Close()

	cfg := testConfig()
	cfg.SessionDeadline = time.Nanosecond

	eng := engine.NewScripted("DECISION: HOLD\nCONFIDENCE: 0.5\nRISK: medium")
	orch := New(eng, staticProvider(), mem, WithStore(store))

	session, err := orch.RunSession(ctx, "AAPL", "2026-03-02", cfg)
	if err != nil {
		t.Fatalf("run session: %v", err)
	}

	decision := session.Context.Decision
	if decision == nil {
		t.Fatal("deadline-hit session must still decide")
	}
	if len(decision.MemoryIDs) == 0 {
		t.Fatal("an expired deadline must not lose the session's memory record")
	}

	loaded, err := store.GetSession(ctx, "AAPL", "2026-03-02")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if loaded == nil {
		t.Fatal("an expired deadline must not lose the persisted session")
	}

	ids, err := store.MemoryIDsForDecision(ctx, decision.ID)
	if err != nil {
		t.Fatalf("memory links: %v", err)
	}
	if len(ids) != len(decision.MemoryIDs) {
		t.Fatalf("expected %d linked records, got %d", len(decision.MemoryIDs), len(ids))
	}
}
