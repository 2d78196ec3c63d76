// Package storage persists finished sessions and their decision records,
// keyed by (instrument, trade date), plus the decision-to-memory links the
// reflection stage needs to find the records a decision seeded.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quorumtrade/quorumtrade/internal/models"
)

type Store struct {
	db *sql.DB
}

// SessionRow is one persisted session summary.
type SessionRow struct {
	ID         string
	Instrument string
	TradeDate  string
	Phase      string
	Action     string
	Confidence float64
	CreatedAt  string
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    instrument TEXT NOT NULL,
    trade_date TEXT NOT NULL,
    phase TEXT NOT NULL,
    document TEXT NOT NULL,
    decision_id TEXT,
    action TEXT,
    confidence REAL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(instrument, trade_date)
);

CREATE TABLE IF NOT EXISTS decision_memory (
    decision_id TEXT NOT NULL,
    memory_id TEXT NOT NULL,
    PRIMARY KEY (decision_id, memory_id)
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveSession upserts the full session document keyed by instrument and
// trade date. Re-running an analysis for the same pair replaces the record.
func (s *Store) SaveSession(ctx context.Context, session *models.Session) error {
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	var decisionID, action string
	var confidence float64
	if d := session.Context.Decision; d != nil {
		decisionID = d.ID
		action = string(d.Action)
		confidence = d.Confidence
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO sessions (id, instrument, trade_date, phase, document, decision_id, action, confidence)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(instrument, trade_date) DO UPDATE SET
    id=excluded.id,
    phase=excluded.phase,
    document=excluded.document,
    decision_id=excluded.decision_id,
    action=excluded.action,
    confidence=excluded.confidence,
    updated_at=CURRENT_TIMESTAMP
`, session.ID, session.Instrument, session.TradeDate, string(session.Phase), string(doc), decisionID, action, confidence)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	if d := session.Context.Decision; d != nil && len(d.MemoryIDs) > 0 {
		for _, memID := range d.MemoryIDs {
			if _, err := s.db.ExecContext(ctx, `
INSERT INTO decision_memory (decision_id, memory_id) VALUES (?, ?)
ON CONFLICT(decision_id, memory_id) DO NOTHING
`, d.ID, memID); err != nil {
				return fmt.Errorf("link decision memory: %w", err)
			}
		}
	}
	return nil
}

// GetSession loads the full session document for an instrument/date pair.
func (s *Store) GetSession(ctx context.Context, instrument, tradeDate string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT document FROM sessions WHERE instrument = ? AND trade_date = ? LIMIT 1
`, instrument, tradeDate)

	var doc string
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(doc), &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// ListSessions returns recent session summaries, newest first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, instrument, trade_date, phase, COALESCE(action, ''), COALESCE(confidence, 0), created_at
FROM sessions
ORDER BY rowid DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionRow
	for rows.Next() {
		var rec SessionRow
		if err := rows.Scan(&rec.ID, &rec.Instrument, &rec.TradeDate, &rec.Phase, &rec.Action, &rec.Confidence, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions rows: %w", err)
	}
	return sessions, nil
}

// MemoryIDsForDecision returns the memory records a decision seeded.
func (s *Store) MemoryIDsForDecision(ctx context.Context, decisionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT memory_id FROM decision_memory WHERE decision_id = ?
`, decisionID)
	if err != nil {
		return nil, fmt.Errorf("lookup decision memory: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan memory id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("decision memory rows: %w", err)
	}
	return ids, nil
}
