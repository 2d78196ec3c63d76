package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/quorumtrade/quorumtrade/internal/models"
	"github.com/quorumtrade/quorumtrade/pkg/utils"
)

// recencyHalfLifeDays controls how fast recency decays: a record loses half
// its recency weight every 30 days.
const recencyHalfLifeDays = 30.0

// Record is one stored decision situation with its optional realized outcome.
type Record struct {
	ID             string
	Instrument     string
	Situation      string
	Fingerprint    []float64
	Outcome        *decimal.Decimal
	SeedImportance float64
	Importance     float64
	RecordedAt     time.Time

	// Score is the composite retrieval score, populated on Retrieve only.
	Score float64
}

// Store persists memory records in sqlite. It is the only cross-session
// shared mutable resource; all access goes through this narrow contract.
type Store struct {
	db     *sql.DB
	lambda float64
	now    func() time.Time
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

	return &Store{
		db:     db,
		lambda: math.Ln2 / recencyHalfLifeDays,
		now:    time.Now,
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS memory_records (
    id TEXT PRIMARY KEY,
    instrument TEXT NOT NULL,
    situation TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    outcome REAL,
    seed_importance REAL NOT NULL,
    importance REAL NOT NULL,
    recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memory_recorded ON memory_records(recorded_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init memory schema: %w", err)
	}
	return nil
}

// Record appends one situation. Single INSERT, so it either lands whole or
// not at all.
func (s *Store) Record(ctx context.Context, instrument, situation string, seedImportance float64) (string, error) {
	seedImportance = clamp01(seedImportance)

	fp, err := json.Marshal(Fingerprint(situation))
	if err != nil {
		return "", fmt.Errorf("%w: encode fingerprint: %v", models.ErrMemoryUnavailable, err)
	}

	id := utils.RandStr(16)
	_, err = s.db.ExecContext(ctx, `
INSERT INTO memory_records (id, instrument, situation, fingerprint, seed_importance, importance, recorded_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, id, instrument, situation, string(fp), seedImportance, seedImportance, s.now().UTC())
	if err != nil {
		return "", fmt.Errorf("%w: insert record: %v", models.ErrMemoryUnavailable, err)
	}
	return id, nil
}

// Retrieve returns up to k records ranked by the composite score
// recency + relevancy + importance (equal weights). An empty store yields an
// empty result, not an error; ties break toward the most recent record.
func (s *Store) Retrieve(ctx context.Context, query string, k int) ([]Record, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, instrument, situation, fingerprint, outcome, seed_importance, importance, recorded_at
FROM memory_records
`)
	if err != nil {
		return nil, fmt.Errorf("%w: query records: %v", models.ErrMemoryUnavailable, err)
	}
	defer rows.Close()

	queryFP := Fingerprint(query)
	now := s.now().UTC()

	var records []Record
	for rows.Next() {
		var rec Record
		var fpRaw string
		var outcome sql.NullFloat64
		if err := rows.Scan(&rec.ID, &rec.Instrument, &rec.Situation, &fpRaw, &outcome,
			&rec.SeedImportance, &rec.Importance, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("%w: scan record: %v", models.ErrMemoryUnavailable, err)
		}
		if err := json.Unmarshal([]byte(fpRaw), &rec.Fingerprint); err != nil {
			return nil, fmt.Errorf("%w: decode fingerprint: %v", models.ErrMemoryUnavailable, err)
		}
		if outcome.Valid {
			d := decimal.NewFromFloat(outcome.Float64)
			rec.Outcome = &d
		}

		ageDays := now.Sub(rec.RecordedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		recency := math.Exp(-s.lambda * ageDays)
		relevancy := Cosine(queryFP, rec.Fingerprint)
		rec.Score = (recency + relevancy + rec.Importance) / 3

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate records: %v", models.ErrMemoryUnavailable, err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Score != records[j].Score {
			return records[i].Score > records[j].Score
		}
		return records[i].RecordedAt.After(records[j].RecordedAt)
	})

	if len(records) > k {
		records = records[:k]
	}
	return records, nil
}

// Reflect rescales importance for the given records from the realized
// outcome. Importance is recomputed from (seed, outcome) alone, never
// accumulated, so replaying the same outcome is a no-op.
func (s *Store) Reflect(ctx context.Context, ids []string, outcome decimal.Decimal) error {
	if len(ids) == 0 {
		return nil
	}

	magnitude, _ := outcome.Abs().Float64()
	// Saturating magnitude weight: a bigger realized P&L impact pushes
	// importance toward 1 without ever exceeding it.
	weight := magnitude / (magnitude + 1)
	outcomeVal, _ := outcome.Float64()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin reflect: %v", models.ErrMemoryUnavailable, err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		var seed float64
		err := tx.QueryRowContext(ctx, `SELECT seed_importance FROM memory_records WHERE id = ?`, id).Scan(&seed)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: load record %s: %v", models.ErrMemoryUnavailable, id, err)
		}

		importance := clamp01(seed/2 + weight/2)
		if _, err := tx.ExecContext(ctx, `
UPDATE memory_records SET importance = ?, outcome = ? WHERE id = ?
`, importance, outcomeVal, id); err != nil {
			return fmt.Errorf("%w: update record %s: %v", models.ErrMemoryUnavailable, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit reflect: %v", models.ErrMemoryUnavailable, err)
	}
	return nil
}

// Excerpt renders retrieved records as a numbered prompt block, or "" when
// nothing was retrieved.
func Excerpt(records []Record) string {
	if len(records) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Lessons from similar past situations:\n")
	for i, rec := range records {
		outcome := "outcome not yet known"
		if rec.Outcome != nil {
			outcome = fmt.Sprintf("realized P&L %s", rec.Outcome.StringFixed(2))
		}
		fmt.Fprintf(&b, "%d. [%s, %s] %s\n", i+1, rec.Instrument, outcome, rec.Situation)
	}
	return strings.TrimSpace(b.String())
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
