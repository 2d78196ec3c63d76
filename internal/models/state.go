package models

import (
	"fmt"
	"strings"
	"time"
)

// Phase tracks where a session is in the fixed pipeline order.
type Phase string

const (
	PhaseAnalysis         Phase = "analysis"
	PhaseInvestmentDebate Phase = "investment_debate"
	PhaseTrading          Phase = "trading"
	PhaseRiskDebate       Phase = "risk_debate"
	PhaseDecision         Phase = "decision"
	PhaseDone             Phase = "done"
)

// SessionConfig carries the recognized per-session options.
type SessionConfig struct {
	MaxDebateRounds      int           `json:"max_debate_rounds"`
	MaxRiskDiscussRounds int           `json:"max_risk_discuss_rounds"`
	AnalystRoles         []AnalystRole `json:"analyst_roles"`
	SessionDeadline      time.Duration `json:"session_deadline"`
	MemoryTopK           int           `json:"memory_top_k"`
	NeutralConfidence    float64       `json:"neutral_confidence"`
	CallTimeout          time.Duration `json:"call_timeout"`
	MaxRetries           int           `json:"max_retries"`
	RetryBaseDelay       time.Duration `json:"retry_base_delay"`
}

// Validate rejects a configuration before any session work begins. This is
// the only failure surfaced to the caller as an error.
func (c SessionConfig) Validate() error {
	if c.MaxDebateRounds < 0 {
		return fmt.Errorf("%w: max_debate_rounds must be >= 0, got %d", ErrInvalidConfig, c.MaxDebateRounds)
	}
	if c.MaxRiskDiscussRounds < 0 {
		return fmt.Errorf("%w: max_risk_discuss_rounds must be >= 0, got %d", ErrInvalidConfig, c.MaxRiskDiscussRounds)
	}
	if c.MemoryTopK < 0 {
		return fmt.Errorf("%w: memory_top_k must be >= 0, got %d", ErrInvalidConfig, c.MemoryTopK)
	}
	if len(c.AnalystRoles) == 0 {
		return fmt.Errorf("%w: at least one analyst role is required", ErrInvalidConfig)
	}
	seen := make(map[AnalystRole]bool, len(c.AnalystRoles))
	for _, role := range c.AnalystRoles {
		if !role.Valid() {
			return fmt.Errorf("%w: unknown analyst role %q", ErrInvalidConfig, role)
		}
		if seen[role] {
			return fmt.Errorf("%w: duplicate analyst role %q", ErrInvalidConfig, role)
		}
		seen[role] = true
	}
	if c.NeutralConfidence < 0 || c.NeutralConfidence > 1 {
		return fmt.Errorf("%w: neutral_confidence must be in [0,1], got %v", ErrInvalidConfig, c.NeutralConfidence)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must be >= 0, got %d", ErrInvalidConfig, c.MaxRetries)
	}
	return nil
}

// ContextStore is the session's append-only record of everything produced so
// far. The orchestrator goroutine is its sole writer; analyst results are
// funneled through the pool's merge barrier before landing here, so no lock
// is needed.
type ContextStore struct {
	Reports          map[AnalystRole]*AgentReport `json:"reports"`
	CompletionOrder  []AnalystRole                `json:"completion_order"`
	InvestmentDebate *DebateState                 `json:"investment_debate,omitempty"`
	RiskDebate       *DebateState                 `json:"risk_debate,omitempty"`
	DraftPlan        *DraftPlan                   `json:"draft_plan,omitempty"`
	Decision         *Decision                    `json:"decision,omitempty"`
	DegradedInputs   []string                     `json:"degraded_inputs,omitempty"`
	MemoryExcerpts   map[string]string            `json:"memory_excerpts,omitempty"`
}

func NewContextStore() *ContextStore {
	return &ContextStore{
		Reports:        make(map[AnalystRole]*AgentReport),
		MemoryExcerpts: make(map[string]string),
	}
}

// AddReport records one analyst's report in completion order.
func (c *ContextStore) AddReport(report *AgentReport) {
	c.Reports[report.Role] = report
	c.CompletionOrder = append(c.CompletionOrder, report.Role)
	if report.Degraded {
		c.MarkDegraded(fmt.Sprintf("%s analyst (%s)", report.Role, report.DegradedReason))
	}
}

func (c *ContextStore) MarkDegraded(name string) {
	c.DegradedInputs = append(c.DegradedInputs, name)
}

// HasAllReports reports whether every configured role has produced a report,
// degraded or not. This is the merge barrier's advancement condition.
func (c *ContextStore) HasAllReports(roles []AnalystRole) bool {
	for _, role := range roles {
		if c.Reports[role] == nil {
			return false
		}
	}
	return true
}

// ReportsDigest renders every configured role's report as one prompt block.
// Iteration follows the configured role order, not completion order, so the
// digest is stable across runs.
func (c *ContextStore) ReportsDigest(roles []AnalystRole) string {
	var b strings.Builder
	for _, role := range roles {
		report := c.Reports[role]
		if report == nil {
			continue
		}
		fmt.Fprintf(&b, "=== %s report ===\n%s\n\n", role, report.Body)
	}
	return strings.TrimSpace(b.String())
}

// Session is one end-to-end orchestration run for one instrument/date pair.
// Sessions never share mutable state.
type Session struct {
	ID         string        `json:"id"`
	Instrument string        `json:"instrument"`
	TradeDate  string        `json:"trade_date"`
	Config     SessionConfig `json:"config"`
	Phase      Phase         `json:"phase"`
	Context    *ContextStore `json:"context"`
	CreatedAt  time.Time     `json:"created_at"`
}

func NewSession(id, instrument, tradeDate string, cfg SessionConfig) *Session {
	return &Session{
		ID:         id,
		Instrument: instrument,
		TradeDate:  tradeDate,
		Config:     cfg,
		Phase:      PhaseAnalysis,
		Context:    NewContextStore(),
		CreatedAt:  time.Now(),
	}
}
