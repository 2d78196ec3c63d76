package models

import "time"

// AnalystRole identifies one analysis discipline. The set is closed; roles
// are selected per session by configuration.
type AnalystRole string

const (
	AnalystMarket       AnalystRole = "market"
	AnalystFundamentals AnalystRole = "fundamentals"
	AnalystNews         AnalystRole = "news"
	AnalystSentiment    AnalystRole = "sentiment"
	AnalystMomentum     AnalystRole = "momentum"
	AnalystMacro        AnalystRole = "macro"
)

// AllAnalystRoles lists every recognized discipline.
var AllAnalystRoles = []AnalystRole{
	AnalystMarket,
	AnalystFundamentals,
	AnalystNews,
	AnalystSentiment,
	AnalystMomentum,
	AnalystMacro,
}

// DefaultAnalystRoles mirrors the standard four-analyst configuration.
var DefaultAnalystRoles = []AnalystRole{
	AnalystMarket,
	AnalystFundamentals,
	AnalystNews,
	AnalystSentiment,
}

func (r AnalystRole) Valid() bool {
	for _, known := range AllAnalystRoles {
		if r == known {
			return true
		}
	}
	return false
}

// AgentReport is one analyst's output for a session. Immutable once produced;
// a degraded report stands in when data or reasoning was unavailable.
type AgentReport struct {
	Role           AnalystRole `json:"role"`
	Body           string      `json:"body"`
	KeyFindings    []string    `json:"key_findings,omitempty"`
	Degraded       bool        `json:"degraded"`
	DegradedReason string      `json:"degraded_reason,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}
