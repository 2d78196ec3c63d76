package models

import "time"

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	}
	return false
}

type RiskTag string

const (
	RiskLow    RiskTag = "low"
	RiskMedium RiskTag = "medium"
	RiskHigh   RiskTag = "high"
)

// DraftPlan is the trader stage's tentative plan. It is input to the risk
// debate, never the final word.
type DraftPlan struct {
	Action    Action    `json:"action"`
	Reasoning string    `json:"reasoning"`
	CreatedAt time.Time `json:"created_at"`
}

// Decision is the session's terminal record. Created once by the decision
// stage and immutable thereafter.
type Decision struct {
	ID             string        `json:"id"`
	Instrument     string        `json:"instrument"`
	TradeDate      string        `json:"trade_date"`
	Action         Action        `json:"action"`
	Confidence     float64       `json:"confidence"`
	Risk           RiskTag       `json:"risk"`
	Rationale      string        `json:"rationale"`
	ReportRoles    []AnalystRole `json:"report_roles"`
	DegradedInputs []string      `json:"degraded_inputs,omitempty"`
	MemoryIDs      []string      `json:"memory_ids,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}
