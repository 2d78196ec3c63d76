// Package trader synthesizes the analyst reports, the investment-debate
// ruling, and a memory excerpt into a draft trading plan. The draft is input
// to the risk debate, never the final word.
package trader

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/quorumtrade/quorumtrade/internal/engine"
	"github.com/quorumtrade/quorumtrade/internal/memory"
	"github.com/quorumtrade/quorumtrade/internal/models"
	"github.com/quorumtrade/quorumtrade/internal/processing"
)

type Stage struct {
	eng    engine.Engine
	mem    memory.Subsystem
	parser *processing.RulingProcessor
}

func NewStage(eng engine.Engine, mem memory.Subsystem) *Stage {
	return &Stage{
		eng:    eng,
		mem:    mem,
		parser: processing.NewRulingProcessor(),
	}
}

const traderPromptTemplate = `You are a professional trader turning research into an actionable plan for {instrument} as of {trade_date}.

Analyst reports:
{reports}

Investment debate ruling ({ruling_speaker}):
{ruling}

{memory_excerpt}

Propose a concrete trading plan consistent with the ruling: the action, sizing
posture, and the conditions that would invalidate the plan. End with the line:
DECISION: BUY, SELL, or HOLD`

// Draft produces the draft plan and writes it into the session's context
// store. A failed reasoning call degrades to a plan derived from the ruling
// alone rather than aborting the session.
func (s *Stage) Draft(ctx context.Context, session *models.Session) *models.DraftPlan {
	cfg := session.Config
	ruling := session.Context.InvestmentDebate.Ruling
	rulingVerdict := s.parser.Parse(ruling.Text, cfg.NeutralConfidence)

	excerpt := ""
	if s.mem != nil && cfg.MemoryTopK > 0 {
		records, err := s.mem.Retrieve(ctx, ruling.Text, cfg.MemoryTopK)
		if err != nil {
			log.Printf("trader: memory retrieve failed, continuing without: %v", err)
		} else {
			excerpt = memory.Excerpt(records)
		}
	}

	tpl := prompt.FromMessages(schema.FString, schema.UserMessage(traderPromptTemplate))
	msgs, err := tpl.Format(ctx, map[string]any{
		"instrument":     session.Instrument,
		"trade_date":     session.TradeDate,
		"reports":        session.Context.ReportsDigest(cfg.AnalystRoles),
		"ruling_speaker": ruling.Speaker,
		"ruling":         ruling.Text,
		"memory_excerpt": excerpt,
	})

	var text string
	if err == nil {
		text, err = engine.CallWithRetry(ctx, s.eng, msgs, cfg)
	}
	if err != nil {
		log.Printf("trader: draft reasoning failed for %s: %v", session.Instrument, err)
		plan := s.fallbackPlan(rulingVerdict)
		session.Context.MarkDegraded("trader stage (reasoning failed)")
		session.Context.DraftPlan = plan
		return plan
	}

	action := rulingVerdict.Action
	if !rulingVerdict.HasAction {
		action = models.ActionHold
	}
	if v := s.parser.Parse(text, cfg.NeutralConfidence); v.HasAction {
		action = v.Action
	}

	plan := &models.DraftPlan{
		Action:    action,
		Reasoning: strings.TrimSpace(text),
		CreatedAt: time.Now(),
	}
	session.Context.DraftPlan = plan
	return plan
}

// fallbackPlan carries the investment ruling's direction forward when the
// trader itself could not reason.
func (s *Stage) fallbackPlan(v processing.Verdict) *models.DraftPlan {
	action := models.ActionHold
	if v.HasAction {
		action = v.Action
	}
	return &models.DraftPlan{
		Action: action,
		Reasoning: fmt.Sprintf(
			"Draft plan degraded: the trader could not produce a synthesis, so the plan follows the investment ruling's %s direction.",
			action),
		CreatedAt: time.Now(),
	}
}
