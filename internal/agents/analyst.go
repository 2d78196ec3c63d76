// Package agents implements the analyst pool: one independently invocable
// unit per analysis discipline, fanned out concurrently and joined at a merge
// barrier before the investment debate starts.
package agents

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/quorumtrade/quorumtrade/internal/dataflows"
	"github.com/quorumtrade/quorumtrade/internal/engine"
	"github.com/quorumtrade/quorumtrade/internal/memory"
	"github.com/quorumtrade/quorumtrade/internal/models"
)

// Deps are the collaborators an analyst needs. Memory may be nil; a missing
// or failing memory store only drops the augmentation.
type Deps struct {
	Engine   engine.Engine
	Provider dataflows.SnapshotProvider
	Memory   memory.Subsystem
}

// Analyst produces one discipline's report from a data snapshot plus a
// memory excerpt. Pure with respect to session state: it reads configuration
// and writes nothing.
type Analyst struct {
	Role    models.AnalystRole
	charter string
	focus   string
}

const analystPromptTemplate = `{charter}

You are analyzing {instrument} as of {trade_date}.

Data snapshot:
{snapshot}

{memory_excerpt}

{focus}

End your report with 2-4 key findings as "- " bullet lines.`

// ForRole returns the analyst for one of the closed set of disciplines.
func ForRole(role models.AnalystRole) (*Analyst, error) {
	switch role {
	case models.AnalystMarket:
		return &Analyst{
			Role:    role,
			charter: "You are a market analyst specializing in price action, trading ranges, and volume behavior.",
			focus:   "Assess the current price trend and what it implies for near-term direction.",
		}, nil
	case models.AnalystFundamentals:
		return &Analyst{
			Role:    role,
			charter: "You are a fundamentals analyst specializing in earnings, valuation multiples, and balance-sheet quality.",
			focus:   "Assess whether the company looks cheap or expensive against its earnings power.",
		}, nil
	case models.AnalystNews:
		return &Analyst{
			Role:    role,
			charter: "You are a news analyst specializing in company events and their likely market impact.",
			focus:   "Assess which recent headlines are material and in which direction they cut.",
		}, nil
	case models.AnalystSentiment:
		return &Analyst{
			Role:    role,
			charter: "You are a sentiment analyst specializing in insider activity and crowd positioning.",
			focus:   "Assess whether informed participants are accumulating or distributing.",
		}, nil
	case models.AnalystMomentum:
		return &Analyst{
			Role:    role,
			charter: "You are a momentum analyst specializing in trend persistence and moving-average structure.",
			focus:   "Assess whether the prevailing trend is intact, stalling, or reversing.",
		}, nil
	case models.AnalystMacro:
		return &Analyst{
			Role:    role,
			charter: "You are a macro analyst specializing in market-wide conditions and cross-asset risk appetite.",
			focus:   "Assess whether the broad environment supports or opposes taking risk in this name.",
		}, nil
	default:
		return nil, fmt.Errorf("unknown analyst role %q", role)
	}
}

// Produce runs the analyst to completion. It never fails: any exhausted data
// or reasoning fault yields a degraded report instead.
func (a *Analyst) Produce(ctx context.Context, session *models.Session, deps Deps) *models.AgentReport {
	cfg := session.Config

	snapshot, err := fetchSnapshot(ctx, deps.Provider, session, a.Role)
	if err != nil {
		log.Printf("analyst %s: snapshot unavailable for %s: %v", a.Role, session.Instrument, err)
		return a.degraded(session, degradeReason(err))
	}

	excerpt := ""
	if deps.Memory != nil && cfg.MemoryTopK > 0 {
		records, err := deps.Memory.Retrieve(ctx, snapshot.Summary, cfg.MemoryTopK)
		if err != nil {
			// Non-fatal: analyze without augmentation.
			log.Printf("analyst %s: memory retrieve failed, continuing without: %v", a.Role, err)
		} else {
			excerpt = memory.Excerpt(records)
		}
	}

	msgs, err := a.buildMessages(ctx, session, snapshot, excerpt)
	if err != nil {
		log.Printf("analyst %s: prompt assembly failed: %v", a.Role, err)
		return a.degraded(session, "prompt assembly failed")
	}

	text, err := engine.CallWithRetry(ctx, deps.Engine, msgs, cfg)
	if err != nil {
		log.Printf("analyst %s: reasoning failed for %s: %v", a.Role, session.Instrument, err)
		return a.degraded(session, degradeReason(err))
	}

	return &models.AgentReport{
		Role:        a.Role,
		Body:        strings.TrimSpace(text),
		KeyFindings: extractFindings(text),
		CreatedAt:   time.Now(),
	}
}

func (a *Analyst) buildMessages(ctx context.Context, session *models.Session, snapshot *dataflows.Snapshot, excerpt string) ([]*schema.Message, error) {
	tpl := prompt.FromMessages(schema.FString,
		schema.UserMessage(analystPromptTemplate),
	)
	return tpl.Format(ctx, map[string]any{
		"charter":        a.charter,
		"focus":          a.focus,
		"instrument":     session.Instrument,
		"trade_date":     session.TradeDate,
		"snapshot":       snapshot.Summary,
		"memory_excerpt": excerpt,
	})
}

func (a *Analyst) degraded(session *models.Session, reason string) *models.AgentReport {
	body := fmt.Sprintf(
		"Insufficient data: the %s analysis of %s for %s could not be completed (%s). "+
			"Downstream stages should weight this discipline accordingly.",
		a.Role, session.Instrument, session.TradeDate, reason)
	return &models.AgentReport{
		Role:           a.Role,
		Body:           body,
		Degraded:       true,
		DegradedReason: reason,
		CreatedAt:      time.Now(),
	}
}

const maxFetchBackoff = 30 * time.Second

// fetchBackoff doubles the base delay per attempt, capped so a generous retry
// budget cannot stall an analyst for minutes.
func fetchBackoff(base time.Duration, attempt int) time.Duration {
	delay := base << (attempt - 1)
	if delay < 0 || delay > maxFetchBackoff {
		return maxFetchBackoff
	}
	return delay
}

// fetchSnapshot applies the session's retry policy to the vendor call.
func fetchSnapshot(ctx context.Context, provider dataflows.SnapshotProvider, session *models.Session, kind models.AnalystRole) (*dataflows.Snapshot, error) {
	cfg := session.Config
	var snapshot *dataflows.Snapshot
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", models.ErrSessionDeadline, lastErr)
			case <-time.After(fetchBackoff(cfg.RetryBaseDelay, attempt)):
			}
		}

		callCtx := ctx
		cancel := func() {}
		if cfg.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, cfg.CallTimeout)
		}
		snap, err := provider.Fetch(callCtx, session.Instrument, session.TradeDate, kind)
		cancel()
		if err == nil {
			snapshot = snap
			return snapshot, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrSessionDeadline, lastErr)
		}
	}
	return nil, lastErr
}

func degradeReason(err error) string {
	switch {
	case errors.Is(err, models.ErrDataUnavailable):
		return "data unavailable"
	case errors.Is(err, models.ErrReasoningTimeout):
		return "reasoning timeout"
	case errors.Is(err, models.ErrReasoningFailed):
		return "reasoning failed"
	case errors.Is(err, models.ErrSessionDeadline):
		return "session deadline exceeded"
	default:
		return err.Error()
	}
}

func extractFindings(text string) []string {
	var findings []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "- ") {
			findings = append(findings, strings.TrimPrefix(line, "- "))
		}
	}
	if len(findings) > 6 {
		findings = findings[:6]
	}
	return findings
}
