// Package orchestrator drives one session through the fixed pipeline:
// analyst fan-out, investment debate, trader draft, risk debate, decision
// fold, then memory recording and persistence. The phase order never varies;
// within the analysis phase the analysts run concurrently behind a merge
// barrier.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/quorumtrade/quorumtrade/internal/agents"
	"github.com/quorumtrade/quorumtrade/internal/dataflows"
	"github.com/quorumtrade/quorumtrade/internal/debate"
	"github.com/quorumtrade/quorumtrade/internal/engine"
	"github.com/quorumtrade/quorumtrade/internal/memory"
	"github.com/quorumtrade/quorumtrade/internal/models"
	"github.com/quorumtrade/quorumtrade/internal/processing"
	"github.com/quorumtrade/quorumtrade/internal/storage"
	"github.com/quorumtrade/quorumtrade/internal/trader"
	"github.com/quorumtrade/quorumtrade/pkg/utils"
)

type Orchestrator struct {
	eng      engine.Engine
	provider dataflows.SnapshotProvider
	mem      memory.Subsystem
	store    *storage.Store
	parser   *processing.RulingProcessor

	// resultsDir, when set, receives per-session markdown transcripts.
	resultsDir string
}

type Option func(*Orchestrator)

// WithStore enables session persistence.
func WithStore(store *storage.Store) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithResultsDir enables markdown transcript dumps under dir.
func WithResultsDir(dir string) Option {
	return func(o *Orchestrator) { o.resultsDir = dir }
}

func New(eng engine.Engine, provider dataflows.SnapshotProvider, mem memory.Subsystem, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		eng:      eng,
		provider: provider,
		mem:      mem,
		parser:   processing.NewRulingProcessor(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunSession executes one full session for an instrument/date pair. Invalid
// configuration is the only error: once the session starts, every downstream
// fault is absorbed as degraded input and the session still terminates with
// a decision.
func (o *Orchestrator) RunSession(ctx context.Context, instrument, tradeDate string, cfg models.SessionConfig) (*models.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	instrument = strings.ToUpper(strings.TrimSpace(instrument))
	if instrument == "" {
		return nil, fmt.Errorf("%w: instrument is required", models.ErrInvalidConfig)
	}

	if cfg.SessionDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.SessionDeadline)
		defer cancel()
	}

	session := models.NewSession(utils.RandStr(16), instrument, tradeDate, cfg)
	log.Printf("session %s: starting analysis of %s as of %s (%d analysts)",
		session.ID, instrument, tradeDate, len(cfg.AnalystRoles))

	o.runAnalysis(ctx, session)
	o.runInvestmentDebate(ctx, session)
	o.runTrading(ctx, session)
	o.runRiskDebate(ctx, session)
	o.fold(session)
	o.finalize(ctx, session)

	session.Phase = models.PhaseDone
	return session, nil
}

// runAnalysis fans the analysts out and joins them at the merge barrier.
// Every configured role lands a report, degraded or not, before the phase
// advances.
func (o *Orchestrator) runAnalysis(ctx context.Context, session *models.Session) {
	session.Phase = models.PhaseAnalysis

	pool := agents.NewPool(agents.Deps{
		Engine:   o.eng,
		Provider: o.provider,
		Memory:   o.mem,
	})
	for _, report := range pool.Run(ctx, session) {
		session.Context.AddReport(report)
	}
	if !session.Context.HasAllReports(session.Config.AnalystRoles) {
		// The pool contract guarantees one report per role; this is a bug trap,
		// not an expected path.
		log.Printf("session %s: merge barrier closed with missing reports", session.ID)
	}
}

func (o *Orchestrator) runInvestmentDebate(ctx context.Context, session *models.Session) {
	session.Phase = models.PhaseInvestmentDebate
	cfg := session.Config

	digest := session.Context.ReportsDigest(cfg.AnalystRoles)
	materials := debate.Materials{
		Shared:        digest,
		MemoryExcerpt: o.memoryExcerpt(ctx, session, "investment_debate", digest),
	}

	coord := debate.NewCoordinator(o.eng, debate.InvestmentRoles(), debate.InvestmentJudge(), cfg.MaxDebateRounds, cfg)
	topic := fmt.Sprintf("Investment stance on %s as of %s", session.Instrument, session.TradeDate)
	state := coord.Run(ctx, topic, materials)
	session.Context.InvestmentDebate = state
	o.noteDebateDegradation(session, "investment debate", state)
}

func (o *Orchestrator) runTrading(ctx context.Context, session *models.Session) {
	session.Phase = models.PhaseTrading
	stage := trader.NewStage(o.eng, o.mem)
	stage.Draft(ctx, session)
}

func (o *Orchestrator) runRiskDebate(ctx context.Context, session *models.Session) {
	session.Phase = models.PhaseRiskDebate
	cfg := session.Config

	plan := session.Context.DraftPlan
	shared := fmt.Sprintf("Draft plan (action: %s):\n%s", plan.Action, plan.Reasoning)
	materials := debate.Materials{
		Shared:        shared,
		MemoryExcerpt: o.memoryExcerpt(ctx, session, "risk_debate", plan.Reasoning),
	}

	coord := debate.NewCoordinator(o.eng, debate.RiskRoles(), debate.RiskJudge(), cfg.MaxRiskDiscussRounds, cfg)
	topic := fmt.Sprintf("Risk posture of the draft %s plan for %s as of %s", plan.Action, session.Instrument, session.TradeDate)
	state := coord.Run(ctx, topic, materials)
	session.Context.RiskDebate = state
	o.noteDebateDegradation(session, "risk debate", state)
}

// fold collapses the draft plan and the risk ruling into the session's
// immutable decision. The risk judge's explicit OVERRIDE directive is
// authoritative over the draft's action; sentiment in the ruling text is not.
func (o *Orchestrator) fold(session *models.Session) {
	session.Phase = models.PhaseDecision
	cfg := session.Config
	store := session.Context

	verdict := o.parser.Parse(store.RiskDebate.Ruling.Text, cfg.NeutralConfidence)

	action := store.DraftPlan.Action
	if verdict.Override != nil {
		log.Printf("session %s: risk judge override %s -> %s", session.ID, action, *verdict.Override)
		action = *verdict.Override
	}

	store.Decision = &models.Decision{
		ID:             utils.RandStr(16),
		Instrument:     session.Instrument,
		TradeDate:      session.TradeDate,
		Action:         action,
		Confidence:     verdict.Confidence,
		Risk:           verdict.Risk,
		Rationale:      o.rationale(session, verdict),
		ReportRoles:    append([]models.AnalystRole(nil), cfg.AnalystRoles...),
		DegradedInputs: append([]string(nil), store.DegradedInputs...),
		CreatedAt:      time.Now(),
	}
}

// rationale renders the decision's narrative: the risk ruling, the chain back
// to the investment ruling, and an explicit accounting of degraded inputs.
func (o *Orchestrator) rationale(session *models.Session, verdict processing.Verdict) string {
	store := session.Context

	var b strings.Builder
	b.WriteString("Risk ruling:\n")
	b.WriteString(strings.TrimSpace(store.RiskDebate.Ruling.Text))
	b.WriteString("\n\nInvestment ruling:\n")
	b.WriteString(strings.TrimSpace(store.InvestmentDebate.Ruling.Text))

	if verdict.Override != nil {
		fmt.Fprintf(&b, "\n\nThe risk judge overrode the draft plan's %s action to %s.",
			store.DraftPlan.Action, *verdict.Override)
	}

	b.WriteString("\n\nDegraded inputs: ")
	if len(store.DegradedInputs) == 0 {
		b.WriteString("none")
	} else {
		b.WriteString(strings.Join(store.DegradedInputs, "; "))
	}
	return b.String()
}

// finalizeTimeout bounds the post-decision writes once the session deadline
// no longer applies.
const finalizeTimeout = 30 * time.Second

// finalize records the decided situation into memory, persists the session,
// and dumps transcripts. All of it is best-effort: a dead memory store or
// database never undoes a decision already made. Memory and persistence
// writes are independent of session cancellation, so a session that spent its
// whole deadline deciding still keeps its record; the writes run under their
// own short timeout instead.
func (o *Orchestrator) finalize(ctx context.Context, session *models.Session) {
	decision := session.Context.Decision

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	if o.mem != nil {
		situation := o.situationText(session)
		memID, err := o.mem.Record(ctx, session.Instrument, situation, decision.Confidence)
		if err != nil {
			log.Printf("session %s: memory record failed: %v", session.ID, err)
		} else {
			decision.MemoryIDs = append(decision.MemoryIDs, memID)
		}
	}

	if o.store != nil {
		if err := o.store.SaveSession(ctx, session); err != nil {
			log.Printf("session %s: persistence failed: %v", session.ID, err)
		}
	}

	if o.resultsDir != "" {
		o.dumpResults(session)
	}
}

// situationText is the memory record's body: the compressed shape of what was
// known and what was decided, retrievable by future sessions on similar
// setups.
func (o *Orchestrator) situationText(session *models.Session) string {
	store := session.Context
	decision := store.Decision

	var b strings.Builder
	fmt.Fprintf(&b, "Instrument %s on %s. Decision: %s (confidence %.2f, risk %s).\n\n",
		session.Instrument, session.TradeDate, decision.Action, decision.Confidence, decision.Risk)

	for _, role := range session.Config.AnalystRoles {
		report := store.Reports[role]
		if report == nil || len(report.KeyFindings) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s findings: %s\n", role, strings.Join(report.KeyFindings, "; "))
	}

	b.WriteString("\nRisk ruling:\n")
	b.WriteString(strings.TrimSpace(store.RiskDebate.Ruling.Text))
	return b.String()
}

// memoryExcerpt retrieves a top-k excerpt for a stage and caches it on the
// session for the transcript dump. A failed retrieve degrades to no excerpt.
func (o *Orchestrator) memoryExcerpt(ctx context.Context, session *models.Session, stage, query string) string {
	if o.mem == nil || session.Config.MemoryTopK <= 0 {
		return ""
	}
	records, err := o.mem.Retrieve(ctx, query, session.Config.MemoryTopK)
	if err != nil {
		log.Printf("session %s: memory retrieve for %s failed, continuing without: %v", session.ID, stage, err)
		return ""
	}
	excerpt := memory.Excerpt(records)
	if excerpt != "" {
		session.Context.MemoryExcerpts[stage] = excerpt
	}
	return excerpt
}

// noteDebateDegradation surfaces degraded turns and judge-fallback rulings in
// the session's degraded-input ledger.
func (o *Orchestrator) noteDebateDegradation(session *models.Session, name string, state *models.DebateState) {
	degraded := 0
	for _, turn := range state.Combined {
		if turn.Degraded {
			degraded++
		}
	}
	if degraded > 0 {
		session.Context.MarkDegraded(fmt.Sprintf("%s (%d degraded turns)", name, degraded))
	}
	if state.Ruling != nil && state.Ruling.Forced && strings.HasPrefix(state.Ruling.Text, "Insufficient information") {
		session.Context.MarkDegraded(fmt.Sprintf("%s judge (reasoning failed)", name))
	}
}

func (o *Orchestrator) dumpResults(session *models.Session) {
	dir := fmt.Sprintf("%s/%s/%s", o.resultsDir, session.Instrument, session.TradeDate)
	store := session.Context

	for _, role := range session.Config.AnalystRoles {
		if report := store.Reports[role]; report != nil {
			writeDump(dir, fmt.Sprintf("%s_report.md", role), report.Body)
		}
	}
	writeDump(dir, "investment_debate.md", debateDump(store.InvestmentDebate))
	if store.DraftPlan != nil {
		writeDump(dir, "draft_plan.md", store.DraftPlan.Reasoning)
	}
	writeDump(dir, "risk_debate.md", debateDump(store.RiskDebate))
	if store.Decision != nil {
		writeDump(dir, "decision.md", fmt.Sprintf("# %s %s\n\nAction: %s\nConfidence: %.2f\nRisk: %s\n\n%s",
			session.Instrument, session.TradeDate,
			store.Decision.Action, store.Decision.Confidence, store.Decision.Risk, store.Decision.Rationale))
	}
}

func writeDump(dir, name, content string) {
	if strings.TrimSpace(content) == "" {
		return
	}
	if err := utils.WriteMarkdown(dir, name, content); err != nil {
		log.Printf("dump %s/%s failed: %v", dir, name, err)
	}
}

func debateDump(state *models.DebateState) string {
	if state == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", state.Topic)
	for _, turn := range state.Combined {
		fmt.Fprintf(&b, "## %s (round %d)\n\n%s\n\n", turn.Speaker, turn.Round, turn.Content)
	}
	if state.Ruling != nil {
		fmt.Fprintf(&b, "## Ruling (%s)\n\n%s\n", state.Ruling.Speaker, state.Ruling.Text)
	}
	return b.String()
}
