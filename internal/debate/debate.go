// Package debate implements the bounded multi-role debate engine used for
// both the investment (bull/bear) and risk (aggressive/conservative/neutral)
// exchanges. One coordinator owns one DebateState; turns are strictly
// sequential and the loop is hard-bounded by maxRounds with a forced-ruling
// terminal path.
package debate

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/quorumtrade/quorumtrade/internal/engine"
	"github.com/quorumtrade/quorumtrade/internal/models"
)

// Role is one debating voice.
type Role struct {
	Name    string
	Charter string
	Stance  string
}

// Judge ends the debate. After each full cycle it may rule or signal
// continuation; on round exhaustion or deadline it must rule with whatever
// material has accumulated.
type Judge struct {
	Name        string
	Charter     string
	Instruction string
}

// Materials is the shared context every participant sees in addition to the
// transcript: the analyst digest or draft plan, plus any memory excerpt.
type Materials struct {
	Shared        string
	MemoryExcerpt string
}

// continueToken is the judge's continuation signal.
const continueToken = "CONTINUE"

type Coordinator struct {
	eng       engine.Engine
	roles     []Role
	judge     Judge
	maxRounds int
	cfg       models.SessionConfig
}

func NewCoordinator(eng engine.Engine, roles []Role, judge Judge, maxRounds int, cfg models.SessionConfig) *Coordinator {
	return &Coordinator{
		eng:       eng,
		roles:     roles,
		judge:     judge,
		maxRounds: maxRounds,
		cfg:       cfg,
	}
}

// Run executes the debate to its ruling. It always returns a state with a
// non-nil ruling: round exhaustion, deadline expiry, and a dead reasoning
// engine all funnel into the forced-ruling path.
func (c *Coordinator) Run(ctx context.Context, topic string, materials Materials) *models.DebateState {
	state := models.NewDebateState(topic)

cycles:
	for round := 1; round <= c.maxRounds; round++ {
		for _, role := range c.roles {
			if ctx.Err() != nil {
				log.Printf("debate %q: deadline hit in round %d, forcing ruling", topic, round)
				break cycles
			}
			c.takeTurn(ctx, state, materials, role, round)
		}
		state.Round = round

		if ctx.Err() != nil {
			break cycles
		}
		if c.consultJudge(ctx, state, materials, false) {
			return state
		}
	}

	// Terminal path: rounds exhausted or deadline exceeded. The judge rules
	// with only the material accumulated so far.
	c.consultJudge(ctx, state, materials, true)
	return state
}

const turnPromptTemplate = `{charter}

Debate topic: {topic}

Shared material:
{shared}

{memory_excerpt}

Full debate so far:
{history}

Your own prior arguments:
{own_history}

{stance}
Deliver your next argument. Respond directly to the latest opposing points; do not repeat yourself.`

func (c *Coordinator) takeTurn(ctx context.Context, state *models.DebateState, materials Materials, role Role, round int) {
	tpl := prompt.FromMessages(schema.FString, schema.UserMessage(turnPromptTemplate))
	msgs, err := tpl.Format(ctx, map[string]any{
		"charter":        role.Charter,
		"topic":          state.Topic,
		"shared":         emptyAs(materials.Shared, "(none)"),
		"memory_excerpt": materials.MemoryExcerpt,
		"history":        emptyAs(state.History(), "(no arguments yet)"),
		"own_history":    emptyAs(state.SpeakerHistory(role.Name), "(none yet)"),
		"stance":         role.Stance,
	})

	var text string
	if err == nil {
		text, err = engine.CallWithRetry(ctx, c.eng, msgs, c.cfg)
	}
	if err != nil {
		// Absorb the fault as a degraded turn; the debate continues and the
		// judge sees the gap.
		log.Printf("debate %q: %s turn failed in round %d: %v", state.Topic, role.Name, round, err)
		state.Append(models.DebateTurn{
			Speaker:   role.Name,
			Round:     round,
			Content:   "(no argument produced this turn)",
			Degraded:  true,
			CreatedAt: time.Now(),
		})
		return
	}

	state.Append(models.DebateTurn{
		Speaker:   role.Name,
		Round:     round,
		Content:   strings.TrimSpace(text),
		CreatedAt: time.Now(),
	})
}

const judgePromptTemplate = `{charter}

Debate topic: {topic}

Shared material:
{shared}

{memory_excerpt}

Full debate transcript:
{history}

{instruction}

{closing}`

const judgeMayContinue = `If one more round of debate would materially sharpen the decision, reply with the single word CONTINUE and nothing else. Otherwise deliver your ruling now.`

const judgeMustRule = `The debate is closed. Deliver your ruling now using only the material above, even if you judge the information insufficient.`

// forcedRulingGrace bounds the one judge call that runs after the session
// deadline has already expired.
const forcedRulingGrace = 30 * time.Second

// consultJudge asks the judge for a ruling. When forced is false the judge
// may answer CONTINUE instead; when forced it must rule, and an unreachable
// engine yields a fallback insufficient-information ruling so the state is
// still terminal. Returns true once the ruling is set.
func (c *Coordinator) consultJudge(ctx context.Context, state *models.DebateState, materials Materials, forced bool) bool {
	if state.Ruled() {
		return true
	}

	if forced && ctx.Err() != nil {
		// The deadline consumed the debate, not the ruling. The judge gets one
		// short detached window to rule on the accumulated material.
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), forcedRulingGrace)
		defer cancel()
	}

	closing := judgeMayContinue
	if forced {
		closing = judgeMustRule
	}

	tpl := prompt.FromMessages(schema.FString, schema.UserMessage(judgePromptTemplate))
	msgs, err := tpl.Format(ctx, map[string]any{
		"charter":        c.judge.Charter,
		"topic":          state.Topic,
		"shared":         emptyAs(materials.Shared, "(none)"),
		"memory_excerpt": materials.MemoryExcerpt,
		"history":        emptyAs(state.History(), "(the transcript is empty)"),
		"instruction":    c.judge.Instruction,
		"closing":        closing,
	})

	var text string
	if err == nil {
		text, err = engine.CallWithRetry(ctx, c.eng, msgs, c.cfg)
	}
	if err != nil {
		if !forced {
			// Keep debating; the terminal path will rule later.
			log.Printf("debate %q: judge unavailable after round %d: %v", state.Topic, state.Round, err)
			return false
		}
		state.Ruling = &models.Ruling{
			Speaker: c.judge.Name,
			Text: "Insufficient information: the judge could not be reached, so no reasoned ruling exists. " +
				"DECISION: HOLD",
			Forced:    true,
			CreatedAt: time.Now(),
		}
		return true
	}

	text = strings.TrimSpace(text)
	if !forced && strings.EqualFold(strings.TrimSpace(strings.Split(text, "\n")[0]), continueToken) {
		return false
	}

	state.Ruling = &models.Ruling{
		Speaker:   c.judge.Name,
		Text:      text,
		Forced:    forced,
		CreatedAt: time.Now(),
	}
	return true
}

func emptyAs(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
