// Package processing extracts actionable structure from free-text judge
// rulings: the action, an optional confidence, the risk classification, and
// the risk judge's explicit override directive.
package processing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/quorumtrade/quorumtrade/internal/models"
)

// Verdict is the structured reading of one ruling.
type Verdict struct {
	Action        models.Action
	HasAction     bool
	Confidence    float64
	HasConfidence bool
	Risk          models.RiskTag
	HasRisk       bool
	// Override is set only when the ruling carries an explicit OVERRIDE
	// directive. It is never inferred from sentiment words.
	Override *models.Action
}

// RulingProcessor parses judge rulings. Directive lines win; pattern scoring
// over the whole text is the fallback when a judge ignored the format.
type RulingProcessor struct {
	decisionLine   *regexp.Regexp
	confidenceLine *regexp.Regexp
	overrideLine   *regexp.Regexp
	riskLine       *regexp.Regexp

	buyPatterns  []*regexp.Regexp
	sellPatterns []*regexp.Regexp
	holdPatterns []*regexp.Regexp
}

func NewRulingProcessor() *RulingProcessor {
	return &RulingProcessor{
		decisionLine:   regexp.MustCompile(`(?im)^\s*DECISION:\s*(BUY|SELL|HOLD)\b`),
		confidenceLine: regexp.MustCompile(`(?im)^\s*CONFIDENCE:\s*([0-9]*\.?[0-9]+)`),
		overrideLine:   regexp.MustCompile(`(?im)^\s*OVERRIDE:\s*(BUY|SELL|HOLD)\b`),
		riskLine:       regexp.MustCompile(`(?im)^\s*RISK:\s*(low|medium|high)\b`),

		buyPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(buy|long|bullish|accumulate|upside)\b`),
			regexp.MustCompile(`(?i)\b(undervalued|oversold|growth potential|opportunity)\b`),
		},
		sellPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(sell|short|bearish|exit|downside)\b`),
			regexp.MustCompile(`(?i)\b(overvalued|overbought|deteriorating|decline)\b`),
		},
		holdPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(hold|maintain|neutral|wait|sideways)\b`),
			regexp.MustCompile(`(?i)\b(no action|stay put|keep position)\b`),
		},
	}
}

// Parse reads a ruling. Confidence falls back to neutralConfidence when the
// judge provided no usable number; the result is always clamped to [0,1].
func (p *RulingProcessor) Parse(text string, neutralConfidence float64) Verdict {
	v := Verdict{
		Confidence: clamp01(neutralConfidence),
		Risk:       models.RiskMedium,
	}

	if m := p.decisionLine.FindStringSubmatch(text); m != nil {
		v.Action = models.Action(strings.ToUpper(m[1]))
		v.HasAction = true
	} else if action, ok := p.scoreAction(text); ok {
		v.Action = action
		v.HasAction = true
	}

	if m := p.confidenceLine.FindStringSubmatch(text); m != nil {
		if parsed, err := strconv.ParseFloat(m[1], 64); err == nil {
			v.Confidence = clamp01(parsed)
			v.HasConfidence = true
		}
	}

	if m := p.riskLine.FindStringSubmatch(text); m != nil {
		v.Risk = models.RiskTag(strings.ToLower(m[1]))
		v.HasRisk = true
	}

	if m := p.overrideLine.FindStringSubmatch(text); m != nil {
		action := models.Action(strings.ToUpper(m[1]))
		v.Override = &action
	}

	return v
}

// scoreAction counts directional vocabulary when no directive line exists.
func (p *RulingProcessor) scoreAction(text string) (models.Action, bool) {
	text = strings.ToLower(text)

	buyScore := countMatches(p.buyPatterns, text)
	sellScore := countMatches(p.sellPatterns, text)
	holdScore := countMatches(p.holdPatterns, text)

	if buyScore == 0 && sellScore == 0 && holdScore == 0 {
		return "", false
	}
	if buyScore > sellScore && buyScore > holdScore {
		return models.ActionBuy, true
	}
	if sellScore > buyScore && sellScore > holdScore {
		return models.ActionSell, true
	}
	return models.ActionHold, true
}

func countMatches(patterns []*regexp.Regexp, text string) int {
	count := 0
	for _, pattern := range patterns {
		count += len(pattern.FindAllString(text, -1))
	}
	return count
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
