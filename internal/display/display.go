// Package display renders sessions and decisions for the terminal.
package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/quorumtrade/quorumtrade/internal/models"
	"github.com/quorumtrade/quorumtrade/internal/storage"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(1, 2).
			Width(80)

	buyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	sellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	holdStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	degradedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))
)

func actionStyle(action models.Action) lipgloss.Style {
	switch action {
	case models.ActionBuy:
		return buyStyle
	case models.ActionSell:
		return sellStyle
	default:
		return holdStyle
	}
}

// DecisionCard renders the session's final decision with its provenance.
func DecisionCard(session *models.Session) {
	decision := session.Context.Decision
	if decision == nil {
		DisplayError(fmt.Errorf("session %s has no decision", session.ID))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n", session.Instrument, session.TradeDate)
	fmt.Fprintf(&b, "Decision:   %s\n", decision.ID)
	fmt.Fprintf(&b, "Action:     %s\n", actionStyle(decision.Action).Render(string(decision.Action)))
	fmt.Fprintf(&b, "Confidence: %.2f\n", decision.Confidence)
	fmt.Fprintf(&b, "Risk:       %s\n", decision.Risk)

	roles := make([]string, 0, len(decision.ReportRoles))
	for _, role := range decision.ReportRoles {
		roles = append(roles, string(role))
	}
	fmt.Fprintf(&b, "Analysts:   %s\n", strings.Join(roles, ", "))

	if len(decision.DegradedInputs) > 0 {
		b.WriteString("\n")
		b.WriteString(degradedStyle.Render("Degraded inputs:"))
		b.WriteString("\n")
		for _, input := range decision.DegradedInputs {
			fmt.Fprintf(&b, "  - %s\n", degradedStyle.Render(input))
		}
	}

	fmt.Println(titleStyle.Render("Decision"))
	fmt.Println(cardStyle.Render(strings.TrimRight(b.String(), "\n")))
	fmt.Println()
	fmt.Println(decision.Rationale)
}

// DebateSummary renders a debate's transcript and ruling.
func DebateSummary(name string, state *models.DebateState) {
	if state == nil {
		return
	}
	fmt.Println(titleStyle.Render(name))
	for _, turn := range state.Combined {
		label := fmt.Sprintf("%s (round %d)", turn.Speaker, turn.Round)
		if turn.Degraded {
			label += " " + degradedStyle.Render("[degraded]")
		}
		fmt.Println(dimStyle.Render(label))
		fmt.Println(turn.Content)
		fmt.Println()
	}
	if state.Ruling != nil {
		header := fmt.Sprintf("Ruling by %s", state.Ruling.Speaker)
		if state.Ruling.Forced {
			header += " (forced)"
		}
		fmt.Println(dimStyle.Render(header))
		fmt.Println(state.Ruling.Text)
		fmt.Println()
	}
}

// SessionTable renders persisted session summaries, newest first.
func SessionTable(rows []storage.SessionRow) {
	if len(rows) == 0 {
		fmt.Println(dimStyle.Render("No sessions recorded yet."))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-12s %-6s %-11s %s\n", "INSTRUMENT", "DATE", "ACTION", "CONFIDENCE", "SESSION")
	for _, row := range rows {
		action := row.Action
		if action == "" {
			action = "-"
		}
		fmt.Fprintf(&b, "%-10s %-12s %-6s %-11.2f %s\n",
			row.Instrument, row.TradeDate, action, row.Confidence, row.ID)
	}
	fmt.Print(b.String())
}

func DisplayError(err error) {
	fmt.Println(errorStyle.Render(fmt.Sprintf("Error: %v", err)))
}

func DisplayInfo(message string) {
	fmt.Println(dimStyle.Render(message))
}

func DisplaySuccess(message string) {
	fmt.Println(successStyle.Render(message))
}
