package cli

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"

	"github.com/quorumtrade/quorumtrade/internal/models"
)

var instrumentPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// PromptForInstrument asks for a ticker symbol.
func PromptForInstrument() (string, error) {
	var instrument string
	prompt := &survey.Input{
		Message: "Instrument to analyze (e.g. AAPL, MSFT):",
		Help:    "A stock ticker symbol.",
	}

	err := survey.AskOne(prompt, &instrument, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(strings.ToUpper(val.(string)))
		if str == "" {
			return fmt.Errorf("instrument cannot be empty")
		}
		if len(str) > 10 {
			return fmt.Errorf("instrument too long (max 10 characters)")
		}
		if !instrumentPattern.MatchString(str) {
			return fmt.Errorf("use letters, numbers, dots, and hyphens only")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ToUpper(instrument)), nil
}

// PromptForTradeDate asks for the analysis date, defaulting to today.
func PromptForTradeDate() (string, error) {
	var dateStr string
	prompt := &survey.Input{
		Message: "Trade date (YYYY-MM-DD):",
		Default: time.Now().Format("2006-01-02"),
	}

	err := survey.AskOne(prompt, &dateStr, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(val.(string))
		if str == "" {
			return nil
		}
		if _, err := time.Parse("2006-01-02", str); err != nil {
			return fmt.Errorf("invalid date format, use YYYY-MM-DD")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}

	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		dateStr = time.Now().Format("2006-01-02")
	}
	return dateStr, nil
}

// PromptForAnalysts asks which analyst roles to run, defaulting to the
// configured set.
func PromptForAnalysts(defaults []models.AnalystRole) ([]models.AnalystRole, error) {
	options := make([]string, 0, len(models.AllAnalystRoles))
	for _, role := range models.AllAnalystRoles {
		options = append(options, string(role))
	}
	defaultOpts := make([]string, 0, len(defaults))
	for _, role := range defaults {
		defaultOpts = append(defaultOpts, string(role))
	}

	var selected []string
	prompt := &survey.MultiSelect{
		Message: "Analyst roles to run:",
		Options: options,
		Default: defaultOpts,
		Help:    "Space to toggle, enter to confirm. At least one role is required.",
	}

	err := survey.AskOne(prompt, &selected, survey.WithValidator(func(val interface{}) error {
		answers, ok := val.([]survey.OptionAnswer)
		if !ok {
			return fmt.Errorf("invalid selection type")
		}
		if len(answers) == 0 {
			return fmt.Errorf("select at least one analyst role")
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}

	roles := make([]models.AnalystRole, 0, len(selected))
	for _, s := range selected {
		roles = append(roles, models.AnalystRole(s))
	}
	return roles, nil
}
