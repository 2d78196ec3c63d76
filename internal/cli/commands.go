// Package cli wires the cobra command tree: analyze runs a session end to
// end, sessions and show read back persisted runs, reflect folds a realized
// outcome into memory.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/quorumtrade/quorumtrade/internal/config"
	"github.com/quorumtrade/quorumtrade/internal/display"
)

func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "quorumtrade",
		Short: "Multi-agent investment analysis",
		Long: `quorumtrade runs a panel of LLM analysts, two adversarial debates, and a
risk judge over one instrument and date, and records the resulting decision.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), cfg)
		},
	}

	rootCmd.AddCommand(newAnalyzeCmd(cfg))
	rootCmd.AddCommand(newSessionsCmd(cfg))
	rootCmd.AddCommand(newShowCmd(cfg))
	rootCmd.AddCommand(newReflectCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))

	return rootCmd
}

func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Run a full analysis session for an instrument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			if _, err := time.Parse("2006-01-02", date); err != nil {
				return fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
			}
			return runAnalysis(cmd.Context(), cfg, args[0], date)
		},
	}
	cmd.Flags().String("date", "", "Trade date in YYYY-MM-DD format (today if omitted)")
	return cmd
}

func newSessionsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			rows, err := app.store.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			display.SessionTable(rows)
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of sessions to list")
	return cmd
}

func newShowCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show SYMBOL DATE",
		Short: "Show a recorded session's decision and debates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			instrument := strings.ToUpper(args[0])
			session, err := app.store.GetSession(cmd.Context(), instrument, args[1])
			if err != nil {
				return err
			}
			if session == nil {
				return fmt.Errorf("no session recorded for %s on %s", instrument, args[1])
			}

			display.DecisionCard(session)
			if verbose, _ := cmd.Flags().GetBool("debates"); verbose {
				display.DebateSummary("Investment Debate", session.Context.InvestmentDebate)
				display.DebateSummary("Risk Debate", session.Context.RiskDebate)
			}
			return nil
		},
	}
	cmd.Flags().Bool("debates", false, "Include the full debate transcripts")
	return cmd
}

func newReflectCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reflect DECISION_ID OUTCOME",
		Short: "Fold a realized outcome back into memory",
		Long: `Reweights the memory records a decision seeded using the realized signed
return of the position, e.g. 0.08 for +8% or -0.05 for -5%. Reflecting the
same outcome twice is a no-op.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid outcome %q: %w", args[1], err)
			}

			app, err := NewApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.orch.ReflectOutcome(cmd.Context(), args[0], outcome); err != nil {
				return err
			}
			display.DisplaySuccess(fmt.Sprintf("Reflected outcome %s into decision %s's memory records.", outcome, args[0]))
			return nil
		},
	}
}

func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			display.DisplaySuccess("Configuration is valid.")
			if cfg.FinnhubAPIKey == "" {
				display.DisplayInfo("FINNHUB_API_KEY not set: the news analyst falls back to headline scraping and insider sentiment is unavailable.")
			}
			return nil
		},
	})

	return configCmd
}

func showConfig(cfg *config.Config) {
	fmt.Println("Current configuration:")
	fmt.Printf("  Results directory:   %s\n", cfg.ResultsDir)
	fmt.Printf("  Data cache:          %s\n", cfg.DataCacheDir)
	fmt.Printf("  Database:            %s\n", cfg.DBPath)
	fmt.Println()
	fmt.Printf("  LLM provider:        %s\n", cfg.LLMProvider)
	fmt.Printf("  Model:               %s\n", cfg.Model)
	fmt.Println()
	fmt.Printf("  Analyst roles:       %s\n", cfg.AnalystRoles)
	fmt.Printf("  Debate rounds:       %d\n", cfg.MaxDebateRounds)
	fmt.Printf("  Risk rounds:         %d\n", cfg.MaxRiskDiscussRounds)
	fmt.Printf("  Session deadline:    %ds\n", cfg.SessionDeadlineSec)
	fmt.Printf("  Memory top-k:        %d\n", cfg.MemoryTopK)
	fmt.Printf("  Neutral confidence:  %.2f\n", cfg.NeutralConfidence)
	fmt.Println()
	fmt.Printf("  Online tools:        %t\n", cfg.OnlineTools)
	fmt.Printf("  Cache enabled:       %t\n", cfg.CacheEnabled)
	fmt.Printf("  Finnhub key set:     %t\n", cfg.FinnhubAPIKey != "")
}

func runAnalysis(ctx context.Context, cfg *config.Config, instrument, date string) error {
	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	display.DisplayInfo(fmt.Sprintf("Analyzing %s as of %s...", strings.ToUpper(instrument), date))
	session, err := app.orch.RunSession(ctx, instrument, date, cfg.SessionConfig())
	if err != nil {
		return err
	}

	display.DecisionCard(session)
	return nil
}

// runInteractive drives one analysis from survey prompts.
func runInteractive(ctx context.Context, cfg *config.Config) error {
	instrument, err := PromptForInstrument()
	if err != nil {
		return err
	}
	date, err := PromptForTradeDate()
	if err != nil {
		return err
	}

	sessionCfg := cfg.SessionConfig()
	roles, err := PromptForAnalysts(sessionCfg.AnalystRoles)
	if err != nil {
		return err
	}
	sessionCfg.AnalystRoles = roles

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	display.DisplayInfo(fmt.Sprintf("Analyzing %s as of %s...", instrument, date))
	session, err := app.orch.RunSession(ctx, instrument, date, sessionCfg)
	if err != nil {
		return err
	}

	display.DecisionCard(session)
	return nil
}
