package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/deepscan/internal/database"
	"github.com/nao1215/deepscan/internal/server"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [analysis-id]",
		Short: "Show stored analyses",
		Long: `History lists analyses stored by 'deepscan detect' and 'deepscan serve'.

With an analysis ID it prints the full stored report for that analysis.

Examples:
  # List the 20 most recent analyses
  deepscan history

  # List 100 analyses as Markdown
  deepscan history --limit 100 --markdown

  # Show one analysis
  deepscan history 3f1c9e2a-0d4b-4c7e-9a55-2f1e0b6d7c11`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", server.DefaultHistoryLimit,
		"Maximum number of analyses to list")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")

	return cmd
}

// errNoHistory is returned when the history database has not been created.
var errNoHistory = errors.New("no history yet: run 'deepscan detect' or 'deepscan serve' first")

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		return errors.New("limit must be positive")
	}

	logger := setupLogger(cfg, cmd.ErrOrStderr(), slog.LevelWarn)

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		logger.Debug("history database unavailable", "dir", cfg.DBDir, "error", err)
		return errNoHistory
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	w := newReportWriter(cfg, cmd.OutOrStdout())

	if len(args) == 1 {
		a, err := db.GetAnalysisByID(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to load analysis %s: %w", args[0], err)
		}
		_, err = w.Write(a)
		return err
	}

	h, err := db.History(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	_, err = w.WriteHistory(h)
	return err
}
