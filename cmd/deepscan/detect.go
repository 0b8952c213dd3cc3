package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/deepscan/internal/config"
	"github.com/nao1215/deepscan/internal/model"
	"github.com/nao1215/deepscan/internal/pipeline"
	"github.com/nao1215/deepscan/internal/report"
)

// NewDetectCmd creates the detect command.
func NewDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <image...>",
		Short: "Check image files for deepfake manipulation",
		Long: `Detect sends each image to the selected vendors and prints a report.

The overall verdict is the most alarming vendor verdict: one vendor saying
FAKE makes the image FAKE. Reality Defender results are FAKE when more than
the configured number of its models (default 2) flag the image as manipulated.

Results are stored in the history database. An image analyzed by the same
vendor within the cache TTL reuses the stored verdict instead of calling the
vendor again.

Examples:
  # Check one image with every configured vendor
  deepscan detect photo.jpg

  # Only ask Sightengine
  deepscan detect --provider sightengine photo.jpg

  # Check a directory of images, 8 at a time, and write a Markdown report
  # (a plain-text summary is still printed to the terminal)
  deepscan detect --batch 8 --markdown -o report.md images/*.png

  # Add a Gemini description and print JSON
  deepscan detect --describe --json photo.jpg`,
		Args: cobra.ArbitraryArgs,
		RunE: runDetectCmd,
	}

	cmd.Flags().StringP("provider", "P", config.ProviderAll,
		"Vendor to use: realitydefender, sightengine or all")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each vendor request")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of images analyzed concurrently")
	cmd.Flags().BoolP("describe", "d", false,
		"Add a Gemini description of each image")
	cmd.Flags().Bool("no-save", false,
		"Do not store results in the history database")
	cmd.Flags().Duration("cache-ttl", config.DefaultCacheTTL,
		"Reuse stored verdicts younger than this (0 disables)")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

func runDetectCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildDetectConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.ValidateTargets(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg, cmd.ErrOrStderr(), slog.LevelWarn)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runDetect(ctx, cmd, cfg, logger)
}

// buildDetectConfig applies detect flags on top of the loaded config.
// Flags override file and environment values only when set explicitly.
func buildDetectConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if cfg.Provider, err = flags.GetString("provider"); err != nil {
		return nil, err
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Describe, err = flags.GetBool("describe"); err != nil {
		return nil, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	if flags.Changed("cache-ttl") {
		if cfg.CacheTTL, err = flags.GetDuration("cache-ttl"); err != nil {
			return nil, err
		}
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	cfg.Targets = args
	return cfg, nil
}

// runDetect analyzes every target and writes one report per image.
func runDetect(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	analyzer, err := buildAnalyzer(ctx, cfg, logger, db)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // best effort close on error paths

	writer := newReportWriter(cfg, out)
	if cfg.ReportFile != "" && (cfg.JSONReport || cfg.MarkdownReport) {
		// Keep a readable summary on the terminal while the file gets the
		// structured report.
		writer = report.NewMultiWriter(writer, report.NewSimpleWriter(cmd.OutOrStdout()))
	}
	decoder := newDecoder(cfg)
	req := pipeline.AnalyzeRequest{
		Providers: cfg.ProviderNames(),
		Describe:  cfg.Describe,
	}

	bp := pipeline.NewBatchProcessor(
		func(ctx context.Context, path string) (*model.Analysis, error) {
			return analyzer.AnalyzeFile(ctx, decoder, path, req)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	start := time.Now()
	var (
		mu     sync.Mutex
		failed int
	)
	batchErr := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(r pipeline.BatchResult, _ int) {
		mu.Lock()
		defer mu.Unlock()

		if r.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "Detection error for %s: %v\n", r.Path, r.Err)
		}
		if r.Analysis == nil {
			return
		}
		if err := writeAnalysis(writer, r); err != nil {
			logger.Error("report failed", "path", r.Path, "error", err)
		}
	})

	logger.Info("detection finished",
		"files", len(cfg.Targets),
		"failed", failed,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if batchErr != nil {
		return batchErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images could not be analyzed", failed, len(cfg.Targets))
	}
	return closeOut()
}

func writeAnalysis(w report.Writer, r pipeline.BatchResult) error {
	_, err := w.Write(r.Analysis)
	return err
}
