package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/deepscan/internal/config"
	"github.com/nao1215/deepscan/internal/database"
	"github.com/nao1215/deepscan/internal/describe"
	seclog "github.com/nao1215/deepscan/internal/log"
	"github.com/nao1215/deepscan/internal/media"
	"github.com/nao1215/deepscan/internal/pipeline"
	"github.com/nao1215/deepscan/internal/provider"
	"github.com/nao1215/deepscan/internal/report"
)

// loadConfig builds a Config from the config file, the environment and the
// persistent flags shared by every command.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path, os.LookupEnv)
	if err != nil {
		if path != "" {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Verbose, err = cmd.Flags().GetBool("verbose"); err != nil {
		return nil, err
	}
	if cfg.LogJSON, err = cmd.Flags().GetBool("log-json"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setupLogger creates the secure logger. quiet is the level used without
// --verbose.
func setupLogger(cfg *config.Config, w io.Writer, quiet slog.Level) *slog.Logger {
	return seclog.NewSecureLogger(w, seclog.Options{
		Level: seclog.LevelFor(cfg.Verbose, quiet),
		JSON:  cfg.LogJSON,
	})
}

// newDecoder creates the image decoder for cfg.
func newDecoder(cfg *config.Config) *media.Decoder {
	return media.NewDecoder(
		media.WithMaxSize(cfg.MaxImageSize),
		media.WithStrict(cfg.StrictImages),
	)
}

// buildDetectors registers both vendors. Vendors without credentials are
// still registered so their routes report ErrMissingCredentials.
func buildDetectors(cfg *config.Config, logger *slog.Logger) (*provider.Set, error) {
	client, err := provider.NewHTTPClient(
		provider.WithTimeout(cfg.Timeout),
		provider.WithUserAgent(cfg.UserAgent),
		provider.WithEgressProxy(cfg.EgressProxy),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	rdOpts := []provider.RealityDefenderOption{
		provider.WithManipulatedThreshold(cfg.ManipulatedThreshold),
		provider.WithRealityDefenderClient(client),
		provider.WithRealityDefenderLogger(logger),
	}
	if u := cfg.Providers.RealityDefender.BaseURL; u != "" {
		rdOpts = append(rdOpts, provider.WithRealityDefenderBaseURL(u))
	}

	seOpts := []provider.SightengineOption{
		provider.WithDeepfakeScoreThreshold(cfg.DeepfakeScoreThreshold),
		provider.WithSightengineClient(client),
		provider.WithSightengineLogger(logger),
	}
	if u := cfg.Providers.Sightengine.BaseURL; u != "" {
		seOpts = append(seOpts, provider.WithSightengineBaseURL(u))
	}

	return provider.NewSet(
		provider.NewRealityDefender(cfg.Providers.RealityDefender.APIKey, rdOpts...),
		provider.NewSightengine(cfg.Providers.Sightengine.APIUser, cfg.Providers.Sightengine.APISecret, seOpts...),
	), nil
}

// buildDescriber returns the Gemini describer, or describe.Disabled without
// an API key.
func buildDescriber(ctx context.Context, cfg *config.Config, logger *slog.Logger) (describe.Describer, error) {
	return describe.New(ctx, cfg.Providers.Gemini.APIKey,
		describe.WithModel(cfg.Providers.Gemini.Model),
		describe.WithLogger(logger),
	)
}

// openHistory opens the history database when saving or caching is on.
// It returns nil without error when both are off.
func openHistory(cfg *config.Config, logger *slog.Logger) (*database.HistoryDB, error) {
	if !cfg.SaveToDB && cfg.CacheTTL == 0 {
		return nil, nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", "path", db.Path())
	return db, nil
}

// buildAnalyzer wires detectors, describer and the optional database.
func buildAnalyzer(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *database.HistoryDB) (*pipeline.Analyzer, error) {
	detectors, err := buildDetectors(cfg, logger)
	if err != nil {
		return nil, err
	}
	describer, err := buildDescriber(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create describer: %w", err)
	}

	opts := []pipeline.AnalyzerOption{
		pipeline.WithAnalyzerLogger(logger),
		pipeline.WithDescriber(describer),
	}
	if db != nil {
		opts = append(opts, pipeline.WithStore(db, cfg.SaveToDB, cfg.CacheTTL))
	}
	return pipeline.NewAnalyzer(detectors, opts...), nil
}

// openOutput returns the report destination and a close function.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports contain image fingerprints and EXIF data; keep them owner-only.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-chosen report path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter selects the writer for the requested format.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}
