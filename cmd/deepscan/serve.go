package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/deepscan/internal/config"
	"github.com/nao1215/deepscan/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the detection HTTP API",
		Long: `Serve starts the HTTP API used by the web front end.

Routes:
  POST /api/detect         Reality Defender verdict for {"media": "<data URI or base64>"}
  POST /api/verify         Sightengine verdict for the same body
  POST /api/analyze        every vendor concurrently, plus EXIF metadata
  POST /api/describe       one-paragraph Gemini description
  GET  /api/history        stored analyses (?limit=N)
  GET  /api/history/{id}   one stored analysis
  GET  /health             liveness probe

The server stops gracefully on SIGINT or SIGTERM.

Examples:
  # Listen on the default address (:8080, or $PORT)
  deepscan serve

  # Listen on localhost only and allow one front-end origin
  deepscan serve -l 127.0.0.1:9000 --allowed-origin https://app.example.com`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", "",
		"Listen address (default: config file, $PORT, then "+config.DefaultListenAddress+")")
	cmd.Flags().String("allowed-origin", "",
		"Access-Control-Allow-Origin value (default: *)")
	cmd.Flags().BoolP("describe", "d", false,
		"Add a Gemini description to /api/analyze responses")
	cmd.Flags().Bool("no-save", false,
		"Do not store results in the history database")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg, cmd.ErrOrStderr(), slog.LevelInfo)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runServe(ctx, cfg, logger)
}

func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if v, err := flags.GetString("listen"); err != nil {
		return nil, err
	} else if v != "" {
		cfg.ListenAddress = v
	}
	if v, err := flags.GetString("allowed-origin"); err != nil {
		return nil, err
	} else if v != "" {
		cfg.AllowedOrigin = v
	}
	if cfg.Describe, err = flags.GetBool("describe"); err != nil {
		return nil, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	return cfg, nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}

	analyzer, err := buildAnalyzer(ctx, cfg, logger, db)
	if err != nil {
		if db != nil {
			_ = db.Close() //nolint:errcheck // already failing
		}
		return err
	}

	opts := []server.Option{
		server.WithDecoder(newDecoder(cfg)),
		server.WithLogger(logger),
		server.WithAllowedOrigin(cfg.AllowedOrigin),
		server.WithDescribe(cfg.Describe),
	}
	if db != nil {
		defer db.Close()
		opts = append(opts, server.WithHistory(db))
	}

	logger.Info("starting server",
		"address", cfg.ListenAddress,
		"providers", analyzer.Providers(),
		"save", cfg.SaveToDB,
		"cache_ttl", cfg.CacheTTL,
	)
	return server.New(analyzer, opts...).Run(ctx, cfg.ListenAddress)
}
