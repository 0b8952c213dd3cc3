package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewDescribeCmd creates the describe command.
func NewDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <image>",
		Short: "Describe an image in one paragraph using Gemini",
		Long: `Describe asks Gemini for a concise, one-paragraph description of an image.

Requires GEMINI_API_KEY (or GOOGLE_API_KEY, or providers.gemini.apiKey in the
configuration file).

Examples:
  deepscan describe photo.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: runDescribeCmd,
	}
}

func runDescribeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg, cmd.ErrOrStderr(), slog.LevelWarn)

	img, err := newDecoder(cfg).FromFile(args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	describer, err := buildDescriber(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create describer: %w", err)
	}

	text, err := describer.Describe(cmd.Context(), img)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
