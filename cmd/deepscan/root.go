package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for deepscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deepscan",
		Short: "Deepfake detection through third-party vendors",
		Long: `deepscan submits images to deepfake detection vendors (Reality Defender,
Sightengine) and reports one normalized verdict: authentic or manipulated.

Run 'deepscan serve' for the HTTP API or 'deepscan detect' for local files.
Credentials are read from the configuration file (see 'deepscan init') or
from REALITY_DEFENDER_API_KEY, SIGHTENGINE_API_USER, SIGHTENGINE_API_SECRET
and GEMINI_API_KEY.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .deepscan in current or home directory)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewDetectCmd())
	cmd.AddCommand(NewDescribeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
