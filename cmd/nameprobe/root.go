package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nameprobe/nameprobe/pkg/logging"
)

var (
	flagConfig   string
	flagLogLevel string
	flagPretty   bool
)

var rootCmd = &cobra.Command{
	Use:   "nameprobe",
	Short: "High-throughput identifier availability checker",
	Long: `nameprobe checks large sets of identifiers against a remote
validation endpoint, adapting its concurrency and pacing to the
service's live behavior.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(logging.Config{
			Level:  logging.LogLevel(flagLogLevel),
			Pretty: flagPretty,
			Output: os.Stderr,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"config file (YAML); NAMEPROBE_* environment variables take precedence")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagPretty, "pretty", false,
		"human-readable console logging instead of JSON")

	rootCmd.AddCommand(checkCmd)
}
