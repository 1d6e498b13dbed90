// Package main is the entry point for the stepseq CLI
package main

import (
	"fmt"
	"os"

	"github.com/james-see/stepseq/pkg/config"
	"github.com/james-see/stepseq/pkg/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
	log *logrus.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stepseq",
	Short: "Drum step sequencer with live MIDI output and MIDI file export",
	Long: `stepseq edits grid drum patterns stored as JSON, plays them to a MIDI
output port with swing and an optional metronome, and renders them to
Standard MIDI Files.

Examples:
  stepseq new beat.json --bars 2
  stepseq randomize beat.json --bar 0 --density 0.4
  stepseq play beat.json --port "IAC" --bpm 96 --swing 0.2
  stepseq export beat.json -o beat.mid
  stepseq tui beat.json
  stepseq serve --port 8080`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/stepseq/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
}

// loadConfig reads the config file and builds the logger before any command runs
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	level := cfg.LogLevel
	if cmd.Flags().Changed("log-level") {
		level = logLevel
	}
	log = logging.New(level, os.Stderr)
	return nil
}
