package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChamsBouzaiene/easywatch/internal/config"
	"github.com/ChamsBouzaiene/easywatch/internal/observability"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "easywatch",
		Short: "YouTube summary and question answering assistant",
		Long: `EasyWatch answers questions and summarizes YouTube videos.

It searches YouTube, fetches transcripts, condenses long ones chunk by chunk
and keeps per-session chat history.

Quick Start:
  easywatch serve                        # Run the HTTP API
  easywatch chat --session demo          # Chat from the terminal
  easywatch version                      # Print build information`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file (default: $"+config.EnvConfigPath+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	cmd.AddCommand(
		newServeCmd(opts),
		newChatCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig loads and validates the configuration and installs the
// process logger at the configured level.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	observability.SetLogger(observability.New(os.Stderr, cfg.LogLevel))
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "easywatch %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
