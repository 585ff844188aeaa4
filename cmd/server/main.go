// BinarJoin AI engine: conversational assistant with guarded actions over
// the business database.
//
// Commands:
//   - serve      run the HTTP API (default)
//   - providers  print the configured provider chain
//   - migrate    create or upgrade the database schema
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/binarjoin/agent-engine/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		cfg        *config.Config
	)

	root := &cobra.Command{
		Use:   "binarjoin-ai",
		Short: "BinarJoin AI engine",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg.Log)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.Path(), "Path to the YAML config file")

	cfgFn := func() *config.Config { return cfg }
	serve := newServeCommand(cfgFn)
	root.RunE = serve.RunE
	root.AddCommand(serve)
	root.AddCommand(newProvidersCommand(cfgFn))
	root.AddCommand(newMigrateCommand(cfgFn))
	return root
}

func setupLogging(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
