package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/binarjoin/agent-engine/internal/config"
	"github.com/binarjoin/agent-engine/internal/store"
	"github.com/binarjoin/agent-engine/pkg/server"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCommand(cfg func() *config.Config) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			if port > 0 {
				c.Server.Port = port
			}
			ctx := cmd.Context()

			log.Info().Str("version", c.Server.Version).Msg("BinarJoin AI engine starting...")
			srv, err := server.New(ctx, c)
			if err != nil {
				return fmt.Errorf("initialize server: %w", err)
			}
			defer srv.Store.Close()
			defer srv.ShutdownFunc(context.Background())

			if srv.Janitor != nil {
				go srv.Janitor.Start(ctx)
			}

			httpServer := &http.Server{
				Addr:         fmt.Sprintf(":%d", c.Server.Port),
				Handler:      srv.Handler,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			// Graceful shutdown
			go func() {
				<-ctx.Done()
				log.Info().Msg("Shutting down gracefully...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				httpServer.Shutdown(shutdownCtx)
			}()

			log.Info().
				Int("port", c.Server.Port).
				Bool("ai_available", srv.Router.HasAvailable()).
				Msg("Listening")

			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override server.port")
	return cmd
}

func newProvidersCommand(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Print the configured provider chain in routing order",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			specs, err := server.ProviderSpecs(cmd.Context(), c)
			if err != nil {
				return err
			}
			if len(specs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No providers configured. Set HUGGINGFACE_API_KEY, OPENAI_API_KEY or GEMINI_API_KEY.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PRIORITY\tPROVIDER\tMODEL\tDAILY LIMIT")
			for _, s := range specs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Priority, s.Driver.Kind(), s.Model, humanize.Comma(int64(s.DailyLimit)))
			}
			fmt.Fprintf(tw, "\nCooldown after rate limit: %s\n", c.Engine.Cooldown)
			return tw.Flush()
		},
	}
}

func newMigrateCommand(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			// Open migrates before returning.
			s, err := store.Open(cmd.Context(), c.Database.Driver, c.Database.URL, c.Database.MaxConnections)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintf(os.Stdout, "Schema up to date (%s)\n", c.Database.Driver)
			return nil
		},
	}
}
