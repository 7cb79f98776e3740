package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/server"
	"github.com/rustyeddy/papertrader/session"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API over HTTP and WebSocket",
	Long: `Run the HTTP server. Every client creates its own session with
POST /api/sessions and drives it with actions; sessions never share a
portfolio.

Routes:
  GET    /healthz
  POST   /api/sessions
  GET    /api/sessions/{id}
  DELETE /api/sessions/{id}
  POST   /api/sessions/{id}/actions
  GET    /api/sessions/{id}/ws

Example:
  papertrader serve --addr :8080 --max-idle 30m`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr    string
	serveMaxIdle time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
	serveCmd.Flags().DurationVar(&serveMaxIdle, "max-idle", time.Hour, "drop sessions idle longer than this (0 keeps them)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}
	j, err := journal.Open(cfg.Journal.Type, cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	factory, err := sessionFactory(cfg, provider, j, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(session.NewStore(factory, logger), logger,
		server.WithMaxIdle(serveMaxIdle),
		server.WithVersion(version),
	)
	return srv.Run(ctx, addr)
}
