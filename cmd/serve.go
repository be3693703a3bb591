package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(app *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if addr != "" {
				app.cfg.Server.Addr = addr
			}

			server, err := app.gateway(ctx)
			if err != nil {
				return err
			}

			janitorCtx, cancelJanitor := context.WithCancel(ctx)
			defer cancelJanitor()
			go app.sessions.RunJanitor(janitorCtx, app.cfg.Sessions.PruneInterval)

			app.logger.Info("gateway starting",
				zap.String("addr", app.cfg.Server.Addr),
				zap.String("ledger_driver", app.cfg.Ledger.Driver),
				zap.String("ledger_path", app.ledgerPath),
				zap.String("policy", string(app.cfg.Ledger.Policy)),
			)

			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")

	return cmd
}
