package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/reynard/nlweb/internal/mcpserver"
	"github.com/reynard/nlweb/internal/service"
)

const shutdownTimeout = 5 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve tool suggestions over MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, cfg, logger, err := a.start(ctx)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				if err := svc.Shutdown(shutdownCtx); err != nil {
					logger.Error().Err(err).Msg("shutdown failed")
				}
			}()

			runCtx, cancel := context.WithCancel(ctx)
			var wg conc.WaitGroup
			wg.Go(func() { svc.RunCachePruner(runCtx, service.CachePruneInterval) })
			if cfg.Catalog.Watch {
				wg.Go(func() {
					if err := svc.WatchCatalogs(runCtx); err != nil {
						logger.Error().Err(err).Msg("catalog watcher stopped")
					}
				})
			}

			err = mcpserver.New(svc, cfg.Server, logger).Run(runCtx)
			stopped := ctx.Err() != nil
			cancel()
			wg.Wait()
			if stopped {
				return nil
			}
			return err
		},
	}
}
