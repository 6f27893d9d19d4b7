package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"flowmap/internal/scheduler"
	"flowmap/internal/server"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the synchronization scheduler and status server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		srv := server.New(a.cfg.ServerAddr, a.sched, a.graphs, a.logger)
		a.relay.target = srv.Publish

		go func() {
			if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Printf("status server stopped: %v", err)
			}
		}()

		if a.cfg.Watch {
			watcher, err := scheduler.NewTreeWatcher(a.cfg.SourcePath, a.sched.Wake, a.logger)
			if err != nil {
				a.logger.Printf("watch disabled: %v", err)
			} else {
				go watcher.Start(ctx)
			}
		}

		a.logger.Printf("watching %s every %s", a.cfg.SourcePath, a.cfg.PollInterval.Std())
		if err := a.sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
