package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"forwarder/internal/apps/common"
	"forwarder/internal/di"
	"forwarder/internal/runner"
)

func NewRunCmd(appCtx *common.Context, opts ...di.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the query on its schedule until interrupted",
		Long: `Starts the scheduler and forwards query results on every tick.
A failed run is logged and never stops later ticks. SIGINT or SIGTERM
stops the scheduler after any in-flight run completes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appCtx.LoadConfig()
			if err != nil {
				return err
			}
			logger := appCtx.NewLogger(cfg)

			container := di.NewContainer(cfg, logger, opts...)
			if err := container.Initialize(); err != nil {
				return err
			}

			scheduler, err := runner.NewScheduler(cfg.Schedule, container.Handler(), cfg.RunOnStartup, logger.WithPrefix("scheduler"))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("Forwarding workspace %s to %s on schedule %q", cfg.WorkspaceID, container.Sink().Name(), cfg.Schedule)
			return scheduler.Run(ctx)
		},
	}
}
