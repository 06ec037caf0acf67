package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"forwarder/internal/apps/common"
	"forwarder/internal/config"
	"forwarder/internal/di"
)

func NewOnceCmd(appCtx *common.Context, opts ...di.Option) *cobra.Command {
	var dryRun bool
	var failOnError bool

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Execute a single run and exit",
		Example: `  # Forward using the configured sink
  forwarder once -c forwarder.yaml

  # Print events to the log instead of sending them
  forwarder once -c forwarder.yaml --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				appCtx.Loader.Lookup = withOverride(appCtx.Loader.Lookup, config.EnvSink, config.SinkLog)
			}
			cfg, err := appCtx.LoadConfig()
			if err != nil {
				return err
			}
			logger := appCtx.NewLogger(cfg)

			container := di.NewContainer(cfg, logger, opts...)
			if err := container.Initialize(); err != nil {
				return err
			}

			outcome := container.Handler().Run(contextOrBackground(cmd.Context()))
			fmt.Fprintln(cmd.OutOrStdout(), outcome.String())

			if failOnError && outcome.Failed() {
				return outcome.Err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log events instead of sending them to the telemetry sink")
	cmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "Exit non-zero when the run fails")

	return cmd
}

func withOverride(lookup config.LookupFunc, key, value string) config.LookupFunc {
	return func(k string) (string, bool) {
		if k == key {
			return value, true
		}
		if lookup == nil {
			return "", false
		}
		return lookup(k)
	}
}
