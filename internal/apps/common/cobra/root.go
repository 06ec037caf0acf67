package cobra

import (
	"fmt"

	"github.com/spf13/cobra"

	"forwarder/internal/apps/common"
	"forwarder/internal/buildinfo"
)

func NewRootCommand(appCtx *common.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               appCtx.BinaryName,
		Short:             "Forward Log Analytics query results as telemetry events",
		Long:              `Runs a fixed Log Analytics query on a schedule and forwards every result row as a telemetry event.`,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Version:           buildinfo.Version,
	}

	rootCmd.PersistentFlags().StringVarP(&appCtx.ConfigPath, "config", "c", "", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&appCtx.LogLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Display the version of " + appCtx.BinaryName,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), appCtx.VersionString())
		},
	})

	return rootCmd
}
