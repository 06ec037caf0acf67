package main

import (
	"os"

	"forwarder/internal/apps/common"
	cobraPkg "forwarder/internal/apps/common/cobra"
	forwarderCmd "forwarder/internal/apps/forwarder/commands"
	"forwarder/internal/logging"
)

func main() {
	logger := logging.NewDefaultLogger("forwarder")

	appCtx := common.NewContext("forwarder")

	rootCmd := cobraPkg.NewRootCommand(appCtx)
	rootCmd.AddCommand(forwarderCmd.GetCommands(appCtx)...)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}
