package commands

import (
	"context"

	"github.com/spf13/cobra"

	"forwarder/internal/apps/common"
	"forwarder/internal/di"
)

// GetCommands returns the forwarder subcommands. opts are passed to every
// container the commands build.
func GetCommands(appCtx *common.Context, opts ...di.Option) []*cobra.Command {
	return []*cobra.Command{
		NewRunCmd(appCtx, opts...),
		NewOnceCmd(appCtx, opts...),
		NewConfigCmd(appCtx),
	}
}

// contextOrBackground guards against commands executed without a context
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
