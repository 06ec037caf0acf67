package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"forwarder/internal/apps/common"
	"forwarder/internal/config"
)

// Prompter asks the operator for configuration values
type Prompter interface {
	Ask(label, defaultValue string, secret bool) (string, error)
	Choose(label string, items []string) (string, error)
}

type promptuiPrompter struct{}

func (promptuiPrompter) Ask(label, defaultValue string, secret bool) (string, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: defaultValue,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("%s is required", label)
			}
			return nil
		},
	}
	if secret {
		prompt.Mask = '*'
	}
	return prompt.Run()
}

func (promptuiPrompter) Choose(label string, items []string) (string, error) {
	sel := promptui.Select{Label: label, Items: items}
	_, choice, err := sel.Run()
	return choice, err
}

func NewConfigCmd(appCtx *common.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the forwarder configuration",
	}

	cmd.AddCommand(newConfigShowCmd(appCtx))
	cmd.AddCommand(newConfigInitCmd(appCtx, promptuiPrompter{}))

	return cmd
}

func newConfigShowCmd(appCtx *common.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appCtx.LoadConfig()
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg.Masked())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newConfigInitCmd(appCtx *common.Context, prompter Prompter) *cobra.Command {
	var output string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively write a new config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("%s already exists; pass --force to overwrite", output)
			}

			cfg, err := promptConfig(prompter)
			if err != nil {
				if err == promptui.ErrInterrupt || err == promptui.ErrEOF {
					return nil
				}
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(output, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "forwarder.yaml", "Where to write the config file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}

func promptConfig(p Prompter) (*config.Config, error) {
	cfg := config.Default()

	var err error
	if cfg.WorkspaceID, err = p.Ask("Log Analytics workspace ID", "", false); err != nil {
		return nil, err
	}
	if cfg.Query, err = p.Ask("Query", "", false); err != nil {
		return nil, err
	}
	if cfg.Schedule, err = p.Ask("Schedule (cron with seconds)", config.DefaultSchedule, false); err != nil {
		return nil, err
	}
	if cfg.Telemetry.Sink, err = p.Choose("Telemetry sink", []string{config.SinkAppInsights, config.SinkDatadog, config.SinkLog}); err != nil {
		return nil, err
	}

	switch cfg.Telemetry.Sink {
	case config.SinkAppInsights:
		if cfg.Telemetry.AppInsights.InstrumentationKey, err = p.Ask("Application Insights instrumentation key", "", true); err != nil {
			return nil, err
		}
	case config.SinkDatadog:
		if cfg.Telemetry.Datadog.APIKey, err = p.Ask("Datadog API key", "", true); err != nil {
			return nil, err
		}
		if cfg.Telemetry.Datadog.IntakeURL, err = p.Ask("Datadog log intake URL", config.DefaultDatadogURL, false); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	return cfg, nil
}
