package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

type ConfigCmd struct {
	flags *Flags
}

func NewConfigCmd(flags *Flags) *ConfigCmd {
	return &ConfigCmd{flags: flags}
}

func (cmd *ConfigCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Inspect the configuration",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Check the configuration and report every problem",
				UsageText:   "fieldmapd config validate",
				Description: "Loads the config file plus environment overrides and validates the result.",
				Action:      cmd.validate,
			},
		},
	})
	return app
}

func (cmd *ConfigCmd) validate(_ context.Context, c *cli.Command) error {
	if err := cmd.flags.Config.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration:\n%v", err), 1)
	}
	_, err := fmt.Fprintf(c.Root().Writer, "configuration %s is valid\n", cmd.flags.ConfigPath)
	return err
}
