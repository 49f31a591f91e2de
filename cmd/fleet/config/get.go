package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/fleet/pkg/cliui"
)

const getLongDesc string = `Get a configuration value.

Prints the value of a dotted key as read from config.toml, or its default
when the file does not set it. Flags and FLEET_* environment variables are
not applied.

Examples:
  fleet config get client.target
  fleet config get transcripts.provider`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "get <key>",
		Short:             getShortDesc,
		Long:              getLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: validKeysCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			cfger, err := openConfiger(cmd, key)
			if err != nil {
				return err
			}

			value, err := cfger.GetConfigValue(key)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s\n\n", cliui.KeyStyle.Render(key), renderValue(value))
			return nil
		},
	}
}
