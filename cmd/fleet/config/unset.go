package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/fleet/pkg/cliui"
)

const unsetLongDesc string = `Restore the default of a configuration value.

Examples:
  fleet config unset client.target
  fleet config unset eventstream.brokers`

func newUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "unset <key>",
		Short:             "Restore the default of a configuration value",
		Long:              unsetLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: validKeysCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			cfger, err := openConfiger(cmd, key)
			if err != nil {
				return err
			}

			if err := cfger.UnsetConfigValue(key); err != nil {
				return err
			}

			value, err := cfger.GetConfigValue(key)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "  %s Reset %s = %s\n\n",
				cliui.SuccessMark, cliui.KeyStyle.Render(key), renderValue(value))
			return nil
		},
	}
}
