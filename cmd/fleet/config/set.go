package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/fleet/pkg/cliui"
)

const setLongDesc string = `Set a configuration value.

Parses the value for the key's type and writes it to config.toml, creating
the file if needed. Integer keys reject negative values and list keys take
comma separated values.

Examples:
  fleet config set client.target http://localhost:8000
  fleet config set transcripts.provider postgres
  fleet config set stream.max_dropped_frames 10`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "set <key> <value>",
		Short:             setShortDesc,
		Long:              setLongDesc,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: validKeysCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			cfger, err := openConfiger(cmd, key)
			if err != nil {
				return err
			}

			if err := cfger.SetConfigValue(key, value); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "  %s Set %s = %s\n\n",
				cliui.SuccessMark, cliui.KeyStyle.Render(key), renderValue(value))
			return nil
		},
	}
}
