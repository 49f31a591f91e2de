package configcmder

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/fleet/pkg/cliui"
)

const listLongDesc string = `List all configuration values.

Prints every key in TOML section order with its value from config.toml or
its default.

Examples:
  fleet config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfger, err := openConfiger(cmd, "")
			if err != nil {
				return err
			}

			entries, err := cfger.Entries()
			if err != nil {
				return err
			}

			width := 0
			for _, e := range entries {
				width = max(width, len(e.Key))
			}

			w := cmd.OutOrStdout()
			for _, e := range entries {
				value := e.Value
				if value != "" {
					value = strconv.Quote(value)
				}
				fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-*s", width, e.Key)), renderValue(value))
			}
			fmt.Fprintln(w)

			return nil
		},
	}
}
