// Package configcmder provides the config command for managing persistent
// fleet configuration stored in the .fleet/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/fleet/pkg/cliui"
	"github.com/papercomputeco/fleet/pkg/config"
)

const configLongDesc string = `Manage persistent fleet configuration.

Configuration is stored as config.toml in the .fleet/ directory and provides
default values for command flags. CLI flags and FLEET_* environment variables
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.target, client.model,
  stream.chunk_size, stream.channel_buffer, stream.max_dropped_frames,
  transcripts.enabled, transcripts.provider, transcripts.sqlite_path,
  transcripts.postgres_dsn, transcripts.workers, transcripts.queue_size,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  replay.listen

Subcommands:
  fleet config set <key> <value>    Set a configuration value
  fleet config get <key>            Get a configuration value
  fleet config unset <key>          Restore the default of a key
  fleet config list                 List all configuration values

Examples:
  fleet config set client.target http://fleet.internal:8000
  fleet config set eventstream.brokers localhost:9092,localhost:9093
  fleet config get client.target
  fleet config unset eventstream.brokers
  fleet config list`

const configShortDesc string = "Manage persistent fleet configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newUnsetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// validKeysCompletion completes the key argument of get and set.
func validKeysCompletion(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// openConfiger validates key, when given, and opens the config of the
// --config-dir flag, printing which file is in use.
func openConfiger(cmd *cobra.Command, key string) (*config.Configer, error) {
	if key != "" && !config.IsValidConfigKey(key) {
		return nil, fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	configDir, _ := cmd.Flags().GetString("config-dir")
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	printSource(cmd.OutOrStdout(), cfger)
	return cfger, nil
}

func printSource(w io.Writer, cfger *config.Configer) {
	if cfger.Exists() {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(cfger.Path()),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

// renderValue shows unset values as a dim placeholder.
func renderValue(v string) string {
	if v == "" {
		return cliui.DimStyle.Render("<not set>")
	}
	return cliui.ValueStyle.Render(v)
}
