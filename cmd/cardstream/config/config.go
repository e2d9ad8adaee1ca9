// Package configcmder provides the config command for managing persistent
// cardstream configuration stored in the .cardstream/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cardstream/pkg/cliui"
	"github.com/papercomputeco/cardstream/pkg/config"
)

const configLongDesc string = `Manage persistent cardstream configuration.

Configuration is stored as config.toml in the .cardstream/ directory and
provides default values for command flags. CLI flags and CARDSTREAM_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.target, client.path,
  stream.stall_timeout, stream.record_path,
  fixture.listen, fixture.interval, fixture.script,
  log.pretty, log.json

Use subcommands to get, set, or list configuration values:
  cardstream config set <key> <value>    Set a configuration value
  cardstream config get <key>            Get a configuration value
  cardstream config list                 List all configuration values

Examples:
  cardstream config set client.target https://cards.example.com
  cardstream config set stream.stall_timeout 5s
  cardstream config get client.target
  cardstream config list`

const configShortDesc string = "Manage persistent cardstream configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func checkKey(key string) error {
	if config.IsValidConfigKey(key) {
		return nil
	}
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

// completeKeys offers config keys for the argument at position pos.
func completeKeys(pos int) cobra.CompletionFunc {
	return func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if len(args) == pos {
			return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
}

func printSource(out io.Writer, cfger *config.Configer) {
	if cfger.Exists() {
		fmt.Fprintf(out, "\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(cfger.GetTarget()))
		return
	}
	fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
