package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cardstream/pkg/cliui"
	"github.com/papercomputeco/cardstream/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Writes the key to config.toml in the .cardstream/ directory, creating the
file when needed. Durations use Go syntax (500ms, 2s, 1m) and must be
positive; booleans accept true or false.

Valid keys:
  client.target, client.path,
  stream.stall_timeout, stream.record_path,
  fixture.listen, fixture.interval, fixture.script,
  log.pretty, log.json

Examples:
  cardstream config set client.target http://localhost:3001
  cardstream config set stream.stall_timeout 5s
  cardstream config set stream.record_path auto
  cardstream config set log.json true`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd.OutOrStdout(), args[0], args[1], configDir)
		},
		ValidArgsFunction: completeKeys(0),
	}

	return cmd
}

func runSet(out io.Writer, key, value, configDir string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s %s = %s %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(value),
		cliui.DimStyle.Render("("+cfger.GetTarget()+")"),
	)
	return nil
}
