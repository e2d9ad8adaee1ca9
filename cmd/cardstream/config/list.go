package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cardstream/pkg/cliui"
	"github.com/papercomputeco/cardstream/pkg/config"
)

const listLongDesc string = `List all configuration values.

Shows every key with its effective value. Keys still at their default are
marked "(default)"; empty values are shown as <not set>.

Examples:
  cardstream config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir)
		},
	}

	return cmd
}

func runList(out io.Writer, configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	printSource(out, cfger)

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return err
	}
	defaults := config.NewDefaultConfig()

	keys := config.ValidConfigKeys()
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}

	for _, key := range keys {
		value, _ := config.LookupValue(cfg, key)
		def, _ := config.LookupValue(defaults, key)

		shown := cliui.ValueStyle.Render(fmt.Sprintf("%q", value))
		if value == "" {
			shown = cliui.DimStyle.Render("<not set>")
		}

		note := ""
		if value == def && value != "" {
			note = " " + cliui.DimStyle.Render("(default)")
		}

		fmt.Fprintf(out, "  %-*s = %s%s\n", width, key, shown, note)
	}

	return nil
}
