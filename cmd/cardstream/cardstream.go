// Package cardstreamcmder
package cardstreamcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/cardstream/cmd/cardstream/config"
	improvecmder "github.com/papercomputeco/cardstream/cmd/cardstream/improve"
	servecmder "github.com/papercomputeco/cardstream/cmd/cardstream/serve"
	versioncmder "github.com/papercomputeco/cardstream/cmd/version"
)

const cardstreamLongDesc string = `Cardstream streams card improvements from an assistant backend.

The assistant answers over Server-Sent Events. Cardstream reconciles the
cumulative stream into a short chat summary and a set of edit proposals
that can be reviewed and accepted one by one.

Commands:
  cardstream improve <prompt>   Stream improvements for a prompt
  cardstream serve              Run a scripted backend for local testing
  cardstream config             Manage persistent configuration`

const cardstreamShortDesc string = "Cardstream - streamed card improvements"

func NewCardstreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "cardstream",
		Short:        cardstreamShortDesc,
		Long:         cardstreamLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .cardstream directory")

	// Add subcommands
	cmd.AddCommand(improvecmder.NewImproveCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
