package main

import (
	"os"

	cardstreamcmder "github.com/papercomputeco/cardstream/cmd/cardstream"
)

func main() {
	cmd := cardstreamcmder.NewCardstreamCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
