// Command skelc exposes the formula/skeleton templating engine as a CLI:
// render a document, watch it for changes, or inspect its parsed tree.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:           "skelc",
		Short:         "Render formula/skeleton templates",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored error output")

	rootCmd.AddCommand(newRenderCmd(), newWatchCmd(), newInspectCmd())

	if err := rootCmd.Execute(); err != nil {
		FormatError(os.Stderr, err, ShouldUseColor(noColor))
		os.Exit(1)
	}
}
