// Command zipatch generates and applies archive patch streams.
package main

import (
	"log"

	"github.com/spf13/cobra"
)

const versionString = "dev"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "zipatch",
		Short:   "zipatch - archive-aware binary patch tool",
		Version: versionString,
	}

	root.AddCommand(newGenerateCmd(), newApplyCmd(), newExplainCmd(), newWatchCmd(), newServeCmd())
	return root
}
