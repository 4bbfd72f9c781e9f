package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-multistep/internal/logging"
)

var version = "dev"

func main() {
	var debug bool

	root := &cobra.Command{
		Use:           "multistep",
		Short:         "Walk multi-step forms in the terminal or the browser",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelWarn
			if debug {
				level = logging.LevelDebug
			}
			_, err := logging.New(os.Stderr, level)
			return err
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(runCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(flowsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
