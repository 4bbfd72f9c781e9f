package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-multistep/pkg/flow"
)

func flowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flows",
		Short: "List the bundled example flows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := flow.LoadFS(flow.EmbeddedFS())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range store.Names() {
				f, _ := store.Flow(name)
				title := f.Title
				if title == "" {
					title = f.Name
				}
				fmt.Fprintf(out, "%-16s %s (%d steps)\n", name, title, len(f.Steps))
			}
			return nil
		},
	}
}
