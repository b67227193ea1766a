package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reveald/treesearch/indexing"
)

func newCleanupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete index generations the alias does not point at",
		Long: `Delete every index generation the alias does not point at.

Backend errors are logged and the remaining generations are still processed,
so cleanup always exits successfully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := a.backend()
			if err != nil {
				return err
			}

			manager := indexing.NewManager(backend.Transport(), a.cfg.Elasticsearch.Alias, indexing.WithLogger(a.logger))
			report := manager.Cleanup(cmd.Context())

			out := cmd.OutOrStdout()
			for _, index := range report.Deleted {
				fmt.Fprintf(out, "deleted %s\n", index)
			}
			for _, index := range report.Kept {
				fmt.Fprintf(out, "kept %s\n", index)
			}
			for _, index := range report.Failed {
				fmt.Fprintf(out, "failed %s\n", index)
			}
			return nil
		},
	}
}
