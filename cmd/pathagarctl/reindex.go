package main

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/amarpathagar/pathagar-server/internal/di/providers"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

func newReindexCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the book search index from the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(func(injector do.Injector) error {
				index := do.MustInvoke[*providers.SearchIndexHandle](injector)
				books := do.MustInvoke[*service.BookService](injector)

				count, err := providers.ReindexBooks(context.Background(), index.SearchIndex, books)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d books\n", count)
				return nil
			})
		},
	}
}
