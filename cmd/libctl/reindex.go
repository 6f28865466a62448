package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReindexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Push every book to the Elasticsearch index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(a.cfg.ESAddrs()) == 0 {
				return fmt.Errorf("ELASTICSEARCH_ADDRS is not set")
			}
			c, err := a.openContainer(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer c.Close()

			n, err := c.Catalog.ReindexBooks(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d book(s) into %s\n", n, a.cfg.ESBooksIndex)
			return nil
		},
	}
}
