package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/oksasatya/library-catalog/internal/application"
	"github.com/oksasatya/library-catalog/internal/domain/repository"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check every book's available copies against its open borrows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.openContainer(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.Close()
			return runVerify(cmd.Context(), c.UoW, cmd.OutOrStdout())
		},
	}
}

func runVerify(ctx context.Context, uow repository.UnitOfWork, out io.Writer) error {
	mismatches, err := application.VerifyAvailability(ctx, uow)
	if err != nil {
		return err
	}
	if len(mismatches) == 0 {
		fmt.Fprintln(out, "ok: availability matches the borrow ledger")
		return nil
	}
	for _, m := range mismatches {
		fmt.Fprintf(out, "book %s %q: available=%d expected=%d (total=%d open=%d)\n",
			m.BookID, m.Title, m.Available, m.Expected(), m.Total, m.OpenLoans)
	}
	return fmt.Errorf("%d book(s) out of sync", len(mismatches))
}
