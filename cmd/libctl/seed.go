package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oksasatya/library-catalog/internal/application"
	"github.com/oksasatya/library-catalog/internal/container"
	"github.com/oksasatya/library-catalog/internal/domain/apperr"
	"github.com/oksasatya/library-catalog/internal/domain/entity"
)

type sampleBook struct {
	title, author, isbn string
	year, copies        int
}

var sampleBooks = []sampleBook{
	{"The Pragmatic Programmer", "Andrew Hunt, David Thomas", "9780135957059", 2019, 3},
	{"The Go Programming Language", "Alan A. A. Donovan, Brian W. Kernighan", "9780134190440", 2015, 2},
	{"Designing Data-Intensive Applications", "Martin Kleppmann", "9781449373320", 2017, 2},
	{"Structure and Interpretation of Computer Programs", "Harold Abelson, Gerald Jay Sussman", "9780262510875", 1996, 1},
	{"Pride and Prejudice", "Jane Austen", "9780141439518", 1813, 4},
}

type seedOptions struct {
	adminEmail    string
	adminPassword string
	samples       bool
	dryRun        bool
}

func newSeedCmd(a *app) *cobra.Command {
	var opts seedOptions
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account and optional sample books",
		Long: "Creates an admin account (the password is prompted for when not given) " +
			"and, with --samples, a handful of books. Existing records are left alone.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.adminPassword == "" {
				pw, err := readPassword(cmd.ErrOrStderr(), "Admin password: ")
				if err != nil {
					return err
				}
				opts.adminPassword = pw
			}

			var (
				c   *container.Container
				err error
			)
			if opts.dryRun {
				c = a.memoryContainer()
			} else {
				c, err = a.openContainer(cmd.Context(), false)
				if err != nil {
					return err
				}
			}
			defer c.Close()
			return runSeed(cmd.Context(), c, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.adminEmail, "admin-email", "admin@library.local", "admin account email")
	cmd.Flags().StringVar(&opts.adminPassword, "admin-password", "", "admin password (prompted when empty)")
	cmd.Flags().BoolVar(&opts.samples, "samples", false, "also create sample books")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "seed an in-memory store and discard it")
	return cmd
}

// readPassword reads without echo from a terminal, or a line from piped stdin.
func readPassword(w io.Writer, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		b, err := io.ReadAll(io.LimitReader(os.Stdin, 1024))
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func runSeed(ctx context.Context, c *container.Container, opts seedOptions, out io.Writer) error {
	acc, err := c.Auth.CreateAccount(ctx, opts.adminEmail, opts.adminPassword, entity.RoleAdmin)
	switch {
	case errors.Is(err, apperr.ErrConflict):
		fmt.Fprintf(out, "admin %s already exists\n", opts.adminEmail)
	case err != nil:
		return fmt.Errorf("create admin: %w", err)
	default:
		fmt.Fprintf(out, "created admin id=%s email=%s\n", acc.ID, acc.Email)
	}

	if !opts.samples {
		return nil
	}
	for _, s := range sampleBooks {
		year, isbn := s.year, s.isbn
		b, err := c.Catalog.CreateBook(ctx, application.BookInput{
			Title:       s.title,
			Author:      s.author,
			Year:        &year,
			ISBN:        &isbn,
			TotalCopies: s.copies,
		})
		switch {
		case errors.Is(err, apperr.ErrConflict):
			fmt.Fprintf(out, "book %q already exists\n", s.title)
		case err != nil:
			return fmt.Errorf("create book %q: %w", s.title, err)
		default:
			fmt.Fprintf(out, "created book id=%s title=%q copies=%d\n", b.ID, b.Title, b.TotalCopies)
		}
	}
	return nil
}
