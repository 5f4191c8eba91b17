package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simp-lee/bankoffice/internal/domain"
)

func newAccountsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Browse accounts",
	}
	cmd.AddCommand(newAccountsListCommand(e))
	return cmd
}

func newAccountsListCommand(e *env) *cobra.Command {
	var (
		clientID uint
		page     int
		size     int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts, optionally for one client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if page < 1 {
				return errors.New("--page must be at least 1")
			}
			req := domain.PageRequest{
				Page:          page - 1,
				Size:          size,
				SortBy:        domain.DefaultAccountSortBy,
				SortDirection: domain.SortAsc,
			}
			var owner *uint
			if cmd.Flags().Changed("client") {
				owner = &clientID
			}

			result, err := e.api.ListAccounts(cmd.Context(), req, owner)
			if err != nil {
				return reportFieldErrors(e.out, err)
			}
			if e.jsonOut {
				return writeJSON(e.out, result)
			}
			printAccounts(e.out, result.Content, true)
			fmt.Fprintf(e.out, "Page %d of %d, %d accounts\n", result.Page+1, max(result.TotalPages, 1), result.TotalElements)
			return nil
		},
	}
	cmd.Flags().UintVar(&clientID, "client", 0, "only accounts of this client id")
	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&size, "size", domain.DefaultPageSize, "rows per page")
	return cmd
}

func newDashboardCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show client and account totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := e.api.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			if e.jsonOut {
				return writeJSON(e.out, stats)
			}
			printDashboard(e.out, stats)
			return nil
		},
	}
}
