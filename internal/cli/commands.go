package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/card-catalog/internal/core/domain"
	"github.com/kirillkom/card-catalog/internal/infrastructure/process"
)

func newInsertCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <detection.json> <catalogID> [resultPath]",
		Short: "Insert a detected card into a catalog",
		Long: `Reads the classifier output, fills missing attributes from the card
reference API when it is reachable, and inserts one copy of the card.
When resultPath is given the new card id is written there as {"card_id": N}.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalogID, err := parseID("catalogID", args[1])
			if err != nil {
				return err
			}
			return withBackend(cmd.Context(), deps, func(b *Backend) error {
				cardID, err := b.Writer.WriteFromFile(cmd.Context(), args[0], catalogID)
				if err != nil {
					return err
				}
				if len(args) == 3 {
					if err := process.WriteReceipt(args[2], domain.InsertReceipt{CardID: cardID}); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "inserted card %d into catalog %d\n", cardID, catalogID)
				return nil
			})
		},
	}
}

func newPriceCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "price <cardID>",
		Short: "Refresh the market price of one card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cardID, err := parseID("cardID", args[0])
			if err != nil {
				return err
			}
			return withBackend(cmd.Context(), deps, func(b *Backend) error {
				updated, err := b.Prices.Refresh(cmd.Context(), cardID)
				if err != nil {
					return err
				}
				if updated {
					fmt.Fprintf(cmd.OutOrStdout(), "price updated for card %d\n", cardID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "no market price for card %d, kept previous value\n", cardID)
				}
				return nil
			})
		},
	}
}

func newUserCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage catalog owners",
	}

	var email string
	create := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user and its catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), deps, func(b *Backend) error {
				user, catalog, err := b.Accounts.Create(cmd.Context(), args[0], email)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d) with catalog %d\n", user.Username, user.ID, catalog.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "contact email")
	cmd.AddCommand(create)

	return cmd
}

func newMigrateCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse "+name, fmt.Errorf("%q is not a positive integer", raw))
	}
	return id, nil
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case domain.IsKind(err, domain.ErrUserExists):
		return 2
	default:
		return 1
	}
}
