// Package cli implements cardctl, the command-line side of the catalog:
// the writer and price lookup programs the API runs as child processes,
// plus account and schema administration.
package cli

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

type CardWriter interface {
	WriteFromFile(ctx context.Context, detectionPath string, catalogID int64) (int64, error)
}

type PriceRefresher interface {
	Refresh(ctx context.Context, cardID int64) (bool, error)
}

type AccountCreator interface {
	Create(ctx context.Context, username, email string) (*domain.User, *domain.Catalog, error)
}

// Backend is what the catalog-writing subcommands need. Close releases it.
type Backend struct {
	Writer   CardWriter
	Prices   PriceRefresher
	Accounts AccountCreator
	Close    func()
}

type Deps struct {
	Open    func(ctx context.Context) (*Backend, error)
	Migrate func(ctx context.Context) error
}

func NewRootCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cardctl",
		Short:         "Card catalog maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newInsertCmd(deps))
	cmd.AddCommand(newPriceCmd(deps))
	cmd.AddCommand(newUserCmd(deps))
	cmd.AddCommand(newMigrateCmd(deps))

	return cmd
}

func withBackend(ctx context.Context, deps Deps, fn func(*Backend) error) error {
	backend, err := deps.Open(ctx)
	if err != nil {
		return err
	}
	if backend.Close != nil {
		defer backend.Close()
	}
	return fn(backend)
}
