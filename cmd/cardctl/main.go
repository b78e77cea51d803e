package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/kirillkom/card-catalog/internal/bootstrap"
	"github.com/kirillkom/card-catalog/internal/cli"
	"github.com/kirillkom/card-catalog/internal/config"
	"github.com/kirillkom/card-catalog/internal/observability/logging"
)

const version = "0.1.0"

func main() {
	root := cli.NewRootCmd(cli.Deps{
		Open: func(ctx context.Context) (*cli.Backend, error) {
			cfg, err := loadConfig()
			if err != nil {
				return nil, err
			}
			tools, err := bootstrap.NewTools(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return &cli.Backend{
				Writer:   tools.Writer,
				Prices:   tools.Prices,
				Accounts: tools.Accounts,
				Close:    tools.Close,
			}, nil
		},
		Migrate: func(ctx context.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return bootstrap.Migrate(ctx, cfg)
		},
	})

	err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	)
	os.Exit(cli.ExitCode(err))
}

// loadConfig runs after the root command has loaded .env.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	// stdout carries command output.
	slog.SetDefault(logging.New(os.Stderr, "cardctl", cfg.LogLevel, cfg.LogFormat))
	return cfg, nil
}
