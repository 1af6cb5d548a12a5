package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/talaria-bot/talaria/pkg/cli/config"
	"github.com/talaria-bot/talaria/pkg/utils/logging"
)

func Run(ctx context.Context, args []string, version string) error {
	var loggerCfg config.Logger
	var sentryCfg config.Sentry
	var closers []func()

	var flags []cli.Flag
	flags = append(flags, loggerCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	app := &cli.Command{
		Name:    "talaria",
		Usage:   "Talaria retrieval-augmented WhatsApp assistant",
		Version: version,
		Flags:   flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logCloser, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closers = append(closers, logCloser)

			sentryCloser, err := sentryCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closers = append(closers, sentryCloser)

			logging.Default().Info("Starting talaria", "logger", loggerCfg)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdIngest(),
			cmdSearch(),
			cmdMigrate(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run app", "error", err)
		return err
	}

	return nil
}
