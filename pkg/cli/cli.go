package cli

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/refpost/pkg/cli/config"
	"github.com/m-mizutani/refpost/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Run runs the CLI application
func Run(ctx context.Context, args []string) error {
	var loggerCfg config.Logger
	var sentryCfg config.Sentry
	var logger *slog.Logger
	flush := func() {}

	flags := append(loggerCfg.Flags(), sentryCfg.Flags()...)

	app := &cli.Command{
		Name:    types.AppName,
		Usage:   "Git update hook: push policy gate and mail notifier",
		Version: types.Version,
		Flags:   flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			var err error
			logger, err = loggerCfg.Configure()
			if err != nil {
				return nil, err
			}

			slog.SetDefault(logger)
			ctx = ctxlog.With(ctx, logger)

			if flush, err = sentryCfg.Configure(); err != nil {
				return nil, err
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmdUpdate(),
			cmdInstall(),
			cmdVersion(),
		},
	}

	defer func() { flush() }()

	if err := app.Run(ctx, args); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("CLI execution failed", slog.Any("error", err))

		// Usage mistakes and deliberate policy rejections are expected
		// operation, not faults worth an alert.
		if !goerr.HasTag(err, types.TagUsage) && !goerr.HasTag(err, types.TagPolicy) {
			sentry.CaptureException(err)
		}
		return err
	}

	return nil
}
