package cli

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/refpost/pkg/cli/config"
	"github.com/m-mizutani/refpost/pkg/controller/hook"
	"github.com/m-mizutani/refpost/pkg/infra/gitrepo"
	"github.com/m-mizutani/refpost/pkg/infra/policy"
	"github.com/m-mizutani/refpost/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdUpdate() *cli.Command {
	var (
		fileCfg     config.File
		mailCfg     config.Mail
		announceCfg config.Announce
		gitDir      string
	)

	flags := append(fileCfg.Flags(), mailCfg.Flags()...)
	flags = append(flags, announceCfg.Flags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "git-dir",
			Usage:       "Repository control directory (defaults to $GIT_DIR, then the working directory)",
			Destination: &gitDir,
			Sources:     cli.EnvVars("REFPOST_GIT_DIR"),
		},
	)

	return &cli.Command{
		Name:      "update",
		Usage:     "Run as the update hook: <ref> <old-rev> <new-rev>",
		ArgsUsage: "<ref> <old-rev> <new-rev>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			// Invocation mistakes are rejected before any repository or
			// transport setup.
			if _, err := hook.ParseEvent(c.Args().Slice()); err != nil {
				return err
			}

			fileConf, err := fileCfg.Load()
			if err != nil {
				return err
			}
			fileConf.Apply(&mailCfg, &announceCfg, c.IsSet)

			logger.Debug("resolved process configuration",
				"mail", mailCfg,
				"announce", announceCfg,
			)

			controlDir, err := hook.ResolveControlDir(gitDir)
			if err != nil {
				return err
			}

			repo, err := gitrepo.Open(controlDir)
			if err != nil {
				return goerr.Wrap(err, "failed to open repository", goerr.V("dir", controlDir))
			}

			mailer, err := mailCfg.Build()
			if err != nil {
				return err
			}
			if mailer == nil {
				logger.Warn("no mail transport configured, notifications will be dropped")
			}

			opts := []usecase.Option{
				usecase.WithDelay(mailCfg.Delay),
			}
			if mailer != nil {
				opts = append(opts, usecase.WithMailer(mailer))
			}
			if announcer := announceCfg.Build(); announcer != nil {
				opts = append(opts, usecase.WithAnnouncer(announcer))
			}

			uc := usecase.NewNotify(repo, opts...)
			loader := policy.NewLoader(controlDir)
			ctrl := hook.New(loader, uc, mailCfg.FallbackRecipient)

			return ctrl.HandleUpdate(ctx, c.Args().Slice())
		},
	}
}
