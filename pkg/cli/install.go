package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// shimMarker identifies a hook script written by refpost, so reinstalling
// over our own shim does not need --force.
const shimMarker = "refpost update"

func cmdInstall() *cli.Command {
	var (
		repoDir string
		force   bool
	)

	return &cli.Command{
		Name:  "install",
		Usage: "Install the update hook shim into a repository",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "repo",
				Usage:       "Repository control directory to install into",
				Required:    true,
				Destination: &repoDir,
				Sources:     cli.EnvVars("REFPOST_REPO"),
			},
			&cli.BoolFlag{
				Name:        "force",
				Usage:       "Overwrite an existing foreign update hook",
				Destination: &force,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			hooksDir := filepath.Join(repoDir, "hooks")
			if _, err := os.Stat(repoDir); err != nil {
				return goerr.Wrap(err, "repository directory not found", goerr.V("dir", repoDir))
			}
			if err := os.MkdirAll(hooksDir, 0o755); err != nil {
				return goerr.Wrap(err, "failed to create hooks directory", goerr.V("dir", hooksDir))
			}

			hookPath := filepath.Join(hooksDir, "update")
			if existing, err := os.ReadFile(hookPath); err == nil {
				if !force && !strings.Contains(string(existing), shimMarker) {
					return goerr.New("update hook already exists, use --force to overwrite",
						goerr.V("path", hookPath),
					)
				}
			}

			exe, err := os.Executable()
			if err != nil {
				return goerr.Wrap(err, "failed to locate refpost binary")
			}

			shim := "#!/bin/sh\nexec " + exe + " update \"$@\"\n"
			if err := os.WriteFile(hookPath, []byte(shim), 0o755); err != nil {
				return goerr.Wrap(err, "failed to write update hook", goerr.V("path", hookPath))
			}

			logger.Info("installed update hook", "path", hookPath)
			return nil
		},
	}
}
