package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/refpost/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

func cmdVersion() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the build version",
		Action: func(ctx context.Context, c *cli.Command) error {
			_, err := fmt.Printf("%s %s\n", types.AppName, types.Version)
			return err
		},
	}
}
